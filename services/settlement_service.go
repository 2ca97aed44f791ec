package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusarena/arena-system/cache"
	"github.com/campusarena/arena-system/db"
	"github.com/campusarena/arena-system/events"
	"github.com/campusarena/arena-system/live"
	"github.com/campusarena/arena-system/models"
	"github.com/campusarena/arena-system/repositories"
	"github.com/campusarena/arena-system/storage"
)

// RemainderPolicy определяет судьбу округлительного остатка при распределении
// пула: floor по каждой выигравшей ставке может недораздать до
// count(winningStakes)-1 очков.
type RemainderPolicy string

const (
	// RemainderHouse - остаток не перераспределяется (наблюдаемое поведение
	// исходной системы, "house edge").
	RemainderHouse RemainderPolicy = "house"
	// RemainderLargestStake - остаток уходит крупнейшей выигравшей ставке,
	// восстанавливая точное сохранение пула.
	RemainderLargestStake RemainderPolicy = "largest_stake"
)

func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	switch RemainderPolicy(s) {
	case RemainderHouse, RemainderLargestStake:
		return RemainderPolicy(s), nil
	case "":
		return RemainderHouse, nil
	default:
		return "", fmt.Errorf("unknown remainder policy %q", s)
	}
}

// SettlementResult - итог одного расчёта, отдаётся вызывающему и в пост-commit хуки.
type SettlementResult struct {
	Match      *models.Match   `json:"match"`
	WinnerTeam *models.Team    `json:"winner_team"`
	LoserTeam  *models.Team    `json:"loser_team"`
	WinPool    int             `json:"win_pool"`
	LosePool   int             `json:"lose_pool"`
	TotalPaid  int             `json:"total_paid"`
	Remainder  int             `json:"remainder"`
	Policy     RemainderPolicy `json:"remainder_policy"`
	Stakes     []*models.Stake `json:"stakes"`
	SettledAt  time.Time       `json:"settled_at"`

	winnerUserIDs []int
	touchedUsers  []int
}

// SettlementService - единственная точка завершения матча с финансовыми
// последствиями. Все мутации шагов 2-8 идут в одной транзакции; кэш, websocket,
// NATS и архив отчёта трогаются строго после commit.
type SettlementService interface {
	Settle(ctx context.Context, matchID int, winnerID int) (*SettlementResult, error)
}

type settlementService struct {
	txRunner         db.TxRunner
	matchRepo        repositories.MatchRepository
	stakeRepo        repositories.StakeRepository
	notificationRepo repositories.NotificationRepository
	ledger           LedgerService
	bracket          BracketService
	policy           RemainderPolicy

	invalidator cache.Invalidator
	publisher   events.Publisher
	hub         *live.Hub
	uploader    storage.FileUploader // nil, если архив не настроен
	logger      *slog.Logger
}

func NewSettlementService(
	txRunner db.TxRunner,
	matchRepo repositories.MatchRepository,
	stakeRepo repositories.StakeRepository,
	notificationRepo repositories.NotificationRepository,
	ledger LedgerService,
	bracket BracketService,
	policy RemainderPolicy,
	invalidator cache.Invalidator,
	publisher events.Publisher,
	hub *live.Hub,
	uploader storage.FileUploader,
	logger *slog.Logger,
) SettlementService {
	return &settlementService{
		txRunner:         txRunner,
		matchRepo:        matchRepo,
		stakeRepo:        stakeRepo,
		notificationRepo: notificationRepo,
		ledger:           ledger,
		bracket:          bracket,
		policy:           policy,
		invalidator:      invalidator,
		publisher:        publisher,
		hub:              hub,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *settlementService) Settle(ctx context.Context, matchID int, winnerID int) (*SettlementResult, error) {
	var result *SettlementResult

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		settled, txErr := s.settleInTx(ctx, exec, matchID, winnerID)
		if txErr != nil {
			return txErr
		}
		result = settled
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.afterCommit(ctx, result)
	return result, nil
}

// settleInTx - шаги 1-8 алгоритма, внутри транзакции вызывающего runner'а.
func (s *settlementService) settleInTx(ctx context.Context, exec repositories.SQLExecutor, matchID, winnerID int) (*SettlementResult, error) {
	// Guard идемпотентности - первое чтение внутри транзакции. FOR UPDATE
	// на строке матча сериализует конкурирующие вызовы settle: ровно один
	// проходит проверку, остальные видят completed.
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, ErrMatchAlreadySettled
	}
	if match.Status == models.MatchStatusCanceled {
		return nil, ErrInvalidMatchTransition
	}
	if !match.HasSide(winnerID) {
		return nil, ErrWinnerNotInMatch
	}

	now := time.Now()
	if err := s.matchRepo.MarkCompleted(ctx, exec, matchID, winnerID, nil, nil, now); err != nil {
		return nil, mapRepoError(err)
	}
	match.Status = models.MatchStatusCompleted
	match.WinnerID = &winnerID
	match.EndTime = &now

	loserID := match.OpponentOf(winnerID)
	winnerTeam, err := s.bracket.RecordWin(ctx, exec, winnerID, match.Round)
	if err != nil {
		return nil, err
	}
	loserTeam, err := s.bracket.RecordLoss(ctx, exec, loserID, match.Round)
	if err != nil {
		return nil, err
	}

	stakes, err := s.stakeRepo.ListByMatch(ctx, exec, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stakes for match %d: %w", matchID, err)
	}

	result := &SettlementResult{
		Match:      match,
		WinnerTeam: winnerTeam,
		LoserTeam:  loserTeam,
		Policy:     s.policy,
		Stakes:     stakes,
		SettledAt:  now,
	}

	var winning []*models.Stake
	for _, stake := range stakes {
		result.touchedUsers = append(result.touchedUsers, stake.UserID)
		if stake.TeamID == winnerID {
			winning = append(winning, stake)
			result.WinPool += stake.Amount
		} else {
			result.LosePool += stake.Amount
		}
	}

	payouts := distributePool(winning, result.WinPool, result.LosePool, s.policy)

	for i, stake := range winning {
		payout := payouts[i]
		if err := s.stakeRepo.Resolve(ctx, exec, stake.ID, models.StakeOutcomeWon, payout); err != nil {
			return nil, mapRepoError(err)
		}
		stake.Outcome = models.StakeOutcomeWon
		stake.Payout = payout

		if _, err := s.ledger.Credit(ctx, exec, stake.UserID, payout, models.TransactionStakeWon, &matchID, "match winnings distribution"); err != nil {
			return nil, err
		}

		result.TotalPaid += payout
		result.winnerUserIDs = append(result.winnerUserIDs, stake.UserID)
	}

	for _, stake := range stakes {
		if stake.TeamID == winnerID {
			continue
		}
		if err := s.stakeRepo.Resolve(ctx, exec, stake.ID, models.StakeOutcomeLost, 0); err != nil {
			return nil, mapRepoError(err)
		}
		stake.Outcome = models.StakeOutcomeLost
		stake.Payout = 0
		// Сумма проигравшей ставки списана при размещении, здесь кредита нет.
	}

	// При winPool == 0 сюда попадает весь пул проигравших: некому распределять.
	result.Remainder = result.WinPool + result.LosePool - result.TotalPaid

	if err := s.notificationRepo.CreateBatch(ctx, exec, settlementNotifications(result)); err != nil {
		return nil, fmt.Errorf("failed to create settlement notifications: %w", err)
	}

	return result, nil
}

// distributePool считает выплаты по выигравшим ставкам:
// payout = floor(amount + amount/winPool*losePool). Остаток от floor либо
// остаётся нераспределённым (house), либо уходит крупнейшей ставке.
func distributePool(winning []*models.Stake, winPool, losePool int, policy RemainderPolicy) []int {
	payouts := make([]int, len(winning))
	if winPool <= 0 {
		return payouts
	}

	total := 0
	largest := 0
	for i, stake := range winning {
		share := int(int64(stake.Amount) * int64(losePool) / int64(winPool))
		payouts[i] = stake.Amount + share
		total += payouts[i]
		// При равных суммах остаток получает более ранняя ставка.
		if stake.Amount > winning[largest].Amount {
			largest = i
		}
	}

	if policy == RemainderLargestStake {
		payouts[largest] += winPool + losePool - total
	}
	return payouts
}

func settlementNotifications(result *SettlementResult) []*models.Notification {
	notifications := make([]*models.Notification, 0, len(result.winnerUserIDs)+2)

	for _, userID := range result.winnerUserIDs {
		notifications = append(notifications, &models.Notification{
			UserID:  userID,
			Title:   "You Won!",
			Message: fmt.Sprintf("Your stake on %s paid out. Check your transaction history.", result.WinnerTeam.Name),
			Type:    models.NotificationSuccess,
		})
	}

	notifications = append(notifications,
		&models.Notification{
			UserID:  result.WinnerTeam.CaptainID,
			Title:   "Match Won",
			Message: fmt.Sprintf("%s won the match vs %s.", result.WinnerTeam.Name, result.LoserTeam.Name),
			Type:    models.NotificationSuccess,
		},
		&models.Notification{
			UserID:  result.LoserTeam.CaptainID,
			Title:   "Match Lost",
			Message: fmt.Sprintf("%s lost the match vs %s.", result.LoserTeam.Name, result.WinnerTeam.Name),
			Type:    models.NotificationInfo,
		},
	)

	return notifications
}

// afterCommit - шаг 10: инвалидация кэша, трансляции и архив. Любой отказ
// здесь логируется и не влияет на уже зафиксированный расчёт.
func (s *settlementService) afterCommit(ctx context.Context, result *SettlementResult) {
	match := result.Match

	if err := s.invalidator.InvalidateMatch(ctx, match.EventID, match.ID, result.touchedUsers); err != nil {
		s.logger.Warn("cache invalidation failed after settlement",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	}

	if err := s.publisher.PublishMatchSettled(events.MatchSettledPayload{
		MatchID:     match.ID,
		EventID:     match.EventID,
		WinnerID:    result.WinnerTeam.ID,
		LoserID:     result.LoserTeam.ID,
		WinPool:     result.WinPool,
		LosePool:    result.LosePool,
		TotalPaid:   result.TotalPaid,
		Remainder:   result.Remainder,
		WinnerUsers: result.winnerUserIDs,
		SettledAt:   result.SettledAt,
	}); err != nil {
		s.logger.Warn("failed to publish settlement event",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	}

	s.hub.BroadcastToRoom(live.EventRoom(match.EventID), live.MessageMatchSettled, result)

	s.archiveReport(ctx, result)
}

func (s *settlementService) archiveReport(ctx context.Context, result *SettlementResult) {
	if s.uploader == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to marshal settlement report",
			slog.Int("match_id", result.Match.ID), slog.Any("error", err))
		return
	}

	key := fmt.Sprintf("settlements/%d/match-%d.json", result.Match.EventID, result.Match.ID)
	if _, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(data)); err != nil {
		s.logger.Warn("failed to archive settlement report",
			slog.Int("match_id", result.Match.ID), slog.Any("error", err))
		return
	}
	s.logger.Info("settlement report archived",
		slog.Int("match_id", result.Match.ID), slog.String("key", key))
}
