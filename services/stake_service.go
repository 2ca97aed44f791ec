package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusarena/arena-system/cache"
	"github.com/campusarena/arena-system/db"
	"github.com/campusarena/arena-system/models"
	"github.com/campusarena/arena-system/repositories"
	"golang.org/x/sync/errgroup"
)

type PlaceStakeInput struct {
	MatchID int `json:"match_id"`
	TeamID  int `json:"team_id"`
	Amount  int `json:"amount"`
}

type PlaceStakeResult struct {
	Stake           *models.Stake `json:"stake"`
	RemainingPoints int           `json:"remaining_points"`
}

// MatchStats - публичный "текущий расклад" по матчу: пулы обеих сторон.
type MatchStats struct {
	MatchID int               `json:"match_id"`
	Teams   []models.TeamPool `json:"teams"`
}

// MatchSummary - карточка матча для UI: сам матч, пулы и список ставок.
type MatchSummary struct {
	Match  *models.Match   `json:"match"`
	Stats  *MatchStats     `json:"stats"`
	Stakes []*models.Stake `json:"stakes"`
}

// StakeService - книга ставок: размещение валидируется против статуса матча
// и баланса; дебет и вставка ставки фиксируются одной транзакцией.
type StakeService interface {
	PlaceStake(ctx context.Context, userID int, input PlaceStakeInput) (*PlaceStakeResult, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.Stake, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Stake, error)
	GetMatchStats(ctx context.Context, matchID int) (*MatchStats, error)
	GetMatchSummary(ctx context.Context, matchID int) (*MatchSummary, error)
}

type stakeService struct {
	txRunner  db.TxRunner
	matchRepo repositories.MatchRepository
	stakeRepo repositories.StakeRepository
	ledger    LedgerService

	invalidator cache.Invalidator
	logger      *slog.Logger
}

func NewStakeService(
	txRunner db.TxRunner,
	matchRepo repositories.MatchRepository,
	stakeRepo repositories.StakeRepository,
	ledger LedgerService,
	invalidator cache.Invalidator,
	logger *slog.Logger,
) StakeService {
	return &stakeService{
		txRunner:    txRunner,
		matchRepo:   matchRepo,
		stakeRepo:   stakeRepo,
		ledger:      ledger,
		invalidator: invalidator,
		logger:      logger,
	}
}

func (s *stakeService) PlaceStake(ctx context.Context, userID int, input PlaceStakeInput) (*PlaceStakeResult, error) {
	if input.Amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	var (
		result  *PlaceStakeResult
		eventID int
	)

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// FOR SHARE на строке матча: размещение, гонящееся со startMatch,
		// либо фиксируется до смены статуса, либо видит live и отклоняется.
		// Потерянного молча размещения быть не может.
		match, err := s.matchRepo.GetByIDForShare(ctx, exec, input.MatchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusScheduled {
			return ErrMatchNotOpen
		}
		if !match.HasSide(input.TeamID) {
			return ErrTeamNotInMatch
		}
		eventID = match.EventID

		balance, err := s.ledger.Debit(ctx, exec, userID, input.Amount, models.TransactionStakePlaced, &input.MatchID, "stake placed")
		if err != nil {
			return err
		}

		stake := &models.Stake{
			UserID:  userID,
			MatchID: input.MatchID,
			TeamID:  input.TeamID,
			Amount:  input.Amount,
			Outcome: models.StakeOutcomePending,
		}
		if err := s.stakeRepo.Create(ctx, exec, stake); err != nil {
			// Откат транзакции снимет и дебет: осиротевших списаний не бывает.
			return fmt.Errorf("failed to insert stake: %w", err)
		}

		result = &PlaceStakeResult{Stake: stake, RemainingPoints: balance}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	if err := s.invalidator.InvalidateMatch(ctx, eventID, input.MatchID, []int{userID}); err != nil {
		s.logger.Warn("cache invalidation failed after stake placement",
			slog.Int("match_id", input.MatchID), slog.Any("error", err))
	}

	return result, nil
}

func (s *stakeService) ListByMatch(ctx context.Context, matchID int) ([]*models.Stake, error) {
	stakes, err := s.stakeRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stakes for match %d: %w", matchID, err)
	}
	return stakes, nil
}

func (s *stakeService) ListByUser(ctx context.Context, userID int) ([]*models.Stake, error) {
	stakes, err := s.stakeRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stakes for user %d: %w", userID, err)
	}
	return stakes, nil
}

func (s *stakeService) GetMatchStats(ctx context.Context, matchID int) (*MatchStats, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return s.statsForMatch(ctx, match)
}

// GetMatchSummary собирает карточку матча параллельно.
func (s *stakeService) GetMatchSummary(ctx context.Context, matchID int) (*MatchSummary, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	summary := &MatchSummary{Match: match}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, statsErr := s.statsForMatch(gCtx, match)
		if statsErr != nil {
			return statsErr
		}
		summary.Stats = stats
		return nil
	})
	g.Go(func() error {
		stakes, listErr := s.stakeRepo.ListByMatch(gCtx, nil, match.ID)
		if listErr != nil {
			return fmt.Errorf("failed to list stakes for match %d: %w", match.ID, listErr)
		}
		summary.Stakes = stakes
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// statsForMatch гарантирует пары по обеим сторонам, даже если на одну из них
// ещё никто не ставил.
func (s *stakeService) statsForMatch(ctx context.Context, match *models.Match) (*MatchStats, error) {
	pools, err := s.stakeRepo.AggregateByTeam(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stakes for match %d: %w", match.ID, err)
	}

	bySide := map[int]models.TeamPool{
		match.TeamAID: {TeamID: match.TeamAID},
		match.TeamBID: {TeamID: match.TeamBID},
	}
	for _, pool := range pools {
		bySide[pool.TeamID] = pool
	}

	return &MatchStats{
		MatchID: match.ID,
		Teams: []models.TeamPool{
			bySide[match.TeamAID],
			bySide[match.TeamBID],
		},
	}, nil
}
