package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusarena/arena-system/cache"
	"github.com/campusarena/arena-system/db"
	"github.com/campusarena/arena-system/events"
	"github.com/campusarena/arena-system/live"
	"github.com/campusarena/arena-system/models"
	"github.com/campusarena/arena-system/repositories"
)

type ScheduleMatchInput struct {
	EventID   int          `json:"event_id"`
	TeamAID   int          `json:"team_a_id"`
	TeamBID   int          `json:"team_b_id"`
	Round     models.Round `json:"round"`
	Venue     *string      `json:"venue,omitempty"`
	StartTime time.Time    `json:"start_time"`
}

// MatchService владеет машиной состояний матча. Завершение с выплатами
// живёт отдельно, в SettlementService.
type MatchService interface {
	Schedule(ctx context.Context, input ScheduleMatchInput) (*models.Match, error)
	Start(ctx context.Context, matchID int) (*models.Match, error)
	RecordScore(ctx context.Context, matchID int, scoreA, scoreB string) error
	// Cancel отменяет матч и возвращает все ожидающие ставки одной транзакцией.
	Cancel(ctx context.Context, matchID int) error
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByEvent(ctx context.Context, eventID int, round *models.Round, status *models.MatchStatus) ([]*models.Match, error)
}

type matchService struct {
	txRunner         db.TxRunner
	matchRepo        repositories.MatchRepository
	teamRepo         repositories.TeamRepository
	eventRepo        repositories.EventRepository
	stakeRepo        repositories.StakeRepository
	notificationRepo repositories.NotificationRepository
	ledger           LedgerService

	invalidator cache.Invalidator
	publisher   events.Publisher
	hub         *live.Hub
	logger      *slog.Logger
}

func NewMatchService(
	txRunner db.TxRunner,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	eventRepo repositories.EventRepository,
	stakeRepo repositories.StakeRepository,
	notificationRepo repositories.NotificationRepository,
	ledger LedgerService,
	invalidator cache.Invalidator,
	publisher events.Publisher,
	hub *live.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txRunner:         txRunner,
		matchRepo:        matchRepo,
		teamRepo:         teamRepo,
		eventRepo:        eventRepo,
		stakeRepo:        stakeRepo,
		notificationRepo: notificationRepo,
		ledger:           ledger,
		invalidator:      invalidator,
		publisher:        publisher,
		hub:              hub,
		logger:           logger,
	}
}

func (s *matchService) Schedule(ctx context.Context, input ScheduleMatchInput) (*models.Match, error) {
	if input.TeamAID == input.TeamBID {
		return nil, ErrSameTeamTwice
	}
	if input.Round == "" {
		input.Round = models.RoundNone
	}
	if !input.Round.Valid() {
		return nil, ErrRoundInvalid
	}

	if _, err := s.eventRepo.GetByID(ctx, input.EventID); err != nil {
		return nil, mapRepoError(err)
	}
	teamA, err := s.teamRepo.GetByID(ctx, input.TeamAID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	teamB, err := s.teamRepo.GetByID(ctx, input.TeamBID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if teamA.EventID != input.EventID || teamB.EventID != input.EventID {
		return nil, ErrTeamsFromOtherEvent
	}

	match := &models.Match{
		EventID:   input.EventID,
		TeamAID:   input.TeamAID,
		TeamBID:   input.TeamBID,
		Status:    models.MatchStatusScheduled,
		Round:     input.Round,
		Venue:     input.Venue,
		StartTime: input.StartTime,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		return nil, mapRepoError(err)
	}

	// Капитанов уведомляем после создания; отказ здесь матч не отменяет.
	venue := "TBD"
	if input.Venue != nil {
		venue = *input.Venue
	}
	notifications := []*models.Notification{
		{
			UserID:  teamA.CaptainID,
			Title:   "Match Scheduled",
			Message: fmt.Sprintf("Your match vs %s is set for %s at %s.", teamB.Name, input.StartTime.Format(time.RFC1123), venue),
			Type:    models.NotificationInfo,
		},
		{
			UserID:  teamB.CaptainID,
			Title:   "Match Scheduled",
			Message: fmt.Sprintf("Your match vs %s is set for %s at %s.", teamA.Name, input.StartTime.Format(time.RFC1123), venue),
			Type:    models.NotificationInfo,
		},
	}
	if err := s.notificationRepo.CreateBatch(ctx, nil, notifications); err != nil {
		s.logger.Warn("failed to create schedule notifications",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	}

	if err := s.invalidator.InvalidateMatch(ctx, match.EventID, match.ID, nil); err != nil {
		s.logger.Warn("cache invalidation failed after schedule",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	}

	return match, nil
}

// Start переводит матч в live и тем самым закрывает окно ставок: Stake Book
// сверяется со статусом, отдельного флага нет.
func (s *matchService) Start(ctx context.Context, matchID int) (*models.Match, error) {
	now := time.Now()
	if err := s.matchRepo.MarkLive(ctx, matchID, now); err != nil {
		if err == repositories.ErrMatchStatusConflict {
			// Либо матча нет, либо он не в scheduled - различаем для вызывающего.
			if _, getErr := s.matchRepo.GetByID(ctx, matchID); getErr != nil {
				return nil, mapRepoError(getErr)
			}
			return nil, ErrInvalidMatchTransition
		}
		return nil, mapRepoError(err)
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if err := s.invalidator.InvalidateMatch(ctx, match.EventID, match.ID, nil); err != nil {
		s.logger.Warn("cache invalidation failed after start",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	}
	if err := s.publisher.PublishMatchStarted(events.MatchStartedPayload{
		MatchID:   match.ID,
		EventID:   match.EventID,
		TeamAID:   match.TeamAID,
		TeamBID:   match.TeamBID,
		StartedAt: now,
	}); err != nil {
		s.logger.Warn("failed to publish match started event",
			slog.Int("match_id", match.ID), slog.Any("error", err))
	}
	s.hub.BroadcastToRoom(live.EventRoom(match.EventID), live.MessageMatchStarted, match)

	return match, nil
}

func (s *matchService) RecordScore(ctx context.Context, matchID int, scoreA, scoreB string) error {
	if err := s.matchRepo.UpdateScore(ctx, matchID, scoreA, scoreB); err != nil {
		if err == repositories.ErrMatchStatusConflict {
			if _, getErr := s.matchRepo.GetByID(ctx, matchID); getErr != nil {
				return mapRepoError(getErr)
			}
			return ErrInvalidMatchTransition
		}
		return mapRepoError(err)
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapRepoError(err)
	}
	s.hub.BroadcastToRoom(live.EventRoom(match.EventID), live.MessageScoreUpdated, match)
	return nil
}

func (s *matchService) Cancel(ctx context.Context, matchID int) error {
	var (
		eventID       int
		refundedUsers []int
	)

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if match.Status == models.MatchStatusCompleted {
			return ErrMatchAlreadySettled
		}
		if match.Status == models.MatchStatusCanceled {
			return ErrInvalidMatchTransition
		}
		eventID = match.EventID

		if err := s.matchRepo.MarkCanceled(ctx, exec, matchID); err != nil {
			return err
		}

		stakes, err := s.stakeRepo.ListByMatch(ctx, exec, matchID)
		if err != nil {
			return fmt.Errorf("failed to load stakes for match %d: %w", matchID, err)
		}

		notifications := make([]*models.Notification, 0, len(stakes))
		for _, stake := range stakes {
			if stake.Outcome != models.StakeOutcomePending {
				continue
			}
			if err := s.stakeRepo.Resolve(ctx, exec, stake.ID, models.StakeOutcomeRefunded, 0); err != nil {
				return err
			}
			if _, err := s.ledger.Credit(ctx, exec, stake.UserID, stake.Amount, models.TransactionStakeRefund, &matchID, "match canceled, stake refunded"); err != nil {
				return err
			}
			refundedUsers = append(refundedUsers, stake.UserID)
			notifications = append(notifications, &models.Notification{
				UserID:  stake.UserID,
				Title:   "Stake Refunded",
				Message: fmt.Sprintf("Match %d was canceled, your %d points were returned.", matchID, stake.Amount),
				Type:    models.NotificationWarning,
			})
		}

		return s.notificationRepo.CreateBatch(ctx, exec, notifications)
	})
	if err != nil {
		return mapRepoError(err)
	}

	if err := s.invalidator.InvalidateMatch(ctx, eventID, matchID, refundedUsers); err != nil {
		s.logger.Warn("cache invalidation failed after cancel",
			slog.Int("match_id", matchID), slog.Any("error", err))
	}
	if err := s.publisher.PublishMatchCanceled(events.MatchCanceledPayload{
		MatchID:       matchID,
		EventID:       eventID,
		RefundedCount: len(refundedUsers),
		CanceledAt:    time.Now(),
	}); err != nil {
		s.logger.Warn("failed to publish match canceled event",
			slog.Int("match_id", matchID), slog.Any("error", err))
	}
	s.hub.BroadcastToRoom(live.EventRoom(eventID), live.MessageMatchCanceled, map[string]int{"match_id": matchID})

	return nil
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return match, nil
}

func (s *matchService) ListByEvent(ctx context.Context, eventID int, round *models.Round, status *models.MatchStatus) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByEvent(ctx, eventID, round, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for event %d: %w", eventID, err)
	}
	return matches, nil
}
