package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusarena/arena-system/models"
)

func TestScheduleMatch(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	env.store.addEvent(1, 3)
	env.store.addTeam(10, 1, 100, 3, "Alpha")
	env.store.addTeam(20, 1, 200, 3, "Beta")

	venue := "Main Hall"
	match, err := env.match.Schedule(context.Background(), ScheduleMatchInput{
		EventID:   1,
		TeamAID:   10,
		TeamBID:   20,
		Round:     models.RoundSemi,
		Venue:     &venue,
		StartTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if match.ID == 0 {
		t.Error("match ID not assigned")
	}
	if match.Status != models.MatchStatusScheduled {
		t.Errorf("status = %s, want scheduled", match.Status)
	}

	// Оба капитана получают уведомление о назначенном матче.
	notifRepo := &memNotificationRepo{s: env.store}
	for _, captainID := range []int{100, 200} {
		inbox, _ := notifRepo.ListByUser(context.Background(), captainID, false)
		if len(inbox) != 1 {
			t.Errorf("captain %d notifications = %d, want 1", captainID, len(inbox))
		}
	}
}

func TestScheduleMatchValidation(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	env.store.addEvent(1, 3)
	env.store.addEvent(2, 3)
	env.store.addTeam(10, 1, 100, 3, "Alpha")
	env.store.addTeam(20, 1, 200, 3, "Beta")
	env.store.addTeam(30, 2, 300, 3, "Gamma")

	tests := []struct {
		name    string
		input   ScheduleMatchInput
		wantErr error
	}{
		{
			name:    "same team twice",
			input:   ScheduleMatchInput{EventID: 1, TeamAID: 10, TeamBID: 10},
			wantErr: ErrSameTeamTwice,
		},
		{
			name:    "unknown round",
			input:   ScheduleMatchInput{EventID: 1, TeamAID: 10, TeamBID: 20, Round: "playoffs"},
			wantErr: ErrRoundInvalid,
		},
		{
			name:    "missing event",
			input:   ScheduleMatchInput{EventID: 9, TeamAID: 10, TeamBID: 20},
			wantErr: ErrEventNotFound,
		},
		{
			name:    "missing team",
			input:   ScheduleMatchInput{EventID: 1, TeamAID: 10, TeamBID: 99},
			wantErr: ErrTeamNotFound,
		},
		{
			name:    "team from another event",
			input:   ScheduleMatchInput{EventID: 1, TeamAID: 10, TeamBID: 30},
			wantErr: ErrTeamsFromOtherEvent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.match.Schedule(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Schedule error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartMatchClosesStakeWindow(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	match := env.seedMatch(models.MatchStatusScheduled, models.RoundNone)
	env.store.addUser(1, 100)

	started, err := env.match.Start(context.Background(), match.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != models.MatchStatusLive {
		t.Errorf("status = %s, want live", started.Status)
	}

	// После старта размещение отклоняется.
	_, err = env.stake.PlaceStake(context.Background(), 1, PlaceStakeInput{
		MatchID: match.ID, TeamID: 10, Amount: 50,
	})
	if !errors.Is(err, ErrMatchNotOpen) {
		t.Errorf("PlaceStake error = %v, want ErrMatchNotOpen", err)
	}
}

func TestStartMatchTwiceRejected(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	match := env.seedMatch(models.MatchStatusScheduled, models.RoundNone)

	if _, err := env.match.Start(context.Background(), match.ID); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, err := env.match.Start(context.Background(), match.ID)
	if !errors.Is(err, ErrInvalidMatchTransition) {
		t.Errorf("second Start error = %v, want ErrInvalidMatchTransition", err)
	}
}

func TestStartMissingMatch(t *testing.T) {
	env := newTestEnv(RemainderHouse)

	_, err := env.match.Start(context.Background(), 42)
	if !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Start error = %v, want ErrMatchNotFound", err)
	}
}

func TestRecordScoreOnlyWhileLive(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	match := env.seedMatch(models.MatchStatusScheduled, models.RoundNone)

	err := env.match.RecordScore(context.Background(), match.ID, "1", "0")
	if !errors.Is(err, ErrInvalidMatchTransition) {
		t.Fatalf("RecordScore on scheduled = %v, want ErrInvalidMatchTransition", err)
	}

	if _, err := env.match.Start(context.Background(), match.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := env.match.RecordScore(context.Background(), match.ID, "2", "1"); err != nil {
		t.Fatalf("RecordScore on live: %v", err)
	}

	m, _ := env.match.GetByID(context.Background(), match.ID)
	if m.ScoreA == nil || *m.ScoreA != "2" || m.ScoreB == nil || *m.ScoreB != "1" {
		t.Errorf("scores = %v/%v, want 2/1", m.ScoreA, m.ScoreB)
	}
}

func TestCancelMatchRefundsPendingStakes(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	match := env.seedMatch(models.MatchStatusScheduled, models.RoundNone)
	env.store.addUser(1, 100)
	env.store.addUser(2, 100)

	placeStake(t, env, 1, match.ID, 10, 40)
	placeStake(t, env, 2, match.ID, 20, 60)

	if err := env.match.Cancel(context.Background(), match.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	userRepo := &memUserRepo{s: env.store}
	for _, userID := range []int{1, 2} {
		u, _ := userRepo.GetByID(context.Background(), userID)
		if u.Points != 100 {
			t.Errorf("user %d balance = %d, want 100 after refund", userID, u.Points)
		}
	}

	stakes, _ := (&memStakeRepo{s: env.store}).ListByMatch(context.Background(), nil, match.ID)
	for _, stake := range stakes {
		if stake.Outcome != models.StakeOutcomeRefunded {
			t.Errorf("stake %d outcome = %s, want refunded", stake.ID, stake.Outcome)
		}
	}

	// Возврат виден в журнале отдельной записью.
	txns, _ := (&memTransactionRepo{s: env.store}).ListByUser(context.Background(), 1)
	if len(txns) != 2 {
		t.Fatalf("user 1 transactions = %d, want 2 (debit + refund)", len(txns))
	}
	if txns[1].Kind != models.TransactionStakeRefund || txns[1].Points != 40 {
		t.Errorf("refund entry = %s/%d, want stake_refund/40", txns[1].Kind, txns[1].Points)
	}

	m, _ := env.match.GetByID(context.Background(), match.ID)
	if m.Status != models.MatchStatusCanceled {
		t.Errorf("match status = %s, want canceled", m.Status)
	}
}

func TestCancelCompletedMatchRejected(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	match := env.seedMatch(models.MatchStatusScheduled, models.RoundNone)

	if _, err := env.settlement.Settle(context.Background(), match.ID, 10); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	err := env.match.Cancel(context.Background(), match.ID)
	if !errors.Is(err, ErrMatchAlreadySettled) {
		t.Errorf("Cancel after settle = %v, want ErrMatchAlreadySettled", err)
	}
}

func TestCancelTwiceRejected(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	match := env.seedMatch(models.MatchStatusLive, models.RoundNone)

	if err := env.match.Cancel(context.Background(), match.ID); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	err := env.match.Cancel(context.Background(), match.ID)
	if !errors.Is(err, ErrInvalidMatchTransition) {
		t.Errorf("second Cancel = %v, want ErrInvalidMatchTransition", err)
	}
}

func TestListByEventFilters(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	env.store.addEvent(1, 3)
	env.store.addTeam(10, 1, 100, 3, "Alpha")
	env.store.addTeam(20, 1, 200, 3, "Beta")
	env.store.addMatch(&models.Match{EventID: 1, TeamAID: 10, TeamBID: 20, Round: models.RoundQuarter})
	env.store.addMatch(&models.Match{EventID: 1, TeamAID: 10, TeamBID: 20, Round: models.RoundSemi})
	env.store.addMatch(&models.Match{EventID: 2, TeamAID: 10, TeamBID: 20, Round: models.RoundQuarter})

	all, err := env.match.ListByEvent(context.Background(), 1, nil, nil)
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all matches = %d, want 2", len(all))
	}

	quarter := models.RoundQuarter
	filtered, err := env.match.ListByEvent(context.Background(), 1, &quarter, nil)
	if err != nil {
		t.Fatalf("ListByEvent with round: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Round != models.RoundQuarter {
		t.Errorf("filtered matches = %d, want 1 quarter match", len(filtered))
	}
}
