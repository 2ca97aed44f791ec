package events

import "time"

// Payload'ы событий, которые уходят внешним потребителям (доставка
// нотификаций, лидерборды). Ядро публикует их после commit.

type MatchStartedPayload struct {
	MatchID   int       `json:"match_id"`
	EventID   int       `json:"event_id"`
	TeamAID   int       `json:"team_a_id"`
	TeamBID   int       `json:"team_b_id"`
	StartedAt time.Time `json:"started_at"`
}

type MatchSettledPayload struct {
	MatchID     int       `json:"match_id"`
	EventID     int       `json:"event_id"`
	WinnerID    int       `json:"winner_id"`
	LoserID     int       `json:"loser_id"`
	WinPool     int       `json:"win_pool"`
	LosePool    int       `json:"lose_pool"`
	TotalPaid   int       `json:"total_paid"`
	Remainder   int       `json:"remainder"`
	WinnerUsers []int     `json:"winner_user_ids"`
	SettledAt   time.Time `json:"settled_at"`
}

type MatchCanceledPayload struct {
	MatchID       int       `json:"match_id"`
	EventID       int       `json:"event_id"`
	RefundedCount int       `json:"refunded_count"`
	CanceledAt    time.Time `json:"canceled_at"`
}
