package models

import "time"

type StakeOutcome string

const (
	StakeOutcomePending StakeOutcome = "pending"
	StakeOutcomeWon     StakeOutcome = "won"
	StakeOutcomeLost    StakeOutcome = "lost"
	// refunded выставляется только при отмене матча, чтобы возвращённая ставка
	// оставалась отличимой от ожидающей в истории пользователя.
	StakeOutcomeRefunded StakeOutcome = "refunded"
)

// Stake - ставка пользователя на одну из сторон матча.
// Outcome и Payout выставляются ровно один раз, только при расчёте или отмене.
type Stake struct {
	ID        int          `json:"id" db:"id"`
	UserID    int          `json:"user_id" db:"user_id"`
	MatchID   int          `json:"match_id" db:"match_id"`
	TeamID    int          `json:"team_id" db:"team_id"`
	Amount    int          `json:"amount" db:"amount"`
	Outcome   StakeOutcome `json:"outcome" db:"outcome"`
	Payout    int          `json:"payout" db:"payout"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`

	Team  *Team  `json:"team,omitempty" db:"-"`
	Match *Match `json:"match,omitempty" db:"-"`
}

// TeamPool - агрегат ставок по одной стороне матча.
type TeamPool struct {
	TeamID int `json:"team_id"`
	Total  int `json:"total_invested"`
	Count  int `json:"total_investors"`
}
