package models

import "time"

type TransactionKind string

const (
	TransactionStakePlaced  TransactionKind = "stake_placed"
	TransactionStakeWon     TransactionKind = "stake_won"
	TransactionStakeRefund  TransactionKind = "stake_refund"
	TransactionManualAdjust TransactionKind = "manual_adjust"
)

// Transaction - неизменяемая запись одного изменения баланса.
// Пишется только сервисом леджера внутри активной транзакции.
type Transaction struct {
	ID        int             `json:"id" db:"id"`
	UserID    int             `json:"user_id" db:"user_id"`
	Kind      TransactionKind `json:"kind" db:"kind"`
	Points    int             `json:"points" db:"points"` // со знаком: дебет < 0, кредит > 0
	MatchID   *int            `json:"match_id,omitempty" db:"match_id"`
	Note      string          `json:"note" db:"note"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
