package models

import "time"

type Team struct {
	ID           int       `json:"id" db:"id"`
	EventID      int       `json:"event_id" db:"event_id"`
	Name         string    `json:"name" db:"name"`
	CaptainID    int       `json:"captain_id" db:"captain_id"`
	Lives        int       `json:"lives" db:"lives"`
	Eliminated   bool      `json:"eliminated" db:"eliminated"`
	HighestRound Round     `json:"highest_round" db:"highest_round"`
	Rank         *int      `json:"rank,omitempty" db:"rank"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Captain *User `json:"captain,omitempty" db:"-"`
}
