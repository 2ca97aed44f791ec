package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCanceled  MatchStatus = "canceled"
)

// validMatchTransitions описывает допустимые переходы статусов матча.
// Завершение идёт только через settlement, повторное завершение невозможно.
var validMatchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusScheduled: {MatchStatusLive, MatchStatusCompleted, MatchStatusCanceled},
	MatchStatusLive:      {MatchStatusCompleted, MatchStatusCanceled},
	MatchStatusCompleted: {},
	MatchStatusCanceled:  {},
}

// CanTransitionTo проверяет переход по таблице, а не разбросанными условиями.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	for _, allowed := range validMatchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCanceled
}

type Match struct {
	ID        int         `json:"id" db:"id"`
	EventID   int         `json:"event_id" db:"event_id"`
	TeamAID   int         `json:"team_a_id" db:"team_a_id"`
	TeamBID   int         `json:"team_b_id" db:"team_b_id"`
	Status    MatchStatus `json:"status" db:"status"`
	ScoreA    *string     `json:"score_a,omitempty" db:"score_a"`
	ScoreB    *string     `json:"score_b,omitempty" db:"score_b"`
	WinnerID  *int        `json:"winner_id,omitempty" db:"winner_id"`
	Round     Round       `json:"round" db:"round"`
	Venue     *string     `json:"venue,omitempty" db:"venue"`
	StartTime time.Time   `json:"start_time" db:"start_time"`
	EndTime   *time.Time  `json:"end_time,omitempty" db:"end_time"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	TeamA *Team `json:"team_a,omitempty" db:"-"`
	TeamB *Team `json:"team_b,omitempty" db:"-"`
}

// HasSide сообщает, выставлена ли команда на одну из сторон матча.
func (m *Match) HasSide(teamID int) bool {
	return teamID == m.TeamAID || teamID == m.TeamBID
}

// OpponentOf возвращает id второй стороны. Вызывающий обязан проверить HasSide.
func (m *Match) OpponentOf(teamID int) int {
	if teamID == m.TeamAID {
		return m.TeamBID
	}
	return m.TeamAID
}
