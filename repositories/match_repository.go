package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/campusarena/arena-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchEventInvalid = errors.New("match event conflict or invalid")
	ErrMatchTeamInvalid  = errors.New("match team conflict or invalid")
	// ErrMatchStatusConflict сигнализирует, что условный UPDATE статуса не нашёл
	// строку в ожидаемом состоянии - матч уже ушёл дальше по жизненному циклу.
	ErrMatchStatusConflict = errors.New("match is not in the expected status")
)

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// GetByIDForUpdate - первая операция внутри транзакции расчёта: блокировка строки
	// матча и есть точка линеаризации для конкурирующих вызовов settle.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForShare берёт разделяемую блокировку: размещение ставки читает
	// актуальный статус и не даёт startMatch проскочить между проверкой и вставкой.
	GetByIDForShare(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByEvent(ctx context.Context, eventID int, round *models.Round, status *models.MatchStatus) ([]*models.Match, error)
	// MarkLive переводит scheduled -> live одним условным UPDATE.
	MarkLive(ctx context.Context, id int, startTime time.Time) error
	UpdateScore(ctx context.Context, id int, scoreA, scoreB string) error
	MarkCompleted(ctx context.Context, exec SQLExecutor, id int, winnerID int, scoreA, scoreB *string, endTime time.Time) error
	MarkCanceled(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, event_id, team_a_id, team_b_id, status, score_a, score_b, winner_id, round, venue, start_time, end_time, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches
			(event_id, team_a_id, team_b_id, status, round, venue, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		match.EventID,
		match.TeamAID,
		match.TeamBID,
		match.Status,
		match.Round,
		match.Venue,
		match.StartTime,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func scanMatch(row *sql.Row) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.EventID,
		&match.TeamAID,
		&match.TeamBID,
		&match.Status,
		&match.ScoreA,
		&match.ScoreB,
		&match.WinnerID,
		&match.Round,
		&match.Venue,
		&match.StartTime,
		&match.EndTime,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return scanMatch(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForShare(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR SHARE`
	return scanMatch(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByEvent(ctx context.Context, eventID int, roundFilter *models.Round, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE event_id = $1`)

	args := []interface{}{eventID}
	placeholderIndex := 2

	if roundFilter != nil {
		queryBuilder.WriteString(" AND round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *roundFilter)
		placeholderIndex++
	}

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
		placeholderIndex++
	}

	queryBuilder.WriteString(" ORDER BY start_time DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match := &models.Match{}
		if scanErr := rows.Scan(
			&match.ID,
			&match.EventID,
			&match.TeamAID,
			&match.TeamBID,
			&match.Status,
			&match.ScoreA,
			&match.ScoreB,
			&match.WinnerID,
			&match.Round,
			&match.Venue,
			&match.StartTime,
			&match.EndTime,
			&match.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) MarkLive(ctx context.Context, id int, startTime time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, start_time = $2
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query,
		models.MatchStatusLive, startTime, id, models.MatchStatusScheduled)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) UpdateScore(ctx context.Context, id int, scoreA, scoreB string) error {
	query := `
		UPDATE matches
		SET score_a = $1, score_b = $2
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, scoreA, scoreB, id, models.MatchStatusLive)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id int, winnerID int, scoreA, scoreB *string, endTime time.Time) error {
	if exec == nil {
		exec = r.db
	}

	// Условие на статус дублирует guard оркестратора: даже при ошибке в
	// вызывающем коде завершённый матч не перезаписывается.
	query := `
		UPDATE matches
		SET status = $1, winner_id = $2,
		    score_a = COALESCE($3, score_a), score_b = COALESCE($4, score_b),
		    end_time = $5
		WHERE id = $6 AND status NOT IN ($7, $8)`

	result, err := exec.ExecContext(ctx, query,
		models.MatchStatusCompleted, winnerID, scoreA, scoreB, endTime,
		id, models.MatchStatusCompleted, models.MatchStatusCanceled)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) MarkCanceled(ctx context.Context, exec SQLExecutor, id int) error {
	if exec == nil {
		exec = r.db
	}

	query := `
		UPDATE matches
		SET status = $1, end_time = NOW()
		WHERE id = $2 AND status NOT IN ($3, $4)`

	result, err := exec.ExecContext(ctx, query,
		models.MatchStatusCanceled, id, models.MatchStatusCompleted, models.MatchStatusCanceled)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" { // foreign_key_violation
			switch pqErr.Constraint {
			case "matches_event_id_fkey":
				return ErrMatchEventInvalid
			case "matches_team_a_id_fkey", "matches_team_b_id_fkey", "matches_winner_id_fkey":
				return ErrMatchTeamInvalid
			}
		}
	}
	return err
}
