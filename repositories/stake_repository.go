package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusarena/arena-system/models"
	"github.com/lib/pq"
)

var (
	ErrStakeNotFound     = errors.New("stake not found")
	ErrStakeMatchInvalid = errors.New("stake match conflict or invalid")
	ErrStakeTeamInvalid  = errors.New("stake team conflict or invalid")
	// ErrStakeAlreadyResolved - попытка выставить исход ставки повторно.
	ErrStakeAlreadyResolved = errors.New("stake outcome already resolved")
)

type StakeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, stake *models.Stake) error
	// ListByMatch читает ставки матча; с executor'ом транзакции расчёта -
	// под её изоляцией, только зафиксированные размещения.
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Stake, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Stake, error)
	// AggregateByTeam - суммы и количество ставок по сторонам матча.
	AggregateByTeam(ctx context.Context, matchID int) ([]models.TeamPool, error)
	// Resolve выставляет outcome/payout ровно один раз: условие outcome='pending'
	// в WHERE делает повторный расчёт невозможным на уровне строки.
	Resolve(ctx context.Context, exec SQLExecutor, stakeID int, outcome models.StakeOutcome, payout int) error
}

type postgresStakeRepository struct {
	db *sql.DB
}

func NewPostgresStakeRepository(db *sql.DB) StakeRepository {
	return &postgresStakeRepository{db: db}
}

const stakeColumns = `id, user_id, match_id, team_id, amount, outcome, payout, created_at`

func (r *postgresStakeRepository) Create(ctx context.Context, exec SQLExecutor, stake *models.Stake) error {
	if exec == nil {
		exec = r.db
	}

	query := `
		INSERT INTO stakes (user_id, match_id, team_id, amount, outcome, payout)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		stake.UserID,
		stake.MatchID,
		stake.TeamID,
		stake.Amount,
		stake.Outcome,
		stake.Payout,
	).Scan(&stake.ID, &stake.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "stakes_match_id_fkey":
				return ErrStakeMatchInvalid
			case "stakes_team_id_fkey":
				return ErrStakeTeamInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresStakeRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Stake, error) {
	if exec == nil {
		exec = r.db
	}

	query := `SELECT ` + stakeColumns + ` FROM stakes WHERE match_id = $1 ORDER BY id ASC`
	rows, err := exec.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStakes(rows)
}

func (r *postgresStakeRepository) ListByUser(ctx context.Context, userID int) ([]*models.Stake, error) {
	query := `SELECT ` + stakeColumns + ` FROM stakes WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStakes(rows)
}

func scanStakes(rows *sql.Rows) ([]*models.Stake, error) {
	stakes := make([]*models.Stake, 0)
	for rows.Next() {
		stake := &models.Stake{}
		if err := rows.Scan(
			&stake.ID,
			&stake.UserID,
			&stake.MatchID,
			&stake.TeamID,
			&stake.Amount,
			&stake.Outcome,
			&stake.Payout,
			&stake.CreatedAt,
		); err != nil {
			return nil, err
		}
		stakes = append(stakes, stake)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stakes, nil
}

func (r *postgresStakeRepository) AggregateByTeam(ctx context.Context, matchID int) ([]models.TeamPool, error) {
	query := `
		SELECT team_id, COALESCE(SUM(amount), 0), COUNT(*)
		FROM stakes
		WHERE match_id = $1
		GROUP BY team_id`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pools := make([]models.TeamPool, 0, 2)
	for rows.Next() {
		var pool models.TeamPool
		if scanErr := rows.Scan(&pool.TeamID, &pool.Total, &pool.Count); scanErr != nil {
			return nil, scanErr
		}
		pools = append(pools, pool)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return pools, nil
}

func (r *postgresStakeRepository) Resolve(ctx context.Context, exec SQLExecutor, stakeID int, outcome models.StakeOutcome, payout int) error {
	if exec == nil {
		exec = r.db
	}

	query := `
		UPDATE stakes
		SET outcome = $1, payout = $2
		WHERE id = $3 AND outcome = $4`

	result, err := exec.ExecContext(ctx, query, outcome, payout, stakeID, models.StakeOutcomePending)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStakeAlreadyResolved)
}
