package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusarena/arena-system/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamEventInvalid = errors.New("team event conflict or invalid")
)

type TeamRepository interface {
	GetByID(ctx context.Context, id int) (*models.Team, error)
	// GetByIDForUpdate блокирует строку команды на время транзакции расчёта,
	// чтобы два параллельных расчёта не потеряли декремент жизней.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	ListByEvent(ctx context.Context, eventID int, onlyActive bool) ([]*models.Team, error)
	// UpdateStanding сохраняет состояние сетки: жизни, вылет, стадию и ранг.
	UpdateStanding(ctx context.Context, exec SQLExecutor, team *models.Team) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, event_id, name, captain_id, lives, eliminated, highest_round, rank, created_at`

func scanTeam(row *sql.Row) (*models.Team, error) {
	team := &models.Team{}
	err := row.Scan(
		&team.ID,
		&team.EventID,
		&team.Name,
		&team.CaptainID,
		&team.Lives,
		&team.Eliminated,
		&team.HighestRound,
		&team.Rank,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return scanTeam(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1 FOR UPDATE`
	return scanTeam(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) ListByEvent(ctx context.Context, eventID int, onlyActive bool) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE event_id = $1`
	if onlyActive {
		query += ` AND eliminated = FALSE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team := &models.Team{}
		if scanErr := rows.Scan(
			&team.ID,
			&team.EventID,
			&team.Name,
			&team.CaptainID,
			&team.Lives,
			&team.Eliminated,
			&team.HighestRound,
			&team.Rank,
			&team.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, team)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) UpdateStanding(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	if exec == nil {
		exec = r.db
	}

	query := `
		UPDATE teams
		SET lives = $1, eliminated = $2, highest_round = $3, rank = $4
		WHERE id = $5`

	result, err := exec.ExecContext(ctx, query,
		team.Lives,
		team.Eliminated,
		team.HighestRound,
		team.Rank,
		team.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrTeamEventInvalid
		}
		return err
	}

	return checkAffectedRows(result, ErrTeamNotFound)
}
