package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusarena/arena-system/models"
)

var ErrTransactionUserInvalid = errors.New("transaction user conflict or invalid")

// TransactionRepository - append-only журнал изменений баланса.
// Update/Delete намеренно отсутствуют.
type TransactionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, txn *models.Transaction) error
	ListByUser(ctx context.Context, userID int) ([]*models.Transaction, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.Transaction, error)
}

type postgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) TransactionRepository {
	return &postgresTransactionRepository{db: db}
}

func (r *postgresTransactionRepository) Create(ctx context.Context, exec SQLExecutor, txn *models.Transaction) error {
	if exec == nil {
		exec = r.db
	}

	query := `
		INSERT INTO transactions (user_id, kind, points, match_id, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return exec.QueryRowContext(ctx, query,
		txn.UserID,
		txn.Kind,
		txn.Points,
		txn.MatchID,
		txn.Note,
	).Scan(&txn.ID, &txn.CreatedAt)
}

func (r *postgresTransactionRepository) ListByUser(ctx context.Context, userID int) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, kind, points, match_id, note, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *postgresTransactionRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, kind, points, match_id, note, created_at
		FROM transactions
		WHERE match_id = $1
		ORDER BY id ASC`
	return r.list(ctx, query, matchID)
}

func (r *postgresTransactionRepository) list(ctx context.Context, query string, arg interface{}) ([]*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*models.Transaction, 0)
	for rows.Next() {
		txn := &models.Transaction{}
		if scanErr := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Kind,
			&txn.Points,
			&txn.MatchID,
			&txn.Note,
			&txn.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		txns = append(txns, txn)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}
