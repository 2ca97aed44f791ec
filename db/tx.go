package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/campusarena/arena-system/repositories"
)

// TxRunner - транзакционная граница, которую сервисы получают через инъекцию.
// Алгоритмы размещения и расчёта остаются storage-agnostic: вся работа с
// begin/commit/rollback живёт здесь, тесты подставляют свой runner.
type TxRunner interface {
	// WithinTx выполняет fn внутри одной атомарной единицы работы.
	// Любая ошибка fn откатывает всё; commit происходит только при nil.
	WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) (err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}
