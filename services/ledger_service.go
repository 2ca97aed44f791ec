package services

import (
	"context"
	"fmt"

	"github.com/campusarena/arena-system/db"
	"github.com/campusarena/arena-system/models"
	"github.com/campusarena/arena-system/repositories"
)

// LedgerService - единственная точка изменения балансов. Debit и Credit
// принимают executor вызывающего и не открывают собственных транзакций:
// изменение баланса и запись в журнал ложатся в ту же единицу работы,
// что и остальные мутации размещения или расчёта.
type LedgerService interface {
	Debit(ctx context.Context, exec repositories.SQLExecutor, userID, amount int, kind models.TransactionKind, matchID *int, note string) (int, error)
	Credit(ctx context.Context, exec repositories.SQLExecutor, userID, amount int, kind models.TransactionKind, matchID *int, note string) (int, error)
	AdminAdjust(ctx context.Context, userID, delta int, note string) (int, error)
	History(ctx context.Context, userID int) ([]*models.Transaction, error)
}

type ledgerService struct {
	txRunner        db.TxRunner
	userRepo        repositories.UserRepository
	transactionRepo repositories.TransactionRepository
}

func NewLedgerService(
	txRunner db.TxRunner,
	userRepo repositories.UserRepository,
	transactionRepo repositories.TransactionRepository,
) LedgerService {
	return &ledgerService{
		txRunner:        txRunner,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
	}
}

func (s *ledgerService) Debit(ctx context.Context, exec repositories.SQLExecutor, userID, amount int, kind models.TransactionKind, matchID *int, note string) (int, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	return s.apply(ctx, exec, userID, -amount, kind, matchID, note)
}

func (s *ledgerService) Credit(ctx context.Context, exec repositories.SQLExecutor, userID, amount int, kind models.TransactionKind, matchID *int, note string) (int, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	return s.apply(ctx, exec, userID, amount, kind, matchID, note)
}

// AdminAdjust - ручная корректировка: delta может быть любого знака,
// но итоговый баланс ниже нуля всё равно отклоняется.
func (s *ledgerService) AdminAdjust(ctx context.Context, userID, delta int, note string) (int, error) {
	if delta == 0 {
		return 0, ErrValidationFailed
	}
	if note == "" {
		note = "admin adjustment"
	}

	var balance int
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var applyErr error
		balance, applyErr = s.apply(ctx, exec, userID, delta, models.TransactionManualAdjust, nil, note)
		return applyErr
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *ledgerService) History(ctx context.Context, userID int) ([]*models.Transaction, error) {
	txns, err := s.transactionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for user %d: %w", userID, err)
	}
	return txns, nil
}

// apply меняет баланс и пишет журнальную запись одним махом. Журнал без
// изменения баланса (и наоборот) зафиксирован быть не может.
func (s *ledgerService) apply(ctx context.Context, exec repositories.SQLExecutor, userID, delta int, kind models.TransactionKind, matchID *int, note string) (int, error) {
	balance, err := s.userRepo.AdjustPoints(ctx, exec, userID, delta)
	if err != nil {
		return 0, mapRepoError(err)
	}

	txn := &models.Transaction{
		UserID:  userID,
		Kind:    kind,
		Points:  delta,
		MatchID: matchID,
		Note:    note,
	}
	if err := s.transactionRepo.Create(ctx, exec, txn); err != nil {
		return 0, fmt.Errorf("failed to append ledger entry for user %d: %w", userID, err)
	}

	return balance, nil
}
