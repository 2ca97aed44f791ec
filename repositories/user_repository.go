package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusarena/arena-system/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientPoints возвращается, когда дебет увёл бы баланс в минус.
	ErrInsufficientPoints = errors.New("insufficient points balance")
)

type UserRepository interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	// AdjustPoints атомарно меняет баланс на delta внутри executor'а вызывающего.
	// Отрицательный итоговый баланс отклоняется на уровне SQL, без clamp.
	AdjustPoints(ctx context.Context, exec SQLExecutor, id int, delta int) (int, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT id, name, email, role, points, created_at
		FROM users
		WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Points,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) AdjustPoints(ctx context.Context, exec SQLExecutor, id int, delta int) (int, error) {
	if exec == nil {
		exec = r.db
	}

	// Условие points + delta >= 0 в WHERE: при нехватке баланса строка не
	// обновляется и зафиксировать отрицательный баланс невозможно.
	query := `
		UPDATE users
		SET points = points + $1
		WHERE id = $2 AND points + $1 >= 0
		RETURNING points`

	var balance int
	err := exec.QueryRowContext(ctx, query, delta, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Либо пользователя нет, либо не хватило баланса - различаем.
			var exists bool
			checkErr := exec.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
			if checkErr != nil {
				return 0, checkErr
			}
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientPoints
		}
		return 0, err
	}
	return balance, nil
}
