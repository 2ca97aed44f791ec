package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusarena/arena-system/models"
	"github.com/lib/pq"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, notification *models.Notification) error
	CreateBatch(ctx context.Context, exec SQLExecutor, notifications []*models.Notification) error
	ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id int, userID int) error
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, exec SQLExecutor, notification *models.Notification) error {
	if exec == nil {
		exec = r.db
	}

	query := `
		INSERT INTO notifications (user_id, title, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return exec.QueryRowContext(ctx, query,
		notification.UserID,
		notification.Title,
		notification.Message,
		notification.Type,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *postgresNotificationRepository) CreateBatch(ctx context.Context, exec SQLExecutor, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if exec == nil {
		exec = r.db
	}

	userIDs := make([]int, len(notifications))
	titles := make([]string, len(notifications))
	messages := make([]string, len(notifications))
	types := make([]string, len(notifications))
	for i, n := range notifications {
		userIDs[i] = n.UserID
		titles[i] = n.Title
		messages[i] = n.Message
		types[i] = string(n.Type)
	}

	// Одним запросом через unnest, чтобы батч не разваливался на N round-trip'ов.
	query := `
		INSERT INTO notifications (user_id, title, message, type)
		SELECT * FROM unnest($1::int[], $2::text[], $3::text[], $4::text[])`

	_, err := exec.ExecContext(ctx, query,
		pq.Array(userIDs), pq.Array(titles), pq.Array(messages), pq.Array(types))
	return err
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, read, created_at
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		if scanErr := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.Read,
			&n.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, id int, userID int) error {
	// userID в условии: чужую нотификацию пометить нельзя.
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}
