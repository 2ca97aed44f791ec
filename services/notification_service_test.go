package services

import (
	"context"
	"errors"
	"testing"

	"github.com/campusarena/arena-system/models"
)

func TestNotificationInbox(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	svc := NewNotificationService(&memNotificationRepo{s: env.store})
	repo := &memNotificationRepo{s: env.store}
	ctx := context.Background()

	first := &models.Notification{UserID: 1, Title: "A", Message: "first", Type: models.NotificationInfo}
	second := &models.Notification{UserID: 1, Title: "B", Message: "second", Type: models.NotificationSuccess}
	if err := repo.CreateBatch(ctx, nil, []*models.Notification{first, second}); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	inbox, err := svc.ListByUser(ctx, 1, false)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("inbox = %d, want 2", len(inbox))
	}

	if err := svc.MarkRead(ctx, inbox[0].ID, 1); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	unread, err := svc.ListByUser(ctx, 1, true)
	if err != nil {
		t.Fatalf("ListByUser unread: %v", err)
	}
	if len(unread) != 1 || unread[0].Title != "B" {
		t.Errorf("unread = %+v, want single notification B", unread)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	env := newTestEnv(RemainderHouse)
	svc := NewNotificationService(&memNotificationRepo{s: env.store})
	repo := &memNotificationRepo{s: env.store}
	ctx := context.Background()

	n := &models.Notification{UserID: 1, Title: "A", Message: "private", Type: models.NotificationInfo}
	if err := repo.Create(ctx, nil, n); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Чужое уведомление прочитать нельзя.
	err := svc.MarkRead(ctx, n.ID, 2)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkRead for wrong user = %v, want ErrNotFound", err)
	}
}
