package services

import (
	"context"
	"fmt"

	"github.com/campusarena/arena-system/models"
	"github.com/campusarena/arena-system/repositories"
)

// EventService - просмотр турниров. Создание и регистрация команд живут
// во внешнем сервисе, здесь только чтение.
type EventService interface {
	GetByID(ctx context.Context, eventID int) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
}

type eventService struct {
	eventRepo repositories.EventRepository
}

func NewEventService(eventRepo repositories.EventRepository) EventService {
	return &eventService{eventRepo: eventRepo}
}

func (s *eventService) GetByID(ctx context.Context, eventID int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return event, nil
}

func (s *eventService) List(ctx context.Context) ([]*models.Event, error) {
	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
