package cache

import (
	"context"
	"fmt"
)

// Invalidator - контракт с внешним read-кэшем: после зафиксированной мутации
// ядро сообщает, какие ключи устарели. Вызывается строго после commit; отказ
// инвалидации не откатывает расчёт (устаревший кэш восстановим, полурасчёт - нет).
type Invalidator interface {
	InvalidateMatch(ctx context.Context, eventID, matchID int, userIDs []int) error
	InvalidateUser(ctx context.Context, userID int) error
}

func matchKeys(eventID, matchID int, userIDs []int) []string {
	keys := []string{
		fmt.Sprintf("match:%d", matchID),
		fmt.Sprintf("match:%d:stats", matchID),
		fmt.Sprintf("event:%d:matches", eventID),
	}
	for _, id := range userIDs {
		keys = append(keys, userKeys(id)...)
	}
	return keys
}

func userKeys(userID int) []string {
	return []string{
		fmt.Sprintf("user:%d:stakes", userID),
		fmt.Sprintf("user:%d:transactions", userID),
	}
}

// NoopInvalidator используется, когда REDIS_URL не задан.
type NoopInvalidator struct{}

func (NoopInvalidator) InvalidateMatch(ctx context.Context, eventID, matchID int, userIDs []int) error {
	return nil
}

func (NoopInvalidator) InvalidateUser(ctx context.Context, userID int) error {
	return nil
}
