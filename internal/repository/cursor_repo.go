package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CursorRepository persists the change-feed sync cursor: one opaque string
// per calendar. It is the only durable state this service owns; everything
// else lives in the calendar provider.
type CursorRepository struct {
	client     *redis.Client
	calendarID string
}

func NewCursorRepository(client *redis.Client, calendarID string) *CursorRepository {
	return &CursorRepository{client: client, calendarID: calendarID}
}

func (r *CursorRepository) key() string {
	return fmt.Sprintf("synccursor:%s", r.calendarID)
}

// Get returns the stored cursor, or "" when none exists (first run or after
// the provider expired it).
func (r *CursorRepository) Get(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get sync cursor: %w", err)
	}
	return val, nil
}

func (r *CursorRepository) Set(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key(), token, 0).Err(); err != nil {
		return fmt.Errorf("set sync cursor: %w", err)
	}
	return nil
}

func (r *CursorRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("clear sync cursor: %w", err)
	}
	return nil
}
