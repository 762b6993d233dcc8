package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const contentField = "boardContentJson"

// Storage keeps the latest persisted content blob per room.
type Storage interface {
	SetContent(ctx context.Context, room, contentJSON string) error
	// Content reports ok=false when the room has no stored content.
	Content(ctx context.Context, room string) (string, bool, error)
}

type RedisStorage struct {
	rdb *redis.Client
}

func NewRedisStorage(rdb *redis.Client) *RedisStorage {
	return &RedisStorage{rdb: rdb}
}

func storageKey(room string) string {
	return "room:" + room + ":storage"
}

func (s *RedisStorage) SetContent(ctx context.Context, room, contentJSON string) error {
	if err := s.rdb.HSet(ctx, storageKey(room), contentField, contentJSON).Err(); err != nil {
		return fmt.Errorf("store room content: %w", err)
	}
	return nil
}

func (s *RedisStorage) Content(ctx context.Context, room string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, storageKey(room), contentField).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read room content: %w", err)
	}
	return v, true, nil
}

type MemoryStorage struct {
	mu    sync.RWMutex
	rooms map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{rooms: make(map[string]string)}
}

func (s *MemoryStorage) SetContent(_ context.Context, room, contentJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = contentJSON
	return nil
}

func (s *MemoryStorage) Content(_ context.Context, room string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rooms[room]
	return v, ok, nil
}
