package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"pblboard/api/internal/logger"
)

// Bus carries room messages between API instances.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	// Subscribe delivers every published message to onMsg until ctx ends.
	Subscribe(ctx context.Context, onMsg func(Message)) error
}

const defaultChannel = "pblboard:rooms"

type RedisBus struct {
	log     *logger.Logger
	rdb     *redis.Client
	channel string
}

func NewRedisBus(rdb *redis.Client, log *logger.Logger) *RedisBus {
	return &RedisBus{
		log:     logger.OrNop(log).With("component", "RedisBus"),
		rdb:     rdb,
		channel: defaultChannel,
	}
}

func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal room message: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish room message: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, onMsg func(Message)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("bad room message payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

// LocalBus delivers messages to subscribers in this process only.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[int]func(Message)
	next int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]func(Message))}
}

func (b *LocalBus) Publish(_ context.Context, msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(msg)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, onMsg func(Message)) error {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = onMsg
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}
