package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"pblboard/api/internal/logger"
)

// Service publishes board updates to rooms and feeds the local hub from
// the bus.
type Service struct {
	bus     Bus
	storage Storage
	hub     *Hub
	log     *logger.Logger
}

func NewService(bus Bus, storage Storage, log *logger.Logger) *Service {
	log = logger.OrNop(log)
	return &Service{bus: bus, storage: storage, hub: NewHub(log), log: log.With("component", "Realtime")}
}

func (s *Service) Hub() *Hub {
	return s.hub
}

// Start forwards bus messages to the hub until ctx ends.
func (s *Service) Start(ctx context.Context) error {
	return s.bus.Subscribe(ctx, s.hub.Broadcast)
}

func (s *Service) publish(ctx context.Context, room string, event Event, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return s.bus.Publish(ctx, Message{Room: room, Event: event, Data: raw})
}

// PublishContent stores contentJSON as the room's latest content and
// announces it.
func (s *Service) PublishContent(ctx context.Context, room, contentJSON string) error {
	if err := s.storage.SetContent(ctx, room, contentJSON); err != nil {
		return err
	}
	return s.bus.Publish(ctx, Message{Room: room, Event: EventContent, Data: json.RawMessage(contentJSON)})
}

func (s *Service) LatestContent(ctx context.Context, room string) (string, bool, error) {
	return s.storage.Content(ctx, room)
}

func (s *Service) PublishPresence(ctx context.Context, room string, p Presence) error {
	return s.publish(ctx, room, EventPresence, p)
}

// PublishLessons tells the room that the board's lesson plans changed.
func (s *Service) PublishLessons(ctx context.Context, room, boardID string) error {
	return s.publish(ctx, room, EventLessons, map[string]string{"boardId": boardID})
}
