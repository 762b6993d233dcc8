package app

import (
	"context"
	"net/http"
	"strings"

	"pblboard/api/internal/export"
	"pblboard/api/internal/rbac"
	"pblboard/api/internal/realtime"
)

func (s *Service) realtimeEnabled() error {
	if s.realtime == nil {
		return domainError(http.StatusServiceUnavailable, "REALTIME_DISABLED", "Realtime is not configured", nil)
	}
	return nil
}

// RealtimeIdentity hands out an anonymous presence name and color.
func (s *Service) RealtimeIdentity() realtime.Identity {
	return realtime.RandomIdentity()
}

// JoinBoardEvents registers the caller in the board's room. The caller must
// Leave the returned client when the stream ends.
func (s *Service) JoinBoardEvents(ctx context.Context, session Session, boardID string) (*realtime.Hub, *realtime.Client, error) {
	if err := s.realtimeEnabled(); err != nil {
		return nil, nil, err
	}
	b, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return nil, nil, err
	}
	hub := s.realtime.Hub()
	return hub, hub.Join(b.RealtimeRoom, session.UserID), nil
}

type PresenceInput struct {
	ClientID     string  `json:"clientId"`
	DisplayName  string  `json:"displayName"`
	AvatarColor  string  `json:"avatarColor" validate:"omitempty,hexcolor"`
	ActiveCellID *string `json:"activeCellId"`
}

func (s *Service) PublishPresence(ctx context.Context, session Session, boardID string, in PresenceInput) error {
	if err := s.realtimeEnabled(); err != nil {
		return err
	}
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	b, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = session.UserName
	}
	color := in.AvatarColor
	if color == "" {
		color = realtime.RandomIdentity().Color
	}
	return s.realtime.PublishPresence(ctx, b.RealtimeRoom, realtime.Presence{
		ClientID:     in.ClientID,
		DisplayName:  name,
		AvatarColor:  color,
		ActiveCellID: in.ActiveCellID,
	})
}

func (s *Service) exportEnabled() error {
	if s.exporter == nil {
		return domainError(http.StatusServiceUnavailable, "EXPORT_DISABLED", "Export is not configured", nil)
	}
	return nil
}

// ExportBoard renders the stored board after flushing pending saves.
func (s *Service) ExportBoard(ctx context.Context, session Session, req export.Request) (*export.Result, error) {
	if err := s.exportEnabled(); err != nil {
		return nil, err
	}
	if _, err := s.authorizeBoard(ctx, session, req.BoardID, rbac.ActionRead); err != nil {
		return nil, err
	}
	s.flushBoard(ctx, req.BoardID)
	return s.exporter.Export(ctx, req)
}

// UploadExport stores a rendered export and returns its download URL.
func (s *Service) UploadExport(ctx context.Context, boardID string, res *export.Result) (string, error) {
	if err := s.exportEnabled(); err != nil {
		return "", err
	}
	if !s.exporter.UploadEnabled() {
		return "", domainError(http.StatusServiceUnavailable, "UPLOAD_DISABLED", "Object storage is not configured", nil)
	}
	return s.exporter.Upload(ctx, boardID, res)
}

// BoardPage renders the read-only HTML view of a board.
func (s *Service) BoardPage(ctx context.Context, session Session, boardID string) (string, error) {
	if err := s.exportEnabled(); err != nil {
		return "", err
	}
	if _, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead); err != nil {
		return "", err
	}
	s.flushBoard(ctx, boardID)
	return s.exporter.RenderPage(ctx, boardID)
}
