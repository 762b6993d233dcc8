package app

import (
	"context"
	"encoding/json"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/generate"
	"pblboard/api/internal/rbac"
	"pblboard/api/internal/store"
)

func lessonJSON(l store.LessonPlan) map[string]any {
	return map[string]any{
		"id":            l.ID,
		"boardId":       l.BoardID,
		"agendaEntryId": l.AgendaEntryID,
		"subject":       l.Subject,
		"periodMinutes": l.PeriodMinutes,
		"content":       board.DecodeLesson(l.Content),
		"createdAt":     l.CreatedAt,
		"updatedAt":     l.UpdatedAt,
	}
}

func lessonView(l store.LessonPlan) generate.Lesson {
	return generate.Lesson{
		ID:            l.ID,
		AgendaEntryID: l.AgendaEntryID,
		Subject:       l.Subject,
		PeriodMinutes: l.PeriodMinutes,
		Content:       board.DecodeLesson(l.Content),
	}
}

func (s *Service) ListLessons(ctx context.Context, session Session, boardID string) ([]map[string]any, error) {
	if strings.TrimSpace(boardID) == "" {
		return nil, badRequest("boardId is required")
	}
	if _, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead); err != nil {
		return nil, err
	}
	lessons, err := s.store.ListLessons(ctx, boardID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, lessonJSON(l))
	}
	return out, nil
}

type CreateLessonInput struct {
	BoardID       string           `json:"boardId" validate:"required"`
	AgendaEntryID string           `json:"agendaEntryId" validate:"required"`
	Subject       string           `json:"subject" validate:"required"`
	PeriodMinutes int              `json:"periodMinutes" validate:"gt=0"`
	Content       *json.RawMessage `json:"content" validate:"required"`
}

func (s *Service) CreateLesson(ctx context.Context, session Session, in CreateLessonInput) (map[string]any, error) {
	if err := s.validator.Struct(in, "Missing required fields"); err != nil {
		return nil, err
	}
	b, err := s.authorizeBoard(ctx, session, in.BoardID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}
	encoded, err := board.DecodeLesson(string(*in.Content)).Encode()
	if err != nil {
		return nil, err
	}
	created, err := s.store.InsertLesson(ctx, store.LessonPlan{
		BoardID:       in.BoardID,
		AgendaEntryID: in.AgendaEntryID,
		Subject:       in.Subject,
		PeriodMinutes: in.PeriodMinutes,
		Content:       encoded,
	})
	if err != nil {
		return nil, err
	}
	s.publishLessons(ctx, b)
	return lessonJSON(created), nil
}

type UpdateLessonInput struct {
	Content       *json.RawMessage `json:"content"`
	PeriodMinutes *int             `json:"periodMinutes" validate:"omitempty,gt=0"`
}

func (s *Service) UpdateLesson(ctx context.Context, session Session, lessonID string, in UpdateLessonInput) (map[string]any, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	lesson, b, err := s.authorizeLesson(ctx, session, lessonID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}
	var content *string
	if in.Content != nil {
		encoded, err := board.DecodeLesson(string(*in.Content)).Encode()
		if err != nil {
			return nil, err
		}
		content = &encoded
	}
	updated, err := s.store.UpdateLesson(ctx, lesson.ID, content, in.PeriodMinutes)
	if err != nil {
		return nil, err
	}
	s.publishLessons(ctx, b)
	return lessonJSON(updated), nil
}

func (s *Service) DeleteLesson(ctx context.Context, session Session, lessonID string) error {
	lesson, b, err := s.authorizeLesson(ctx, session, lessonID, rbac.ActionWrite)
	if err != nil {
		return err
	}
	if err := s.store.DeleteLesson(ctx, lesson.ID); err != nil {
		return err
	}
	s.publishLessons(ctx, b)
	return nil
}

// authorizeLesson resolves the lesson's board and checks access to it.
func (s *Service) authorizeLesson(ctx context.Context, session Session, lessonID string, action rbac.Action) (store.LessonPlan, store.Board, error) {
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		if isNotFound(err) {
			return store.LessonPlan{}, store.Board{}, notFound()
		}
		return store.LessonPlan{}, store.Board{}, err
	}
	b, err := s.authorizeBoard(ctx, session, lesson.BoardID, action)
	if err != nil {
		return store.LessonPlan{}, store.Board{}, err
	}
	return lesson, b, nil
}

// writeLessonContent stores new content for one lesson.
func (s *Service) writeLessonContent(ctx context.Context, lessonID string, content board.LessonContent) (store.LessonPlan, error) {
	encoded, err := content.Encode()
	if err != nil {
		return store.LessonPlan{}, err
	}
	return s.store.UpdateLesson(ctx, lessonID, &encoded, nil)
}

func (s *Service) publishLessons(ctx context.Context, b store.Board) {
	if s.realtime == nil || b.RealtimeRoom == "" {
		return
	}
	if err := s.realtime.PublishLessons(ctx, b.RealtimeRoom, b.ID); err != nil {
		s.log.Warn("realtime publish failed", "board_id", b.ID, "error", err)
	}
}
