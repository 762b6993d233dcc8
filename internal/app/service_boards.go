package app

import (
	"context"
	"encoding/json"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/rbac"
	"pblboard/api/internal/search"
	"pblboard/api/internal/store"
	"pblboard/api/internal/util"
)

const defaultBoardTitle = "Untitled Board"

func boardJSON(b store.Board) map[string]any {
	return map[string]any{
		"id":           b.ID,
		"slug":         b.Slug,
		"title":        b.Title,
		"realtimeRoom": b.RealtimeRoom,
		"ownerId":      b.OwnerID,
		"state":        b.State,
		"gradeLevel":   b.GradeLevel,
		"subjects":     board.DecodeSubjects(b.Subjects),
		"location":     b.Location,
		"createdAt":    b.CreatedAt,
		"updatedAt":    b.UpdatedAt,
	}
}

func encodeSubjects(subjects []string) (string, error) {
	if subjects == nil {
		subjects = []string{}
	}
	raw, err := json.Marshal(subjects)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *Service) ListBoards(ctx context.Context, session Session) ([]map[string]any, error) {
	boards, err := s.store.ListBoardsByOwner(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(boards))
	for _, b := range boards {
		out = append(out, boardJSON(b))
	}
	return out, nil
}

func (s *Service) CreateBoard(ctx context.Context, session Session) (map[string]any, error) {
	subjects := append([]string(nil), board.DefaultSubjects...)
	contentJSON, err := board.NewContentForSubjects(subjects).Encode()
	if err != nil {
		return nil, err
	}
	subjectsJSON, err := encodeSubjects(subjects)
	if err != nil {
		return nil, err
	}
	slug := util.NewSlug()
	created, err := s.store.InsertBoard(ctx, store.Board{
		Slug:         slug,
		Title:        defaultBoardTitle,
		RealtimeRoom: util.RoomForSlug(slug),
		OwnerID:      session.UserID,
		Content:      contentJSON,
		Subjects:     subjectsJSON,
	})
	if err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexBoard(created)
	}
	s.log.Info("board created", "board_id", created.ID, "user_id", session.UserID)
	return boardJSON(created), nil
}

// GetBoard returns the board with its migrated content. A live editing
// session of the caller wins over the stored row.
func (s *Service) GetBoard(ctx context.Context, session Session, boardID string) (map[string]any, error) {
	b, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	content, bctx := loadBoard(b)
	if w, ok := s.work.peek(boardID, session.UserID); ok {
		st := w.state()
		content, bctx = st.Content, st.Context
		b.Title = st.Title
	}
	return map[string]any{
		"board":    boardJSON(b),
		"content":  content,
		"context":  bctx,
		"progress": board.ComputeProgress(content, bctx),
	}, nil
}

func (s *Service) Progress(ctx context.Context, session Session, boardID string) (board.Progress, error) {
	if w, ok := s.work.peek(boardID, session.UserID); ok {
		content, bctx, _ := w.snapshot()
		return board.ComputeProgress(content, bctx), nil
	}
	b, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return board.Progress{}, err
	}
	content, bctx := loadBoard(b)
	return board.ComputeProgress(content, bctx), nil
}

// UpdateBoardInput is a partial board write. Content is decoded through the
// load-time migration before it is stored.
type UpdateBoardInput struct {
	Title      *string          `json:"title"`
	Content    *json.RawMessage `json:"content"`
	State      *string          `json:"state"`
	GradeLevel *string          `json:"gradeLevel"`
	Subjects   *[]string        `json:"subjects"`
	Location   *string          `json:"location"`
}

// UpdateBoard writes straight to storage. Live editing sessions on the board
// are flushed and closed first so they reload the new row on next use.
func (s *Service) UpdateBoard(ctx context.Context, session Session, boardID string, in UpdateBoardInput) (map[string]any, error) {
	if _, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	s.work.drop(ctx, boardID, true)

	update := store.BoardUpdate{State: in.State, GradeLevel: in.GradeLevel, Location: in.Location}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		update.Title = &title
	}
	if in.Content != nil {
		encoded, err := board.Decode(string(*in.Content)).Encode()
		if err != nil {
			return nil, badRequest("Invalid content")
		}
		update.Content = &encoded
	}
	if in.Subjects != nil {
		encoded, err := encodeSubjects(*in.Subjects)
		if err != nil {
			return nil, err
		}
		update.Subjects = &encoded
	}
	saved, err := s.store.UpdateBoard(ctx, boardID, update)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound()
		}
		return nil, err
	}
	if s.search != nil {
		s.search.IndexBoard(saved)
	}
	return boardJSON(saved), nil
}

func (s *Service) DeleteBoard(ctx context.Context, session Session, boardID string) error {
	if _, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionDelete); err != nil {
		return err
	}
	s.work.drop(ctx, boardID, false)
	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		if isNotFound(err) {
			return notFound()
		}
		return err
	}
	if s.search != nil {
		s.search.DeleteBoard(boardID)
	}
	s.log.Info("board deleted", "board_id", boardID, "user_id", session.UserID)
	return nil
}

// SearchBoards searches the caller's own boards.
func (s *Service) SearchBoards(ctx context.Context, session Session, text string, limit, offset int) search.Response {
	q := search.Query{Text: strings.TrimSpace(text), OwnerID: session.UserID, Limit: limit, Offset: offset}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}
