package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/gitrepo"
	"pblboard/api/internal/rbac"
	"pblboard/api/internal/store"
)

const revisionHistoryLimit = 100

func commitJSON(c store.CommitInfo) map[string]any {
	short := c.Hash
	if len(short) > 8 {
		short = short[:8]
	}
	return map[string]any{
		"hash":      c.Hash,
		"shortHash": short,
		"message":   c.Message,
		"author":    c.Author,
		"createdAt": c.CreatedAt,
	}
}

func (s *Service) revisionsEnabled() error {
	if s.git == nil {
		return domainError(http.StatusServiceUnavailable, "REVISIONS_DISABLED", "Revision history is not configured", nil)
	}
	return nil
}

func revisionError(err error) error {
	if errors.Is(err, gitrepo.ErrRevisionNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	return err
}

// flushBoard writes any pending saves on boardID so history reflects them.
func (s *Service) flushBoard(ctx context.Context, boardID string) {
	for _, w := range s.work.forBoard(boardID) {
		w.saver.Flush(ctx)
	}
}

func (s *Service) ListRevisions(ctx context.Context, session Session, boardID string) ([]map[string]any, error) {
	if err := s.revisionsEnabled(); err != nil {
		return nil, err
	}
	if _, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead); err != nil {
		return nil, err
	}
	s.flushBoard(ctx, boardID)
	commits, err := s.git.History(boardID, revisionHistoryLimit)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(commits))
	for _, c := range commits {
		out = append(out, commitJSON(c))
	}
	return out, nil
}

// CreateRevision commits the caller's current state with message. An
// unchanged board returns the head revision.
func (s *Service) CreateRevision(ctx context.Context, session Session, boardID, message string) (map[string]any, error) {
	if err := s.revisionsEnabled(); err != nil {
		return nil, err
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}
	w.saver.Flush(ctx)
	message = strings.TrimSpace(message)
	if message == "" {
		message = "Save board"
	}
	content, bctx, title := w.snapshot()
	info, err := s.git.Commit(boardID, gitrepo.Snapshot{Title: title, Context: bctx, Content: content}, w.author, message)
	if err != nil && !errors.Is(err, gitrepo.ErrNoChanges) {
		return nil, err
	}
	out := commitJSON(info)
	out["created"] = err == nil
	return out, nil
}

func (s *Service) GetRevision(ctx context.Context, session Session, boardID, hash string) (map[string]any, error) {
	if err := s.revisionsEnabled(); err != nil {
		return nil, err
	}
	if _, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead); err != nil {
		return nil, err
	}
	snap, info, err := s.git.Snapshot(boardID, hash)
	if err != nil {
		return nil, revisionError(err)
	}
	return map[string]any{
		"revision": commitJSON(info),
		"title":    snap.Title,
		"context":  snap.Context,
		"content":  snap.Content,
		"progress": board.ComputeProgress(snap.Content, snap.Context),
	}, nil
}

func (s *Service) CompareRevisions(ctx context.Context, session Session, boardID, from, to string) (gitrepo.Diff, error) {
	if err := s.revisionsEnabled(); err != nil {
		return gitrepo.Diff{}, err
	}
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return gitrepo.Diff{}, badRequest("from and to are required")
	}
	if _, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionRead); err != nil {
		return gitrepo.Diff{}, err
	}
	diff, err := s.git.Compare(boardID, from, to)
	if err != nil {
		return gitrepo.Diff{}, revisionError(err)
	}
	if diff.Cells == nil {
		diff.Cells = []board.CellRef{}
	}
	return diff, nil
}

// RestoreRevision applies the revision's content as one undoable edit. The
// current subjects are kept so standards stay aligned with the context.
func (s *Service) RestoreRevision(ctx context.Context, session Session, boardID, hash string) (EditState, error) {
	if err := s.revisionsEnabled(); err != nil {
		return EditState{}, err
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	snap, _, err := s.git.Snapshot(boardID, hash)
	if err != nil {
		return EditState{}, revisionError(err)
	}
	_, bctx, _ := w.snapshot()
	return w.edit(func(board.Content) (board.Content, error) {
		return snap.Content.WithSubjects(bctx.Subjects), nil
	})
}
