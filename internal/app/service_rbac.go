package app

import (
	"context"
	"database/sql"
	"errors"

	"pblboard/api/internal/rbac"
	"pblboard/api/internal/store"
)

// authorizeBoard loads the board row and checks that session may perform
// action on it. A missing board is reported as 404 before any role check.
func (s *Service) authorizeBoard(ctx context.Context, session Session, boardID string, action rbac.Action) (store.Board, error) {
	b, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		if isNotFound(err) {
			return store.Board{}, notFound()
		}
		return store.Board{}, err
	}
	if !rbac.Can(rbac.RoleFor(b.OwnerID, session.UserID), action) {
		return store.Board{}, forbidden()
	}
	return b, nil
}

// workspaceFor returns the caller's editing session on boardID, opening it
// from storage on first use.
func (s *Service) workspaceFor(ctx context.Context, session Session, boardID string, action rbac.Action) (*workspace, error) {
	if w, ok := s.work.peek(boardID, session.UserID); ok {
		if !rbac.Can(rbac.RoleFor(w.ownerID, session.UserID), action) {
			return nil, forbidden()
		}
		return w, nil
	}
	b, err := s.authorizeBoard(ctx, session, boardID, action)
	if err != nil {
		return nil, err
	}
	return s.work.open(b, session), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
