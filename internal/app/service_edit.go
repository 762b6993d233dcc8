package app

import (
	"context"
	"errors"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/rbac"
	"pblboard/api/internal/section"
)

func (s *Service) EditState(ctx context.Context, session Session, boardID string) (EditState, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return EditState{}, err
	}
	return w.state(), nil
}

// editBoard runs fn against the caller's session as one document edit.
func (s *Service) editBoard(ctx context.Context, session Session, boardID string, fn func(board.Content) (board.Content, error)) (EditState, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	st, err := w.edit(fn)
	if err != nil {
		return EditState{}, editError(err)
	}
	return st, nil
}

func editError(err error) error {
	switch {
	case errors.Is(err, section.ErrNoSections):
		return badRequest("Cell has no sections")
	case errors.Is(err, section.ErrIndexOutOfRange):
		return badRequest("Section index out of range")
	case errors.Is(err, section.ErrIntroSection):
		return badRequest("Intro text cannot be moved or deleted")
	case errors.Is(err, board.ErrAgendaEntryNotFound):
		return domainError(404, "NOT_FOUND", "Agenda entry not found", nil)
	case errors.Is(err, board.ErrUnknownAddress):
		return badRequest("Unknown cell")
	}
	return err
}

// SetContent replaces the whole document as one edit.
func (s *Service) SetContent(ctx context.Context, session Session, boardID string, raw string) (EditState, error) {
	if strings.TrimSpace(raw) == "" {
		return EditState{}, badRequest("content is required")
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	_, bctx, _ := w.snapshot()
	return w.edit(func(board.Content) (board.Content, error) {
		next, _ := board.Load(raw, bctx.Subjects)
		return next, nil
	})
}

// SetCell writes one cell. Keys that resolve to no cell leave the document
// unchanged.
func (s *Service) SetCell(ctx context.Context, session Session, boardID, cellKey, value string) (EditState, error) {
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		return c.WithValue(cellKey, value), nil
	})
}

type ContextInput struct {
	State      string   `json:"state"`
	GradeLevel string   `json:"gradeLevel"`
	Subjects   []string `json:"subjects" validate:"dive,required"`
	Location   string   `json:"location"`
}

// SetContext changes the board context and re-syncs the standards cells to
// the new subject list. Neither records an undo step.
func (s *Service) SetContext(ctx context.Context, session Session, boardID string, in ContextInput) (EditState, error) {
	if err := s.validator.Struct(in); err != nil {
		return EditState{}, err
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	subjects := append([]string{}, in.Subjects...)
	return w.update(func(w *workspace) {
		w.bctx = board.Context{State: in.State, GradeLevel: in.GradeLevel, Subjects: subjects, Location: in.Location}
		w.history.Replace(w.history.Current().WithSubjects(subjects))
	}), nil
}

func (s *Service) SetTitle(ctx context.Context, session Session, boardID, title string) (EditState, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	title = strings.TrimSpace(title)
	return w.update(func(w *workspace) { w.title = title }), nil
}

func (s *Service) Undo(ctx context.Context, session Session, boardID string) (EditState, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	return w.undo(), nil
}

func (s *Service) Redo(ctx context.Context, session Session, boardID string) (EditState, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	return w.redo(), nil
}

// Flush writes the caller's pending save now and reports whether one ran.
func (s *Service) Flush(ctx context.Context, session Session, boardID string) (bool, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return false, err
	}
	return w.saver.Flush(ctx), nil
}

// SectionView is one parsed section as shown in the editor.
type SectionView struct {
	Header    string `json:"header"`
	Body      string `json:"body"`
	Display   string `json:"display"`
	RawText   string `json:"rawText"`
	Intro     bool   `json:"intro"`
	Draggable bool   `json:"draggable"`
}

// Sections parses one cell. A nil result means the cell is unstructured.
func (s *Service) Sections(ctx context.Context, session Session, boardID, cellKey string) ([]SectionView, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	content, _, _ := w.snapshot()
	parsed := section.Parse(content.Value(cellKey))
	if parsed == nil {
		return nil, nil
	}
	draggable := section.Draggable(parsed)
	out := make([]SectionView, 0, len(parsed))
	for _, sec := range parsed {
		view := SectionView{
			Header:  sec.Header,
			Body:    sec.Body,
			RawText: sec.RawText(),
			Intro:   sec.IsIntro(),
		}
		// whitespace-only intro text is kept for reconstruction but not shown
		if !view.Intro || strings.TrimSpace(sec.Body) != "" {
			view.Display = section.NormalizeBody(sec.Body)
		}
		view.Draggable = draggable && !view.Intro
		out = append(out, view)
	}
	return out, nil
}

func (s *Service) sectionEdit(ctx context.Context, session Session, boardID, cellKey string, op func(string) (string, error)) (EditState, error) {
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		addr, err := board.ParseAddress(cellKey)
		if err != nil {
			return c, err
		}
		cell, ok := c.Cell(addr)
		if !ok {
			return c, board.ErrUnknownAddress
		}
		next, err := op(cell.Value)
		if err != nil {
			return c, err
		}
		updated, _ := c.WithAddressValue(addr, next)
		return updated, nil
	})
}

func (s *Service) ReorderSections(ctx context.Context, session Session, boardID, cellKey string, from, to int) (EditState, error) {
	return s.sectionEdit(ctx, session, boardID, cellKey, func(v string) (string, error) {
		return section.Reorder(v, from, to)
	})
}

func (s *Service) EditSection(ctx context.Context, session Session, boardID, cellKey string, index int, text string) (EditState, error) {
	return s.sectionEdit(ctx, session, boardID, cellKey, func(v string) (string, error) {
		return section.Edit(v, index, text)
	})
}

func (s *Service) DeleteSection(ctx context.Context, session Session, boardID, cellKey string, index int) (EditState, error) {
	return s.sectionEdit(ctx, session, boardID, cellKey, func(v string) (string, error) {
		return section.Delete(v, index)
	})
}

// MoveInput moves one section between cells. SectionText wins over
// SectionIndex when both are given.
type MoveInput struct {
	SourceCell   string `json:"sourceCell" validate:"required"`
	SectionIndex *int   `json:"sectionIndex"`
	SectionText  string `json:"sectionText"`
	TargetCell   string `json:"targetCell" validate:"required"`
	DropIndex    *int   `json:"dropIndex"`
}

// MoveSection relocates the exact raw text of a section as one edit.
func (s *Service) MoveSection(ctx context.Context, session Session, boardID string, in MoveInput) (EditState, error) {
	if err := s.validator.Struct(in); err != nil {
		return EditState{}, err
	}
	if in.SectionText == "" && in.SectionIndex == nil {
		return EditState{}, badRequest("sectionIndex or sectionText is required")
	}
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		srcAddr, err := board.ParseAddress(in.SourceCell)
		if err != nil {
			return c, err
		}
		dstAddr, err := board.ParseAddress(in.TargetCell)
		if err != nil {
			return c, err
		}
		src, ok := c.Cell(srcAddr)
		if !ok {
			return c, board.ErrUnknownAddress
		}
		dst, ok := c.Cell(dstAddr)
		if !ok {
			return c, board.ErrUnknownAddress
		}
		text := in.SectionText
		if text == "" {
			parsed := section.Parse(src.Value)
			if parsed == nil {
				return c, section.ErrNoSections
			}
			if *in.SectionIndex < 0 || *in.SectionIndex >= len(parsed) {
				return c, section.ErrIndexOutOfRange
			}
			if parsed[*in.SectionIndex].IsIntro() {
				return c, section.ErrIntroSection
			}
			text = parsed[*in.SectionIndex].RawText()
		}
		if srcAddr.Key() == dstAddr.Key() {
			next, _ := c.WithAddressValue(srcAddr, section.InsertText(section.RemoveText(src.Value, text), text, in.DropIndex))
			return next, nil
		}
		newSrc, newDst := section.Move(src.Value, dst.Value, text, in.DropIndex)
		next, _ := c.WithAddressValue(srcAddr, newSrc)
		next, _ = next.WithAddressValue(dstAddr, newDst)
		return next, nil
	})
}

func (s *Service) AddAdditional(ctx context.Context, session Session, boardID, area string) (EditState, error) {
	a, err := board.ParseArea(area)
	if err != nil {
		return EditState{}, badRequest("Unknown section")
	}
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		return c.WithAdditional(a), nil
	})
}

// RemoveAdditional drops one additional column. An index past the end is a
// no-op.
func (s *Service) RemoveAdditional(ctx context.Context, session Session, boardID, area string, index int) (EditState, error) {
	a, err := board.ParseArea(area)
	if err != nil {
		return EditState{}, badRequest("Unknown section")
	}
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		next, _ := c.WithoutAdditional(a, index)
		return next, nil
	})
}

func (s *Service) AddAgendaEntry(ctx context.Context, session Session, boardID string) (EditState, error) {
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		next, _ := c.WithAgendaEntry()
		return next, nil
	})
}

func (s *Service) PatchAgendaEntry(ctx context.Context, session Session, boardID, entryID string, patch board.AgendaPatch) (EditState, error) {
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		return c.WithAgendaPatch(entryID, patch)
	})
}

// DeleteAgendaEntry removes an entry. Lesson plans attached to it are kept.
func (s *Service) DeleteAgendaEntry(ctx context.Context, session Session, boardID, entryID string) (EditState, error) {
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		return c.WithoutAgendaEntry(entryID)
	})
}
