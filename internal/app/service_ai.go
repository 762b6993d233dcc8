package app

import (
	"context"
	"errors"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/generate"
	"pblboard/api/internal/rbac"
	"pblboard/api/internal/store"
)

// Stateless generation. These take the document in the request and never
// touch storage.

type GenerateBoardInput struct {
	Content           board.Content       `json:"content"`
	Context           board.Context       `json:"context"`
	Feedback          string              `json:"feedback"`
	PreviousVariation *generate.Variation `json:"previousVariation"`
}

type GenerateAgendaInput struct {
	Content board.Content `json:"content"`
	Context board.Context `json:"context"`
	NumDays int           `json:"numDays" validate:"min=1,max=60"`
}

type GenerateLessonInput struct {
	Content       board.Content     `json:"content"`
	Context       board.Context     `json:"context"`
	AgendaEntry   board.AgendaEntry `json:"agendaEntry"`
	SessionIndex  int               `json:"sessionIndex" validate:"min=0"`
	Subject       string            `json:"subject" validate:"required"`
	PeriodMinutes int               `json:"periodMinutes" validate:"gt=0"`
}

type CollaborateInput struct {
	Content     board.Content             `json:"content"`
	Context     board.Context             `json:"context"`
	UserMessage string                    `json:"userMessage" validate:"required"`
	Lessons     []generate.Lesson         `json:"lessons"`
	Mode        generate.CollaboratorMode `json:"mode" validate:"omitempty,oneof=board lessons"`
}

type StandardsInput struct {
	Topic      string `json:"topic" validate:"required"`
	State      string `json:"state"`
	GradeLevel string `json:"gradeLevel"`
}

func (s *Service) GenerateCell(ctx context.Context, req generate.CellRequest) ([]generate.Suggestion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	return s.ai.Suggest(ctx, req)
}

// ImproveCell rewrites one cell of a posted document from feedback.
func (s *Service) ImproveCell(ctx context.Context, req generate.CellRequest) (generate.Suggestion, error) {
	if err := s.validator.Struct(req); err != nil {
		return generate.Suggestion{}, err
	}
	if strings.TrimSpace(req.Feedback) == "" {
		return generate.Suggestion{}, badRequest("feedback is required")
	}
	return s.ai.Improve(ctx, req)
}

func (s *Service) GenerateBoard(ctx context.Context, in GenerateBoardInput) (generate.Variation, error) {
	return s.ai.Variation(ctx, in.Content, in.Context, in.Feedback, in.PreviousVariation)
}

func (s *Service) GenerateAgenda(ctx context.Context, in GenerateAgendaInput) ([]generate.Session, error) {
	if err := s.validator.Struct(in, "numDays must be between 1 and 60"); err != nil {
		return nil, err
	}
	return s.ai.Agenda(ctx, in.Content, in.Context, in.NumDays)
}

func (s *Service) GenerateLesson(ctx context.Context, in GenerateLessonInput) (board.LessonContent, error) {
	if err := s.validator.Struct(in); err != nil {
		return board.LessonContent{}, err
	}
	return s.ai.Lesson(ctx, generate.LessonRequest{
		Content:       in.Content,
		Context:       in.Context,
		Entry:         in.AgendaEntry,
		SessionIndex:  in.SessionIndex,
		Subject:       in.Subject,
		PeriodMinutes: in.PeriodMinutes,
	})
}

func (s *Service) Collaborate(ctx context.Context, in CollaborateInput) (generate.Reply, error) {
	if err := s.validator.Struct(in); err != nil {
		return generate.Reply{}, err
	}
	mode := in.Mode
	if mode == "" {
		mode = generate.ModeBoard
	}
	return s.ai.Collaborate(ctx, in.Content, in.Context, mode, in.Lessons, in.UserMessage)
}

func (s *Service) CritiqueContent(ctx context.Context, content board.Content) (generate.Critique, error) {
	return s.ai.Critique(ctx, content)
}

func (s *Service) StreamStandards(ctx context.Context, in StandardsInput, onDelta func(string)) ([]generate.Suggestion, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	return s.ai.StreamStandards(ctx, in.Topic, in.State, in.GradeLevel, onDelta)
}

// Board-scoped generation reads the caller's editing session and applies
// results as ordinary edits.

// cellRequest builds a generation request for a board cell of w.
func cellRequest(w *workspace, cellKey, feedback string) (generate.CellRequest, board.Address, error) {
	addr, err := board.ParseAddress(cellKey)
	if err != nil {
		return generate.CellRequest{}, nil, badRequest("Unknown cell")
	}
	if _, ok := addr.(board.LessonSectionCell); ok {
		return generate.CellRequest{}, nil, badRequest("Lesson sections are generated through the lessons endpoints")
	}
	content, bctx, _ := w.snapshot()
	cell, ok := content.Cell(addr)
	if !ok {
		return generate.CellRequest{}, nil, badRequest("Unknown cell")
	}
	return generate.CellRequest{
		CellID:   cellKey,
		Cell:     cell,
		Content:  content,
		Context:  bctx,
		Feedback: feedback,
	}, addr, nil
}

func (s *Service) SuggestCell(ctx context.Context, session Session, boardID, cellKey, feedback string) ([]generate.Suggestion, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	req, _, err := cellRequest(w, cellKey, strings.TrimSpace(feedback))
	if err != nil {
		return nil, err
	}
	return s.ai.Suggest(ctx, req)
}

type ApplyMode string

const (
	ApplyReplace ApplyMode = "replace"
	ApplyAppend  ApplyMode = "append"
)

type ApplyInput struct {
	CellKey string    `json:"cellKey" validate:"required"`
	Text    string    `json:"text"`
	Mode    ApplyMode `json:"mode" validate:"omitempty,oneof=replace append"`
}

// ApplySuggestion writes a chosen suggestion into its cell.
func (s *Service) ApplySuggestion(ctx context.Context, session Session, boardID string, in ApplyInput) (EditState, error) {
	if err := s.validator.Struct(in); err != nil {
		return EditState{}, err
	}
	return s.editBoard(ctx, session, boardID, func(c board.Content) (board.Content, error) {
		value := in.Text
		if in.Mode == ApplyAppend {
			value = generate.AppendSection(c.Value(in.CellKey), in.Text)
		}
		return c.WithValue(in.CellKey, value), nil
	})
}

// FixCell improves a cell from teacher feedback and applies the result.
func (s *Service) FixCell(ctx context.Context, session Session, boardID, cellKey, feedback string) (EditState, error) {
	if strings.TrimSpace(feedback) == "" {
		return EditState{}, badRequest("feedback is required")
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	req, addr, err := cellRequest(w, cellKey, feedback)
	if err != nil {
		return EditState{}, err
	}
	suggestion, err := s.ai.Improve(ctx, req)
	if err != nil {
		return EditState{}, err
	}
	return w.edit(func(c board.Content) (board.Content, error) {
		next, _ := c.WithAddressValue(addr, suggestion.Text)
		return next, nil
	})
}

// AddCellSection generates a new section about description and appends it.
func (s *Service) AddCellSection(ctx context.Context, session Session, boardID, cellKey, description string) (EditState, error) {
	if strings.TrimSpace(description) == "" {
		return EditState{}, badRequest("description is required")
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	req, addr, err := cellRequest(w, cellKey, generate.AddFeedback(description))
	if err != nil {
		return EditState{}, err
	}
	suggestion, err := s.ai.Improve(ctx, req)
	if err != nil {
		return EditState{}, err
	}
	// appended to the cell as it is now, which may differ from the prompt
	return w.edit(func(c board.Content) (board.Content, error) {
		cell, _ := c.Cell(addr)
		next, _ := c.WithAddressValue(addr, generate.AppendSection(cell.Value, suggestion.Text))
		return next, nil
	})
}

func (s *Service) GenerateTitle(ctx context.Context, session Session, boardID string) (EditState, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	content, bctx, current := w.snapshot()
	title, err := s.ai.Title(ctx, content, bctx, current)
	if err != nil {
		return EditState{}, err
	}
	return w.update(func(w *workspace) { w.title = title }), nil
}

type VariationInput struct {
	Feedback          string              `json:"feedback"`
	PreviousVariation *generate.Variation `json:"previousVariation"`
}

func (s *Service) BoardVariation(ctx context.Context, session Session, boardID string, in VariationInput) (generate.Variation, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return generate.Variation{}, err
	}
	content, bctx, _ := w.snapshot()
	return s.ai.Variation(ctx, content, bctx, in.Feedback, in.PreviousVariation)
}

// ApplyVariation writes every value of v into the board as one edit and
// takes its title when it has one.
func (s *Service) ApplyVariation(ctx context.Context, session Session, boardID string, v generate.Variation) (EditState, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	_, bctx, _ := w.snapshot()
	st, err := w.edit(func(c board.Content) (board.Content, error) {
		return generate.ApplyVariation(c, bctx.Subjects, v), nil
	})
	if err != nil {
		return EditState{}, err
	}
	if title := generate.CleanTitle(v.Title); title != "" {
		st = w.update(func(w *workspace) { w.title = title })
	}
	return st, nil
}

// RegenerateAgenda replaces the whole agenda. Lesson plans of the old
// entries are kept.
func (s *Service) RegenerateAgenda(ctx context.Context, session Session, boardID string, numDays int) (EditState, error) {
	if numDays < 1 || numDays > generate.MaxAgendaDays {
		return EditState{}, badRequest("numDays must be between 1 and 60")
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	content, bctx, _ := w.snapshot()
	sessions, err := s.ai.Agenda(ctx, content, bctx, numDays)
	if err != nil {
		return EditState{}, err
	}
	entries := generate.AgendaFromSessions(sessions)
	return w.edit(func(c board.Content) (board.Content, error) {
		return c.WithAgenda(entries), nil
	})
}

type ImproveAgendaInput struct {
	Field    generate.AgendaField `json:"field" validate:"required,oneof=eventsContent reflection"`
	Feedback string               `json:"feedback" validate:"required"`
}

func (s *Service) ImproveAgendaEntry(ctx context.Context, session Session, boardID, entryID string, in ImproveAgendaInput) (EditState, error) {
	if err := s.validator.Struct(in); err != nil {
		return EditState{}, err
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return EditState{}, err
	}
	content, bctx, _ := w.snapshot()
	improved, err := s.ai.ImproveAgendaField(ctx, content, bctx, entryID, in.Field, in.Feedback)
	if err != nil {
		return EditState{}, editError(err)
	}
	entry, _, ok := improved.AgendaEntry(entryID)
	if !ok {
		return EditState{}, editError(board.ErrAgendaEntryNotFound)
	}
	patch := board.AgendaPatch{EventsContent: &entry.EventsContent}
	if in.Field == generate.AgendaReflection {
		patch = board.AgendaPatch{Reflection: &entry.Reflection}
	}
	st, err := w.edit(func(c board.Content) (board.Content, error) {
		return c.WithAgendaPatch(entryID, patch)
	})
	if err != nil {
		return EditState{}, editError(err)
	}
	return st, nil
}

type GenerateLessonsInput struct {
	AgendaEntryID string               `json:"agendaEntryId" validate:"required"`
	Selections    []generate.Selection `json:"selections" validate:"required,min=1,dive"`
}

// GenerateLessons creates one lesson plan per selection. Selections that
// fail are reported and do not stop the rest.
func (s *Service) GenerateLessons(ctx context.Context, session Session, boardID string, in GenerateLessonsInput) (map[string]any, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	b, err := s.authorizeBoard(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}
	content, bctx := s.boardSnapshot(b, session)
	var lessons []map[string]any
	failures, err := s.ai.Lessons(ctx, content, bctx, in.AgendaEntryID, in.Selections,
		func(ctx context.Context, sel generate.Selection, lc board.LessonContent) error {
			encoded, err := lc.Encode()
			if err != nil {
				return err
			}
			created, err := s.store.InsertLesson(ctx, store.LessonPlan{
				BoardID:       boardID,
				AgendaEntryID: in.AgendaEntryID,
				Subject:       sel.Subject,
				PeriodMinutes: sel.PeriodMinutes,
				Content:       encoded,
			})
			if err != nil {
				return err
			}
			lessons = append(lessons, lessonJSON(created))
			return nil
		})
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, editError(err)
	}
	if len(lessons) > 0 {
		s.publishLessons(ctx, b)
	}
	if lessons == nil {
		lessons = []map[string]any{}
	}
	if failures == nil {
		failures = []generate.Failure{}
	}
	return map[string]any{"lessons": lessons, "failures": failures}, nil
}

// boardSnapshot prefers the caller's live session over the stored row.
func (s *Service) boardSnapshot(b store.Board, session Session) (board.Content, board.Context) {
	if w, ok := s.work.peek(b.ID, session.UserID); ok {
		content, bctx, _ := w.snapshot()
		return content, bctx
	}
	return loadBoard(b)
}

type BoardCollaborateInput struct {
	Message string                    `json:"message" validate:"required"`
	Mode    generate.CollaboratorMode `json:"mode" validate:"omitempty,oneof=board lessons"`
}

// BoardCollaborate asks the collaborator about the session's board and
// keeps the reply as the session's pending batch of proposals.
func (s *Service) BoardCollaborate(ctx context.Context, session Session, boardID string, in BoardCollaborateInput) (*generate.Batch, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}
	mode := in.Mode
	if mode == "" {
		mode = generate.ModeBoard
	}
	var lessons []generate.Lesson
	if mode == generate.ModeLessons {
		stored, err := s.store.ListLessons(ctx, boardID)
		if err != nil {
			return nil, err
		}
		for _, l := range stored {
			lessons = append(lessons, lessonView(l))
		}
	}
	content, bctx, _ := w.snapshot()
	reply, err := s.ai.Collaborate(ctx, content, bctx, mode, lessons, in.Message)
	if err != nil {
		return nil, err
	}
	batch := generate.NewBatch(reply)
	w.setBatch(batch)
	return batch, nil
}

// ProposalResult is returned after resolving proposals.
type ProposalResult struct {
	Batch   *generate.Batch `json:"batch"`
	State   EditState       `json:"state"`
	Skipped []string        `json:"skipped"`
}

func batchError(err error) error {
	switch {
	case errors.Is(err, generate.ErrProposalIndex):
		return domainError(404, "NOT_FOUND", "Proposal not found", nil)
	case errors.Is(err, generate.ErrProposalResolved):
		return domainError(409, "ALREADY_RESOLVED", "Proposal already resolved", nil)
	}
	return err
}

var errNoBatch = domainError(404, "NOT_FOUND", "No collaborator proposals", nil)

// resolveProposals runs fn against the session's batch under its lock and
// returns the changes it accepted.
func resolveProposals(w *workspace, fn func(*generate.Batch) ([]generate.ProposedChange, error)) (*generate.Batch, []generate.ProposedChange, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.batch == nil {
		return nil, nil, errNoBatch
	}
	accepted, err := fn(w.batch)
	if err != nil {
		return nil, nil, batchError(err)
	}
	return w.batch, accepted, nil
}

func (s *Service) AcceptProposal(ctx context.Context, session Session, boardID string, index int) (ProposalResult, error) {
	return s.acceptProposals(ctx, session, boardID, func(b *generate.Batch) ([]generate.ProposedChange, error) {
		ch, err := b.Accept(index)
		if err != nil {
			return nil, err
		}
		return []generate.ProposedChange{ch}, nil
	})
}

// AcceptAllProposals applies every pending proposal as one undo step.
func (s *Service) AcceptAllProposals(ctx context.Context, session Session, boardID string) (ProposalResult, error) {
	return s.acceptProposals(ctx, session, boardID, func(b *generate.Batch) ([]generate.ProposedChange, error) {
		return b.AcceptAll(), nil
	})
}

func (s *Service) RejectProposal(ctx context.Context, session Session, boardID string, index int) (ProposalResult, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return ProposalResult{}, err
	}
	batch, _, err := resolveProposals(w, func(b *generate.Batch) ([]generate.ProposedChange, error) {
		return nil, b.Reject(index)
	})
	if err != nil {
		return ProposalResult{}, err
	}
	return ProposalResult{Batch: batch, State: w.state(), Skipped: []string{}}, nil
}

func (s *Service) acceptProposals(ctx context.Context, session Session, boardID string, pick func(*generate.Batch) ([]generate.ProposedChange, error)) (ProposalResult, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionWrite)
	if err != nil {
		return ProposalResult{}, err
	}
	batch, accepted, err := resolveProposals(w, pick)
	if err != nil {
		return ProposalResult{}, err
	}
	boardChanges, lessonEdits := generate.Route(accepted)

	skipped := []string{}
	st := w.state()
	if len(boardChanges) > 0 {
		st, err = w.edit(func(c board.Content) (board.Content, error) {
			next, missed := generate.ApplyToBoard(c, boardChanges)
			skipped = append(skipped, missed...)
			return next, nil
		})
		if err != nil {
			return ProposalResult{}, err
		}
	}
	if len(lessonEdits) > 0 {
		skipped = append(skipped, s.applyLessonEdits(ctx, w, lessonEdits)...)
	}
	return ProposalResult{Batch: batch, State: st, Skipped: skipped}, nil
}

// applyLessonEdits writes accepted lesson section proposals and returns the
// keys it could not apply.
func (s *Service) applyLessonEdits(ctx context.Context, w *workspace, edits []generate.LessonEdit) []string {
	var skipped []string
	changed := false
	for _, e := range edits {
		key := board.LessonSectionCell{LessonID: e.LessonID, Field: e.Field}.Key()
		lesson, err := s.store.GetLesson(ctx, e.LessonID)
		if err != nil || lesson.BoardID != w.boardID {
			skipped = append(skipped, key)
			continue
		}
		content := board.DecodeLesson(lesson.Content).WithField(e.Field, e.Value)
		if _, err := s.writeLessonContent(ctx, lesson.ID, content); err != nil {
			s.log.Warn("lesson proposal write failed", "board_id", w.boardID, "lesson_id", lesson.ID, "error", err)
			skipped = append(skipped, key)
			continue
		}
		changed = true
	}
	if changed {
		s.publishLessons(ctx, store.Board{ID: w.boardID, RealtimeRoom: w.room})
	}
	return skipped
}

func (s *Service) CritiqueBoard(ctx context.Context, session Session, boardID string) (generate.Critique, error) {
	w, err := s.workspaceFor(ctx, session, boardID, rbac.ActionRead)
	if err != nil {
		return generate.Critique{}, err
	}
	content, _, _ := w.snapshot()
	return s.ai.Critique(ctx, content)
}

// RegenerateLesson re-runs generation for the lesson's agenda entry, subject
// and period and replaces its content.
func (s *Service) RegenerateLesson(ctx context.Context, session Session, lessonID string) (map[string]any, error) {
	lesson, b, err := s.authorizeLesson(ctx, session, lessonID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}
	content, bctx := s.boardSnapshot(b, session)
	entry, idx, ok := content.AgendaEntry(lesson.AgendaEntryID)
	if !ok {
		return nil, editError(board.ErrAgendaEntryNotFound)
	}
	generated, err := s.ai.Lesson(ctx, generate.LessonRequest{
		Content:       content,
		Context:       bctx,
		Entry:         entry,
		SessionIndex:  idx,
		Subject:       lesson.Subject,
		PeriodMinutes: lesson.PeriodMinutes,
	})
	if err != nil {
		return nil, err
	}
	updated, err := s.writeLessonContent(ctx, lesson.ID, generated)
	if err != nil {
		return nil, err
	}
	s.publishLessons(ctx, b)
	return lessonJSON(updated), nil
}

type ImproveLessonInput struct {
	Section  string `json:"section" validate:"required"`
	Feedback string `json:"feedback" validate:"required"`
}

func (s *Service) ImproveLesson(ctx context.Context, session Session, lessonID string, in ImproveLessonInput) (map[string]any, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	field, ok := board.ParseLessonField(in.Section)
	if !ok {
		return nil, badRequest("Unknown lesson section")
	}
	lesson, b, err := s.authorizeLesson(ctx, session, lessonID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}
	content, bctx := s.boardSnapshot(b, session)
	improved, err := s.ai.ImproveLessonSection(ctx, content, bctx, lessonView(lesson), field, in.Feedback)
	if err != nil {
		return nil, err
	}
	updated, err := s.writeLessonContent(ctx, lesson.ID, improved)
	if err != nil {
		return nil, err
	}
	s.publishLessons(ctx, b)
	return lessonJSON(updated), nil
}
