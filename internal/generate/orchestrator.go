// Package generate builds LLM requests from board state and folds the
// structured results back into board and lesson content.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/llm"
	"pblboard/api/internal/logger"
)

var (
	ErrNoSuggestions   = errors.New("generate: model returned no suggestions")
	ErrMissingMainIdea = errors.New("generate: main idea is required")
	ErrInvalidDays     = errors.New("generate: number of days must be between 1 and 60")
)

const MaxAgendaDays = 60

// Error reports a failed model call or an unusable model output.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "generate: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

type Orchestrator struct {
	gen llm.Generator
	log *logger.Logger
}

func New(gen llm.Generator, log *logger.Logger) *Orchestrator {
	return &Orchestrator{gen: gen, log: logger.OrNop(log)}
}

func (o *Orchestrator) object(ctx context.Context, op string, req llm.ObjectRequest, out any) error {
	if req.System == "" {
		req.System = SystemPrompt
	}
	raw, err := o.gen.GenerateObject(ctx, req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("decode output: %w", err)}
	}
	return nil
}

// CellRequest asks for suggestions on one cell. CellID is a board cell key
// or a synthetic id such as boardTitle, agendaReflection or lessonSection.
type CellRequest struct {
	CellID   string        `json:"cellId" validate:"required"`
	Cell     board.Cell    `json:"cell"`
	Content  board.Content `json:"content"`
	Context  board.Context `json:"context"`
	Feedback string        `json:"feedback,omitempty"`
}

// Suggest returns 1-3 candidates, or exactly one when feedback is given.
func (o *Orchestrator) Suggest(ctx context.Context, req CellRequest) ([]Suggestion, error) {
	var out suggestionsResponse
	err := o.object(ctx, "suggest "+req.CellID, llm.ObjectRequest{
		Prompt:     CellPrompt(req.CellID, req.Cell, req.Content, req.Context, req.Feedback),
		SchemaName: "cell_suggestions",
		Schema:     suggestionSchema(),
	}, &out)
	if err != nil {
		return nil, err
	}
	if req.Feedback != "" && len(out.Suggestions) > 1 {
		out.Suggestions = out.Suggestions[:1]
	}
	return out.Suggestions, nil
}

// Improve returns the single suggestion produced for req.Feedback.
func (o *Orchestrator) Improve(ctx context.Context, req CellRequest) (Suggestion, error) {
	suggestions, err := o.Suggest(ctx, req)
	if err != nil {
		return Suggestion{}, err
	}
	if len(suggestions) == 0 {
		return Suggestion{}, &Error{Op: "improve " + req.CellID, Err: ErrNoSuggestions}
	}
	return suggestions[0], nil
}

// AddSection generates one new section about description and returns the
// cell value with that section appended.
func (o *Orchestrator) AddSection(ctx context.Context, req CellRequest, description string) (string, error) {
	req.Feedback = AddFeedback(description)
	s, err := o.Improve(ctx, req)
	if err != nil {
		return "", err
	}
	return AppendSection(req.Cell.Value, s.Text), nil
}

// Title generates a short project title from the main idea.
func (o *Orchestrator) Title(ctx context.Context, c board.Content, bctx board.Context, current string) (string, error) {
	if strings.TrimSpace(c.InitialPlanning.MainIdea.Value) == "" {
		return "", ErrMissingMainIdea
	}
	s, err := o.Improve(ctx, CellRequest{
		CellID:   "boardTitle",
		Cell:     board.Cell{ID: "boardTitle", Label: "Board Title", Value: current},
		Content:  c,
		Context:  bctx,
		Feedback: TitleFeedback(c, bctx),
	})
	if err != nil {
		return "", err
	}
	return CleanTitle(s.Text), nil
}

// ImproveAgendaField rewrites one field of an agenda entry and returns the
// updated content.
func (o *Orchestrator) ImproveAgendaField(ctx context.Context, c board.Content, bctx board.Context, entryID string, field AgendaField, feedback string) (board.Content, error) {
	entry, _, ok := c.AgendaEntry(entryID)
	if !ok {
		return board.Content{}, board.ErrAgendaEntryNotFound
	}
	cellID, label, value, err := field.describe(entry)
	if err != nil {
		return board.Content{}, err
	}
	s, err := o.Improve(ctx, CellRequest{
		CellID:   cellID,
		Cell:     board.Cell{ID: cellID, Label: label, Value: value},
		Content:  c,
		Context:  bctx,
		Feedback: feedback,
	})
	if err != nil {
		return board.Content{}, err
	}
	return c.WithAgendaPatch(entryID, field.patch(s.Text))
}

// ImproveLessonSection rewrites one section of a lesson plan.
func (o *Orchestrator) ImproveLessonSection(ctx context.Context, c board.Content, bctx board.Context, lesson Lesson, field board.LessonField, feedback string) (board.LessonContent, error) {
	s, err := o.Improve(ctx, CellRequest{
		CellID:   "lessonSection",
		Cell:     board.Cell{ID: string(field), Label: LessonSectionLabel(lesson.Subject, field), Value: lesson.Content.Field(field)},
		Content:  c,
		Context:  bctx,
		Feedback: LessonSectionFeedback(lesson.Subject, lesson.PeriodMinutes, field, feedback),
	})
	if err != nil {
		return board.LessonContent{}, err
	}
	return lesson.Content.WithField(field, s.Text), nil
}

// Variation generates a complete board. When both feedback and previous are
// set the model revises previous.
func (o *Orchestrator) Variation(ctx context.Context, c board.Content, bctx board.Context, feedback string, previous *Variation) (Variation, error) {
	var v Variation
	err := o.object(ctx, "variation", llm.ObjectRequest{
		Prompt:     BoardPrompt(c, bctx, feedback, previous),
		SchemaName: "board_variation",
		Schema:     variationSchema(bctx.Subjects),
	}, &v)
	return v, err
}

func (o *Orchestrator) Agenda(ctx context.Context, c board.Content, bctx board.Context, numDays int) ([]Session, error) {
	if numDays < 1 || numDays > MaxAgendaDays {
		return nil, ErrInvalidDays
	}
	var out agendaResponse
	err := o.object(ctx, "agenda", llm.ObjectRequest{
		Prompt:     AgendaPrompt(c, bctx, numDays),
		SchemaName: "agenda",
		Schema:     agendaSchema(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (o *Orchestrator) Lesson(ctx context.Context, req LessonRequest) (board.LessonContent, error) {
	var out board.LessonContent
	err := o.object(ctx, "lesson "+req.Subject, llm.ObjectRequest{
		Prompt:     LessonPrompt(req),
		SchemaName: "lesson_plan",
		Schema:     lessonSchema(),
	}, &out)
	return out, err
}

// Selection picks one subject and period length for lesson generation.
type Selection struct {
	Subject       string `json:"subject" validate:"required"`
	PeriodMinutes int    `json:"periodMinutes" validate:"gt=0"`
}

type Failure struct {
	Subject string `json:"subject"`
	Error   string `json:"error"`
}

// LessonSink persists one generated lesson.
type LessonSink func(ctx context.Context, sel Selection, content board.LessonContent) error

// Lessons generates one lesson per selection, in order. A failed generation
// or save is recorded and the remaining selections still run.
func (o *Orchestrator) Lessons(ctx context.Context, c board.Content, bctx board.Context, entryID string, selections []Selection, sink LessonSink) ([]Failure, error) {
	entry, idx, ok := c.AgendaEntry(entryID)
	if !ok {
		return nil, board.ErrAgendaEntryNotFound
	}
	var failures []Failure
	for _, sel := range selections {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		content, err := o.Lesson(ctx, LessonRequest{
			Content:       c,
			Context:       bctx,
			Entry:         entry,
			SessionIndex:  idx,
			Subject:       sel.Subject,
			PeriodMinutes: sel.PeriodMinutes,
		})
		if err == nil {
			err = sink(ctx, sel, content)
		}
		if err != nil {
			o.log.Warn("lesson generation failed", "agenda_entry_id", entryID, "subject", sel.Subject, "error", err)
			failures = append(failures, Failure{Subject: sel.Subject, Error: err.Error()})
		}
	}
	return failures, nil
}

type CollaboratorMode string

const (
	ModeBoard   CollaboratorMode = "board"
	ModeLessons CollaboratorMode = "lessons"
)

// Collaborate answers a teacher message and proposes cell edits. Lesson mode
// proposes edits to lesson sections.
func (o *Orchestrator) Collaborate(ctx context.Context, c board.Content, bctx board.Context, mode CollaboratorMode, lessons []Lesson, message string) (Reply, error) {
	prompt := CollaboratorPrompt(c, bctx, message)
	if mode == ModeLessons {
		prompt = LessonCollaboratorPrompt(c, bctx, lessons, message)
	}
	var out Reply
	if err := o.object(ctx, "collaborate", llm.ObjectRequest{
		Prompt:     prompt,
		SchemaName: "collaborator_reply",
		Schema:     collaboratorSchema(),
	}, &out); err != nil {
		return Reply{}, err
	}
	if out.ProposedChanges == nil {
		out.ProposedChanges = []ProposedChange{}
	}
	return out, nil
}

func (o *Orchestrator) Critique(ctx context.Context, c board.Content) (Critique, error) {
	var out Critique
	err := o.object(ctx, "critique", llm.ObjectRequest{
		Prompt:     CritiquePrompt(c),
		SchemaName: "hqpbl_critique",
		Schema:     critiqueSchema(),
	}, &out)
	return out, err
}

// StreamStandards streams suggested standards; onDelta receives the partial
// JSON text accumulated so far.
func (o *Orchestrator) StreamStandards(ctx context.Context, topic, state, gradeLevel string, onDelta func(partial string)) ([]Suggestion, error) {
	raw, err := o.gen.StreamObject(ctx, llm.ObjectRequest{
		System:     SystemPrompt,
		Prompt:     StandardsPrompt(topic, state, gradeLevel),
		SchemaName: "standards_suggestions",
		Schema:     suggestionSchema(),
	}, onDelta)
	if err != nil {
		return nil, &Error{Op: "standards", Err: err}
	}
	var out suggestionsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Op: "standards", Err: fmt.Errorf("decode output: %w", err)}
	}
	return out.Suggestions, nil
}
