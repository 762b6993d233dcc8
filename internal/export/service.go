package export

import (
	"context"
	"fmt"

	"pblboard/api/internal/board"
	"pblboard/api/internal/generate"
	"pblboard/api/internal/logger"
	"pblboard/api/internal/store"
)

// DataStore is the slice of the board store export reads from.
type DataStore interface {
	GetBoard(ctx context.Context, id string) (store.Board, error)
	ListLessons(ctx context.Context, boardID string) ([]store.LessonPlan, error)
}

// Uploader stores a rendered artifact and returns a download URL.
type Uploader interface {
	Put(ctx context.Context, boardID string, res *Result) (string, error)
}

type renderFunc func(ctx context.Context, html string) ([]byte, error)

type Service struct {
	store   DataStore
	objects Uploader
	log     *logger.Logger

	pdf  renderFunc
	docx renderFunc
}

// NewService builds the export service. objects may be nil when no bucket
// is configured.
func NewService(store DataStore, objects Uploader, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		objects: objects,
		log:     logger.OrNop(log).With("component", "Export"),
		pdf:     renderPDF,
		docx:    renderDOCX,
	}
}

func (s *Service) UploadEnabled() bool {
	return s.objects != nil
}

func (s *Service) templateData(ctx context.Context, boardID string, withLessons bool) (TemplateData, error) {
	b, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return TemplateData{}, fmt.Errorf("get board: %w", err)
	}
	content, subjects := board.Load(b.Content, board.DecodeSubjects(b.Subjects))
	bctx := board.Context{State: b.State, GradeLevel: b.GradeLevel, Subjects: subjects, Location: b.Location}

	var lessons []generate.Lesson
	if withLessons {
		plans, err := s.store.ListLessons(ctx, boardID)
		if err != nil {
			return TemplateData{}, fmt.Errorf("list lessons: %w", err)
		}
		for _, p := range plans {
			lessons = append(lessons, generate.Lesson{
				ID:            p.ID,
				AgendaEntryID: p.AgendaEntryID,
				Subject:       p.Subject,
				PeriodMinutes: p.PeriodMinutes,
				Content:       board.DecodeLesson(p.Content),
			})
		}
	}
	return NewTemplateData(b.Title, content, bctx, lessons), nil
}

// Export renders the board in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	data, err := s.templateData(ctx, req.BoardID, req.IncludeLessons)
	if err != nil {
		return nil, err
	}
	html, err := RenderBoardHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	name := sanitizeFilename(data.Title)
	switch req.Format {
	case FormatHTML:
		return &Result{Data: []byte(html), Filename: name + ".html", MimeType: "text/html; charset=utf-8"}, nil
	case FormatPDF:
		out, err := s.pdf(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: out, Filename: name + ".pdf", MimeType: "application/pdf"}, nil
	case FormatDOCX:
		out, err := s.docx(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     out,
			Filename: name + ".docx",
			MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

// Upload stores res in the export bucket.
func (s *Service) Upload(ctx context.Context, boardID string, res *Result) (string, error) {
	if s.objects == nil {
		return "", ErrStorageNotConfigured
	}
	u, err := s.objects.Put(ctx, boardID, res)
	if err != nil {
		s.log.Warn("export upload failed", "board_id", boardID, "error", err)
		return "", err
	}
	return u, nil
}

// RenderPage renders the read-only board page with lessons.
func (s *Service) RenderPage(ctx context.Context, boardID string) (string, error) {
	data, err := s.templateData(ctx, boardID, true)
	if err != nil {
		return "", err
	}
	data.ReadOnly = true
	return RenderBoardHTML(data)
}
