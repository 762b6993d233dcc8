package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pblboard/api/internal/board"
	"pblboard/api/internal/store"
)

type fakeStore struct {
	getBoardFn    func(ctx context.Context, id string) (store.Board, error)
	listLessonsFn func(ctx context.Context, boardID string) ([]store.LessonPlan, error)
}

func (f fakeStore) GetBoard(ctx context.Context, id string) (store.Board, error) {
	return f.getBoardFn(ctx, id)
}

func (f fakeStore) ListLessons(ctx context.Context, boardID string) ([]store.LessonPlan, error) {
	if f.listLessonsFn == nil {
		return nil, nil
	}
	return f.listLessonsFn(ctx, boardID)
}

type fakeUploader struct {
	gotBoard string
	gotName  string
}

func (f *fakeUploader) Put(_ context.Context, boardID string, res *Result) (string, error) {
	f.gotBoard, f.gotName = boardID, res.Filename
	return "https://objects.example/" + res.Filename, nil
}

func sampleBoard(t *testing.T) store.Board {
	t.Helper()
	c := board.NewContent().
		WithValue("mainIdea", "- **Water** <script>alert(1)</script>").
		WithValue("drivingQuestion", "How might we clean the creek?")
	c = c.WithAgenda([]board.AgendaEntry{{ID: "agenda-1", Date: "Empathize", Leads: "Kickoff", EventsContent: "Visit the creek"}})
	raw, err := c.Encode()
	require.NoError(t, err)
	return store.Board{ID: "b1", Title: "Creek Project", Content: raw, Subjects: `["Science"]`, GradeLevel: "6", State: "Utah"}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Creek Project v1.2", "Creek-Project-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "board"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeFilename(tt.input))
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, percentEncodeForDataURL(tt.input))
		})
	}
}

func TestRenderMarkdownEscapesRawHTML(t *testing.T) {
	out := string(RenderMarkdown("- **Bold** item\n<script>x</script>"))
	assert.Contains(t, out, "<strong>Bold</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Empty(t, RenderMarkdown("   "))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	f, err = ParseFormat("docx")
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, f)
	_, err = ParseFormat("odt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportHTMLWithLessons(t *testing.T) {
	b := sampleBoard(t)
	fs := fakeStore{
		getBoardFn: func(_ context.Context, id string) (store.Board, error) {
			require.Equal(t, "b1", id)
			return b, nil
		},
		listLessonsFn: func(context.Context, string) ([]store.LessonPlan, error) {
			return []store.LessonPlan{
				{ID: "l1", AgendaEntryID: "agenda-1", Subject: "Science", PeriodMinutes: 45, Content: `{"learningObjectives":"Measure turbidity"}`},
				{ID: "l2", AgendaEntryID: "agenda-gone", Subject: "Math", PeriodMinutes: 30, Content: `{"learningObjectives":"Orphaned"}`},
			}, nil
		},
	}
	res, err := NewService(fs, nil, nil).Export(context.Background(), Request{BoardID: "b1", Format: FormatHTML, IncludeLessons: true})
	require.NoError(t, err)
	assert.Equal(t, "Creek-Project.html", res.Filename)

	html := string(res.Data)
	assert.Contains(t, html, "<h1>Creek Project</h1>")
	assert.Contains(t, html, "<strong>Water</strong>")
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "How might we clean the creek?")
	assert.Contains(t, html, "Standards: Science")
	assert.Contains(t, html, "Session 1: Empathize")
	assert.Contains(t, html, "Measure turbidity")
	assert.NotContains(t, html, "Orphaned")
	assert.Less(t, strings.Index(html, "Initial Planning"), strings.Index(html, "Design Thinking"))
}

func TestExportUsesRenderers(t *testing.T) {
	b := sampleBoard(t)
	svc := NewService(fakeStore{getBoardFn: func(context.Context, string) (store.Board, error) { return b, nil }}, nil, nil)
	svc.pdf = func(_ context.Context, html string) ([]byte, error) {
		assert.Contains(t, html, "Creek Project")
		return []byte("%PDF"), nil
	}
	svc.docx = func(context.Context, string) ([]byte, error) {
		return nil, ErrDOCXDependencyMissing
	}

	res, err := svc.Export(context.Background(), Request{BoardID: "b1", Format: FormatPDF})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.MimeType)
	assert.Equal(t, []byte("%PDF"), res.Data)

	_, err = svc.Export(context.Background(), Request{BoardID: "b1", Format: FormatDOCX})
	assert.ErrorIs(t, err, ErrDOCXDependencyMissing)
}

func TestExportBoardNotFound(t *testing.T) {
	svc := NewService(fakeStore{getBoardFn: func(context.Context, string) (store.Board, error) {
		return store.Board{}, store.ErrNotFound
	}}, nil, nil)
	_, err := svc.Export(context.Background(), Request{BoardID: "x", Format: FormatHTML})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpload(t *testing.T) {
	svc := NewService(nil, nil, nil)
	assert.False(t, svc.UploadEnabled())
	_, err := svc.Upload(context.Background(), "b1", &Result{Filename: "a.pdf"})
	assert.ErrorIs(t, err, ErrStorageNotConfigured)

	up := &fakeUploader{}
	svc = NewService(nil, up, nil)
	u, err := svc.Upload(context.Background(), "b1", &Result{Filename: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "https://objects.example/a.pdf", u)
	assert.Equal(t, "b1", up.gotBoard)
}

func TestObjectKeyIsUnique(t *testing.T) {
	a, b := objectKey("b1", "x.pdf"), objectKey("b1", "x.pdf")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "boards/b1/export-"))
	assert.True(t, strings.HasSuffix(a, "-x.pdf"))
}
