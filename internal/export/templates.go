package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/generate"
)

//go:embed templates/board.html
var templateFS embed.FS

var boardTemplate = template.Must(
	template.New("board.html").Funcs(template.FuncMap{
		"markdown": RenderMarkdown,
		"join":     strings.Join,
	}).ParseFS(templateFS, "templates/board.html"),
)

// TemplateData is what templates/board.html renders.
type TemplateData struct {
	Title          string
	Context        board.Context
	Progress       board.Progress
	InitialPlan    []board.CellRef
	DesignThinking []board.CellRef
	Agenda         []TemplateSession
	// ReadOnly hides export-only furniture on the in-app board page.
	ReadOnly bool
}

type TemplateSession struct {
	Number int
	board.AgendaEntry
	Lessons []TemplateLesson
}

type TemplateLesson struct {
	Subject       string
	PeriodMinutes int
	Sections      []TemplateSection
}

type TemplateSection struct {
	Label string
	Value string
}

// NewTemplateData splits the board cells by area and attaches lessons to
// their agenda entries. Lessons whose entry is gone are not rendered.
func NewTemplateData(title string, c board.Content, bctx board.Context, lessons []generate.Lesson) TemplateData {
	data := TemplateData{
		Title:    title,
		Context:  bctx,
		Progress: board.ComputeProgress(c, bctx),
	}
	for _, ref := range c.Cells() {
		addr, err := board.ParseAddress(ref.Key)
		if err == nil && inDesignThinking(addr) {
			data.DesignThinking = append(data.DesignThinking, ref)
			continue
		}
		data.InitialPlan = append(data.InitialPlan, ref)
	}

	byEntry := map[string][]TemplateLesson{}
	for _, l := range lessons {
		tl := TemplateLesson{Subject: l.Subject, PeriodMinutes: l.PeriodMinutes}
		for _, f := range board.LessonFields {
			tl.Sections = append(tl.Sections, TemplateSection{Label: f.Label(), Value: l.Content.Field(f)})
		}
		byEntry[l.AgendaEntryID] = append(byEntry[l.AgendaEntryID], tl)
	}
	for i, e := range c.Agenda {
		data.Agenda = append(data.Agenda, TemplateSession{Number: i + 1, AgendaEntry: e, Lessons: byEntry[e.ID]})
	}
	return data
}

func inDesignThinking(addr board.Address) bool {
	switch a := addr.(type) {
	case board.FixedCell:
		for _, name := range board.DesignThinkingFixed {
			if a.Name == name {
				return true
			}
		}
	case board.AdditionalCell:
		return a.Area == board.AreaDesignThinking
	}
	return false
}

func RenderBoardHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := boardTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
