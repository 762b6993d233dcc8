package generate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pblboard/api/internal/board"
)

// ApplyVariation writes every generated value into c. Standards are mapped
// onto subjects by name; a single-string fallback fills the first cell.
func ApplyVariation(c board.Content, subjects []string, v Variation) board.Content {
	ip := c.InitialPlanning
	var standards []board.Cell
	if v.Standards.List != nil {
		standards = make([]board.Cell, 0, len(subjects))
		for _, subject := range subjects {
			cell := board.NewStandardsCell(subject)
			for _, existing := range ip.Standards {
				if existing.Label == cell.Label {
					cell = existing
					break
				}
			}
			cell.Value = ""
			for _, s := range v.Standards.List {
				if s.Subject == subject {
					cell.Value = s.Content
					break
				}
			}
			standards = append(standards, cell)
		}
	} else {
		standards = append([]board.Cell(nil), ip.Standards...)
		if len(standards) > 0 {
			standards[0].Value = v.Standards.Text
		}
	}
	ip.Standards = standards
	c.InitialPlanning = ip

	for name, value := range map[board.FixedName]string{
		board.MainIdea:               v.MainIdea,
		board.NoticeReflect:          v.NoticeReflect,
		board.CommunityPartners:      v.CommunityPartners,
		board.OpeningActivity:        v.OpeningActivity,
		board.DrivingQuestion:        v.DrivingQuestion,
		board.Empathize:              v.Empathize,
		board.MilestoneEmpathize:     v.MilestoneEmpathize,
		board.Define:                 v.Define,
		board.MilestoneDefine:        v.MilestoneDefine,
		board.Ideate:                 v.Ideate,
		board.MilestoneIdeate:        v.MilestoneIdeate,
		board.PrototypeTest:          v.PrototypeTest,
		board.MilestonePrototypeTest: v.MilestonePrototypeTest,
	} {
		c, _ = c.WithAddressValue(board.FixedCell{Name: name}, value)
	}
	return c
}

// AgendaFromSessions turns generated sessions into fresh agenda entries.
func AgendaFromSessions(sessions []Session) []board.AgendaEntry {
	out := make([]board.AgendaEntry, 0, len(sessions))
	for _, s := range sessions {
		e := board.NewAgendaEntry()
		e.Date = s.DesignPhase
		e.Leads = s.Title
		e.EventsContent = s.EventsContent
		e.Reflection = s.Reflection
		out = append(out, e)
	}
	return out
}

// AppendSection adds text below current, or returns text for a blank cell.
func AppendSection(current, text string) string {
	if strings.TrimSpace(current) == "" {
		return text
	}
	return strings.TrimRight(current, " \t\r\n") + "\n" + text
}

func AddFeedback(description string) string {
	return "Add a NEW section to this cell about: " + description +
		". Generate ONLY the new section content (one bold-header section with sub-bullets). Do NOT repeat any existing content."
}

func TitleFeedback(c board.Content, bctx board.Context) string {
	var b strings.Builder
	b.WriteString("Generate a short, creative, engaging project title (3-8 words) for a PBL board. ")
	b.WriteString("The main idea is: " + c.InitialPlanning.MainIdea.Value + ". ")
	if len(bctx.Subjects) > 0 {
		b.WriteString("Subjects: " + strings.Join(bctx.Subjects, ", ") + ". ")
	}
	if bctx.GradeLevel != "" {
		b.WriteString("Grade level: " + bctx.GradeLevel + ". ")
	}
	b.WriteString("Return ONLY the title text, no formatting, no quotes, no explanation.")
	return b.String()
}

var wrappingQuotes = regexp.MustCompile(`^["']|["']$`)

// CleanTitle strips one wrapping quote from each end.
func CleanTitle(s string) string {
	return strings.TrimSpace(wrappingQuotes.ReplaceAllString(s, ""))
}

func LessonSectionLabel(subject string, field board.LessonField) string {
	return subject + " — " + field.Label()
}

func LessonSectionFeedback(subject string, periodMinutes int, field board.LessonField, feedback string) string {
	return "This is a section of a lesson plan for " + subject + " (" + strconv.Itoa(periodMinutes) + " min period). " +
		"Improve this " + field.Label() + " section based on teacher feedback: " + feedback +
		". Keep it student-centered and inquiry-driven."
}

// AgendaField names an improvable agenda entry field.
type AgendaField string

const (
	AgendaEventsContent AgendaField = "eventsContent"
	AgendaReflection    AgendaField = "reflection"
)

func (f AgendaField) describe(e board.AgendaEntry) (cellID, label, value string, err error) {
	switch f {
	case AgendaEventsContent:
		return "agendaEventsContent", "Session Activities", e.EventsContent, nil
	case AgendaReflection:
		return "agendaReflection", "Session Reflection", e.Reflection, nil
	}
	return "", "", "", fmt.Errorf("generate: unknown agenda field %q", string(f))
}

func (f AgendaField) patch(value string) board.AgendaPatch {
	if f == AgendaReflection {
		return board.AgendaPatch{Reflection: &value}
	}
	return board.AgendaPatch{EventsContent: &value}
}
