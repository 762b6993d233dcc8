package board

import "pblboard/api/internal/util"

const (
	additionalLabel            = "Additional"
	additionalPlanningSubtitle = "Custom planning column"
	additionalDTSubtitle       = "Custom design thinking column"
	communityPartnersSubtitle  = "Local organizations, businesses, or individuals who could partner on this project"
)

func NewCell(label, subtitle string) Cell {
	return Cell{ID: util.NewID("cell"), Label: label, Subtitle: subtitle}
}

func NewAgendaEntry() AgendaEntry {
	return AgendaEntry{ID: util.NewID("agenda")}
}

func StandardsLabel(subject string) string {
	return "Standards: " + subject
}

func NewStandardsCell(subject string) Cell {
	return NewCell(StandardsLabel(subject), "Which "+subject+" standards will be addressed?")
}

func newCommunityPartnersCell() Cell {
	return NewCell("Community Partners", communityPartnersSubtitle)
}

// NewContent returns an empty board with a single blank agenda entry.
func NewContent() Content {
	return Content{
		InitialPlanning: InitialPlanning{
			MainIdea:          NewCell("Main Idea / Topic", "What is the big idea or theme?"),
			Standards:         []Cell{},
			NoticeReflect:     NewCell("Notice & Reflect", "What should students notice and reflect on?"),
			CommunityPartners: newCommunityPartnersCell(),
			OpeningActivity:   NewCell("Opening Activity", "How will you hook students?"),
			Additional:        []Cell{},
		},
		DesignThinking: newDesignThinking(),
		Agenda:         []AgendaEntry{NewAgendaEntry()},
	}
}

func newDesignThinking() DesignThinking {
	return DesignThinking{
		DrivingQuestion:        NewCell("Driving Question", "An open-ended question that guides the project"),
		Empathize:              NewCell("Empathize", "How will students understand the people they are designing for?"),
		MilestoneEmpathize:     NewCell("Milestone: Empathize", "Checkpoint: what should students demonstrate after empathy work?"),
		Define:                 NewCell("Define", "What is the specific problem or need?"),
		MilestoneDefine:        NewCell("Milestone: Define", "Checkpoint: how will students show they have defined the problem?"),
		Ideate:                 NewCell("Ideate", "How will students brainstorm solutions?"),
		MilestoneIdeate:        NewCell("Milestone: Ideate", "Checkpoint: what evidence of creative thinking will students produce?"),
		PrototypeTest:          NewCell("Prototype & Test", "How will students build and test solutions?"),
		MilestonePrototypeTest: NewCell("Milestone: Prototype & Test", "Final deliverable and presentation to an authentic audience"),
		Additional:             []Cell{},
	}
}

// NewContentForSubjects is NewContent with standards cells for subjects.
func NewContentForSubjects(subjects []string) Content {
	c := NewContent()
	c.InitialPlanning.Standards = SyncStandards(nil, subjects)
	return c
}

// SyncStandards returns one standards cell per subject, in subject order.
// Existing cells are matched by label and kept as-is; cells for subjects no
// longer listed are dropped.
func SyncStandards(existing []Cell, subjects []string) []Cell {
	out := make([]Cell, 0, len(subjects))
	for _, subject := range subjects {
		label := StandardsLabel(subject)
		cell, ok := findByLabel(existing, label)
		if !ok {
			cell = NewStandardsCell(subject)
		}
		out = append(out, cell)
	}
	return out
}

func findByLabel(cells []Cell, label string) (Cell, bool) {
	for _, c := range cells {
		if c.Label == label {
			return c, true
		}
	}
	return Cell{}, false
}
