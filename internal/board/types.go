// Package board holds the design board document: its cells, the address
// space used to reach them, load-time migrations and progress metrics.
//
// Content values are treated as immutable. Every mutator returns a new
// Content and copies any slice it changes, so snapshots held by the edit
// history never alias live data.
package board

type Cell struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Subtitle string `json:"subtitle,omitempty"`
	Value    string `json:"value"`
}

type AgendaEntry struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Leads         string `json:"leads"`
	EventsContent string `json:"eventsContent"`
	Reflection    string `json:"reflection"`
}

type InitialPlanning struct {
	MainIdea          Cell   `json:"mainIdea"`
	Standards         []Cell `json:"standards"`
	NoticeReflect     Cell   `json:"noticeReflect"`
	CommunityPartners Cell   `json:"communityPartners"`
	OpeningActivity   Cell   `json:"openingActivity"`
	Additional        []Cell `json:"additional"`
}

type DesignThinking struct {
	DrivingQuestion        Cell   `json:"drivingQuestion"`
	Empathize              Cell   `json:"empathize"`
	MilestoneEmpathize     Cell   `json:"milestoneEmpathize"`
	Define                 Cell   `json:"define"`
	MilestoneDefine        Cell   `json:"milestoneDefine"`
	Ideate                 Cell   `json:"ideate"`
	MilestoneIdeate        Cell   `json:"milestoneIdeate"`
	PrototypeTest          Cell   `json:"prototypeTest"`
	MilestonePrototypeTest Cell   `json:"milestonePrototypeTest"`
	Additional             []Cell `json:"additional"`
}

// Content is the persisted document of one board.
type Content struct {
	InitialPlanning InitialPlanning `json:"initialPlanning"`
	DesignThinking  DesignThinking  `json:"designThinking"`
	Agenda          []AgendaEntry   `json:"agenda"`
}

// Context is stored next to the content as separate board columns.
type Context struct {
	State      string   `json:"state,omitempty"`
	GradeLevel string   `json:"gradeLevel,omitempty"`
	Subjects   []string `json:"subjects,omitempty"`
	Location   string   `json:"location,omitempty"`
}

// DefaultSubjects is used when a board has no subjects configured.
var DefaultSubjects = []string{"Math", "English Language Arts", "Science", "Social Studies"}

// LessonContent is the body of one lesson plan.
type LessonContent struct {
	LearningObjectives   string `json:"learningObjectives"`
	Materials            string `json:"materials"`
	WarmUpHook           string `json:"warmUpHook"`
	MainActivities       string `json:"mainActivities"`
	ClosingExitTicket    string `json:"closingExitTicket"`
	DifferentiationNotes string `json:"differentiationNotes"`
	StandardsAddressed   string `json:"standardsAddressed"`
}
