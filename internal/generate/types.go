package generate

import (
	"encoding/json"
	"strings"
)

type Suggestion struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale"`
}

type suggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// SubjectStandards is one entry of a per-subject standards list.
type SubjectStandards struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// Standards decodes from either a per-subject list or a single string.
type Standards struct {
	List []SubjectStandards
	Text string
}

func (s *Standards) UnmarshalJSON(raw []byte) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		*s = Standards{}
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []SubjectStandards
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		*s = Standards{List: list}
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return err
	}
	*s = Standards{Text: text}
	return nil
}

func (s Standards) MarshalJSON() ([]byte, error) {
	if s.List != nil {
		return json.Marshal(s.List)
	}
	return json.Marshal(s.Text)
}

// Variation is a complete generated board.
type Variation struct {
	Title                  string    `json:"title"`
	MainIdea               string    `json:"mainIdea"`
	Standards              Standards `json:"standards"`
	NoticeReflect          string    `json:"noticeReflect"`
	CommunityPartners      string    `json:"communityPartners"`
	OpeningActivity        string    `json:"openingActivity"`
	DrivingQuestion        string    `json:"drivingQuestion"`
	Empathize              string    `json:"empathize"`
	MilestoneEmpathize     string    `json:"milestoneEmpathize"`
	Define                 string    `json:"define"`
	MilestoneDefine        string    `json:"milestoneDefine"`
	Ideate                 string    `json:"ideate"`
	MilestoneIdeate        string    `json:"milestoneIdeate"`
	PrototypeTest          string    `json:"prototypeTest"`
	MilestonePrototypeTest string    `json:"milestonePrototypeTest"`
}

// Session is one generated agenda day.
type Session struct {
	Title         string `json:"title"`
	EventsContent string `json:"eventsContent"`
	DesignPhase   string `json:"designPhase"`
	Reflection    string `json:"reflection"`
}

type agendaResponse struct {
	Sessions []Session `json:"sessions"`
}

const (
	RatingStrong         = "strong"
	RatingDeveloping     = "developing"
	RatingNeedsAttention = "needs_attention"
)

type Criterion struct {
	Criterion     string   `json:"criterion"`
	Rating        string   `json:"rating"`
	Feedback      string   `json:"feedback"`
	Suggestions   []string `json:"suggestions"`
	RelevantCells []string `json:"relevantCells"`
}

// Critique is the HQPBL review of a board.
type Critique struct {
	OverallSummary string      `json:"overallSummary"`
	Criteria       []Criterion `json:"criteria"`
}

type ProposedChange struct {
	CellID        string `json:"cellId"`
	CellLabel     string `json:"cellLabel"`
	CurrentValue  string `json:"currentValue"`
	ProposedValue string `json:"proposedValue"`
	Rationale     string `json:"rationale"`
}

// Reply is a collaborator answer.
type Reply struct {
	Message         string           `json:"message"`
	ProposedChanges []ProposedChange `json:"proposedChanges"`
}
