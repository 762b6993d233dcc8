package board

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrUnknownAddress = errors.New("unknown cell address")

// Address names one editable cell. It is one of FixedCell, StandardsCell,
// AdditionalCell or LessonSectionCell; Key renders it in the flat string
// form used on the wire.
type Address interface {
	Key() string
	isAddress()
}

type FixedName string

const (
	MainIdea               FixedName = "mainIdea"
	NoticeReflect          FixedName = "noticeReflect"
	CommunityPartners      FixedName = "communityPartners"
	OpeningActivity        FixedName = "openingActivity"
	DrivingQuestion        FixedName = "drivingQuestion"
	Empathize              FixedName = "empathize"
	MilestoneEmpathize     FixedName = "milestoneEmpathize"
	Define                 FixedName = "define"
	MilestoneDefine        FixedName = "milestoneDefine"
	Ideate                 FixedName = "ideate"
	MilestoneIdeate        FixedName = "milestoneIdeate"
	PrototypeTest          FixedName = "prototypeTest"
	MilestonePrototypeTest FixedName = "milestonePrototypeTest"
)

// InitialPlanningFixed and DesignThinkingFixed list the fixed cells in board order.
var (
	InitialPlanningFixed = []FixedName{MainIdea, NoticeReflect, CommunityPartners, OpeningActivity}
	DesignThinkingFixed  = []FixedName{
		DrivingQuestion,
		Empathize, MilestoneEmpathize,
		Define, MilestoneDefine,
		Ideate, MilestoneIdeate,
		PrototypeTest, MilestonePrototypeTest,
	}
)

func isFixed(name string) bool {
	for _, n := range InitialPlanningFixed {
		if string(n) == name {
			return true
		}
	}
	for _, n := range DesignThinkingFixed {
		if string(n) == name {
			return true
		}
	}
	return false
}

type Area int

const (
	AreaInitialPlanning Area = iota
	AreaDesignThinking
)

func (a Area) String() string {
	if a == AreaDesignThinking {
		return "designThinking"
	}
	return "initialPlanning"
}

// ParseArea accepts "initialPlanning" and "designThinking".
func ParseArea(s string) (Area, error) {
	switch s {
	case "initialPlanning":
		return AreaInitialPlanning, nil
	case "designThinking":
		return AreaDesignThinking, nil
	}
	return 0, fmt.Errorf("%w: area %q", ErrUnknownAddress, s)
}

type LessonField string

const (
	LearningObjectives   LessonField = "learningObjectives"
	Materials            LessonField = "materials"
	WarmUpHook           LessonField = "warmUpHook"
	MainActivities       LessonField = "mainActivities"
	ClosingExitTicket    LessonField = "closingExitTicket"
	DifferentiationNotes LessonField = "differentiationNotes"
	StandardsAddressed   LessonField = "standardsAddressed"
)

// LessonFields lists the lesson plan sections in display order.
var LessonFields = []LessonField{
	LearningObjectives, Materials, WarmUpHook, MainActivities,
	ClosingExitTicket, DifferentiationNotes, StandardsAddressed,
}

var lessonFieldLabels = map[LessonField]string{
	LearningObjectives:   "Learning Objectives",
	Materials:            "Materials Needed",
	WarmUpHook:           "Warm-Up / Hook",
	MainActivities:       "Main Activities",
	ClosingExitTicket:    "Closing / Exit Ticket",
	DifferentiationNotes: "Differentiation",
	StandardsAddressed:   "Standards Addressed",
}

func (f LessonField) Label() string {
	return lessonFieldLabels[f]
}

func ParseLessonField(s string) (LessonField, bool) {
	f := LessonField(s)
	_, ok := lessonFieldLabels[f]
	return f, ok
}

type FixedCell struct{ Name FixedName }

type StandardsCell struct{ Subject string }

// AdditionalCell is positional: removing an earlier column renumbers later ones.
type AdditionalCell struct {
	Area  Area
	Index int
}

type LessonSectionCell struct {
	LessonID string
	Field    LessonField
}

func (a FixedCell) Key() string     { return string(a.Name) }
func (a StandardsCell) Key() string { return "standards-" + a.Subject }
func (a AdditionalCell) Key() string {
	if a.Area == AreaDesignThinking {
		return "dt-additional-" + strconv.Itoa(a.Index)
	}
	return "additional-" + strconv.Itoa(a.Index)
}
func (a LessonSectionCell) Key() string { return "lesson-" + a.LessonID + "-" + string(a.Field) }

func (FixedCell) isAddress()         {}
func (StandardsCell) isAddress()     {}
func (AdditionalCell) isAddress()    {}
func (LessonSectionCell) isAddress() {}

var lessonKeyRe = regexp.MustCompile(`^lesson-(.+)-(learningObjectives|materials|warmUpHook|mainActivities|closingExitTicket|differentiationNotes|standardsAddressed)$`)

// ParseAddress maps a flat cell key to its Address.
func ParseAddress(key string) (Address, error) {
	switch {
	case isFixed(key):
		return FixedCell{Name: FixedName(key)}, nil
	case strings.HasPrefix(key, "standards-"):
		return StandardsCell{Subject: strings.TrimPrefix(key, "standards-")}, nil
	case strings.HasPrefix(key, "additional-"):
		idx, err := strconv.Atoi(strings.TrimPrefix(key, "additional-"))
		if err != nil || idx < 0 {
			break
		}
		return AdditionalCell{Area: AreaInitialPlanning, Index: idx}, nil
	case strings.HasPrefix(key, "dt-additional-"):
		idx, err := strconv.Atoi(strings.TrimPrefix(key, "dt-additional-"))
		if err != nil || idx < 0 {
			break
		}
		return AdditionalCell{Area: AreaDesignThinking, Index: idx}, nil
	case strings.HasPrefix(key, "lesson-"):
		m := lessonKeyRe.FindStringSubmatch(key)
		if m == nil {
			break
		}
		return LessonSectionCell{LessonID: m[1], Field: LessonField(m[2])}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAddress, key)
}
