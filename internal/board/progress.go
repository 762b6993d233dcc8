package board

import "strings"

// Progress summarizes how far a board has been filled in.
type Progress struct {
	FilledCellCount  int  `json:"filledCellCount"`
	Complete         bool `json:"complete"`
	ContextComplete  bool `json:"contextComplete"`
	CanGenerateBoard bool `json:"canGenerateBoard"`
	CanGenerateTitle bool `json:"canGenerateTitle"`
}

func filled(v string) bool {
	return strings.TrimSpace(v) != ""
}

// FilledCellCount counts the core cells with content: the initial planning
// cells, every standards cell, the driving question and the four phases.
// Milestones and custom columns do not count.
func (c Content) FilledCellCount() int {
	ip, dt := c.InitialPlanning, c.DesignThinking
	values := []string{ip.MainIdea.Value}
	for _, s := range ip.Standards {
		values = append(values, s.Value)
	}
	values = append(values,
		ip.NoticeReflect.Value, ip.CommunityPartners.Value, ip.OpeningActivity.Value,
		dt.DrivingQuestion.Value, dt.Empathize.Value, dt.Define.Value, dt.Ideate.Value, dt.PrototypeTest.Value,
	)
	n := 0
	for _, v := range values {
		if filled(v) {
			n++
		}
	}
	return n
}

// Complete requires five filled core cells and every design thinking cell,
// milestones included.
func (c Content) Complete() bool {
	if c.FilledCellCount() < 5 {
		return false
	}
	for _, name := range DesignThinkingFixed {
		if !filled(fixedCell(&c, name).Value) {
			return false
		}
	}
	return true
}

func (ctx Context) Complete() bool {
	return ctx.State != "" && ctx.GradeLevel != "" && len(ctx.Subjects) > 0
}

func ComputeProgress(c Content, ctx Context) Progress {
	n := c.FilledCellCount()
	return Progress{
		FilledCellCount:  n,
		Complete:         c.Complete(),
		ContextComplete:  ctx.Complete(),
		CanGenerateBoard: n >= 2,
		CanGenerateTitle: filled(c.InitialPlanning.MainIdea.Value),
	}
}
