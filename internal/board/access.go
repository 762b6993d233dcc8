package board

// fixedCell returns a pointer into c for name. Callers must only write
// through it on a copy of the Content.
func fixedCell(c *Content, name FixedName) *Cell {
	ip, dt := &c.InitialPlanning, &c.DesignThinking
	switch name {
	case MainIdea:
		return &ip.MainIdea
	case NoticeReflect:
		return &ip.NoticeReflect
	case CommunityPartners:
		return &ip.CommunityPartners
	case OpeningActivity:
		return &ip.OpeningActivity
	case DrivingQuestion:
		return &dt.DrivingQuestion
	case Empathize:
		return &dt.Empathize
	case MilestoneEmpathize:
		return &dt.MilestoneEmpathize
	case Define:
		return &dt.Define
	case MilestoneDefine:
		return &dt.MilestoneDefine
	case Ideate:
		return &dt.Ideate
	case MilestoneIdeate:
		return &dt.MilestoneIdeate
	case PrototypeTest:
		return &dt.PrototypeTest
	case MilestonePrototypeTest:
		return &dt.MilestonePrototypeTest
	}
	return nil
}

func (c Content) additional(area Area) []Cell {
	if area == AreaDesignThinking {
		return c.DesignThinking.Additional
	}
	return c.InitialPlanning.Additional
}

func (c *Content) setAdditional(area Area, cells []Cell) {
	if area == AreaDesignThinking {
		c.DesignThinking.Additional = cells
		return
	}
	c.InitialPlanning.Additional = cells
}

// Cell looks up the board cell at addr. Lesson addresses never resolve here.
func (c Content) Cell(addr Address) (Cell, bool) {
	switch a := addr.(type) {
	case FixedCell:
		if p := fixedCell(&c, a.Name); p != nil {
			return *p, true
		}
	case StandardsCell:
		return findByLabel(c.InitialPlanning.Standards, StandardsLabel(a.Subject))
	case AdditionalCell:
		cells := c.additional(a.Area)
		if a.Index >= 0 && a.Index < len(cells) {
			return cells[a.Index], true
		}
	}
	return Cell{}, false
}

// Value returns the value at key, or "" when the key does not resolve.
func (c Content) Value(key string) string {
	addr, err := ParseAddress(key)
	if err != nil {
		return ""
	}
	cell, _ := c.Cell(addr)
	return cell.Value
}

// WithValue returns a copy of c with the cell at key set to value. Keys that
// do not resolve to a board cell leave c unchanged.
func (c Content) WithValue(key, value string) Content {
	addr, err := ParseAddress(key)
	if err != nil {
		return c
	}
	out, _ := c.WithAddressValue(addr, value)
	return out
}

// WithAddressValue is WithValue for a parsed address. ok is false when addr
// does not name a board cell.
func (c Content) WithAddressValue(addr Address, value string) (Content, bool) {
	switch a := addr.(type) {
	case FixedCell:
		p := fixedCell(&c, a.Name)
		if p == nil {
			return c, false
		}
		p.Value = value
		return c, true
	case StandardsCell:
		label := StandardsLabel(a.Subject)
		cells := c.InitialPlanning.Standards
		for i := range cells {
			if cells[i].Label == label {
				next := append([]Cell(nil), cells...)
				next[i].Value = value
				c.InitialPlanning.Standards = next
				return c, true
			}
		}
	case AdditionalCell:
		cells := c.additional(a.Area)
		if a.Index >= 0 && a.Index < len(cells) {
			next := append([]Cell(nil), cells...)
			next[a.Index].Value = value
			c.setAdditional(a.Area, next)
			return c, true
		}
	}
	return c, false
}

// Label returns the display label of the cell at key, falling back to the key.
func (c Content) Label(key string) string {
	addr, err := ParseAddress(key)
	if err != nil {
		return key
	}
	if cell, ok := c.Cell(addr); ok && cell.Label != "" {
		return cell.Label
	}
	return key
}

// Field returns the text of one lesson section.
func (l LessonContent) Field(f LessonField) string {
	switch f {
	case LearningObjectives:
		return l.LearningObjectives
	case Materials:
		return l.Materials
	case WarmUpHook:
		return l.WarmUpHook
	case MainActivities:
		return l.MainActivities
	case ClosingExitTicket:
		return l.ClosingExitTicket
	case DifferentiationNotes:
		return l.DifferentiationNotes
	case StandardsAddressed:
		return l.StandardsAddressed
	}
	return ""
}

// WithField returns a copy of l with section f replaced.
func (l LessonContent) WithField(f LessonField, value string) LessonContent {
	switch f {
	case LearningObjectives:
		l.LearningObjectives = value
	case Materials:
		l.Materials = value
	case WarmUpHook:
		l.WarmUpHook = value
	case MainActivities:
		l.MainActivities = value
	case ClosingExitTicket:
		l.ClosingExitTicket = value
	case DifferentiationNotes:
		l.DifferentiationNotes = value
	case StandardsAddressed:
		l.StandardsAddressed = value
	}
	return l
}
