package board

import "errors"

var ErrAgendaEntryNotFound = errors.New("agenda entry not found")

// WithSubjects re-derives the standards cells for subjects.
func (c Content) WithSubjects(subjects []string) Content {
	c.InitialPlanning.Standards = SyncStandards(c.InitialPlanning.Standards, subjects)
	return c
}

// WithAdditional appends an empty custom column to area.
func (c Content) WithAdditional(area Area) Content {
	subtitle := additionalPlanningSubtitle
	if area == AreaDesignThinking {
		subtitle = additionalDTSubtitle
	}
	cells := append(append([]Cell(nil), c.additional(area)...), NewCell(additionalLabel, subtitle))
	c.setAdditional(area, cells)
	return c
}

// WithoutAdditional removes the custom column at index. Later columns shift down.
func (c Content) WithoutAdditional(area Area, index int) (Content, bool) {
	cells := c.additional(area)
	if index < 0 || index >= len(cells) {
		return c, false
	}
	next := make([]Cell, 0, len(cells)-1)
	next = append(next, cells[:index]...)
	next = append(next, cells[index+1:]...)
	c.setAdditional(area, next)
	return c, true
}

// WithAgendaEntry appends a blank session.
func (c Content) WithAgendaEntry() (Content, AgendaEntry) {
	entry := NewAgendaEntry()
	c.Agenda = append(append([]AgendaEntry(nil), c.Agenda...), entry)
	return c, entry
}

func (c Content) AgendaEntry(id string) (AgendaEntry, int, bool) {
	for i, e := range c.Agenda {
		if e.ID == id {
			return e, i, true
		}
	}
	return AgendaEntry{}, -1, false
}

// AgendaPatch carries the fields to change on one agenda entry; nil fields are kept.
type AgendaPatch struct {
	Date          *string `json:"date"`
	Leads         *string `json:"leads"`
	EventsContent *string `json:"eventsContent"`
	Reflection    *string `json:"reflection"`
}

func (c Content) WithAgendaPatch(id string, patch AgendaPatch) (Content, error) {
	_, idx, ok := c.AgendaEntry(id)
	if !ok {
		return c, ErrAgendaEntryNotFound
	}
	next := append([]AgendaEntry(nil), c.Agenda...)
	e := &next[idx]
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.Leads != nil {
		e.Leads = *patch.Leads
	}
	if patch.EventsContent != nil {
		e.EventsContent = *patch.EventsContent
	}
	if patch.Reflection != nil {
		e.Reflection = *patch.Reflection
	}
	c.Agenda = next
	return c, nil
}

func (c Content) WithoutAgendaEntry(id string) (Content, error) {
	_, idx, ok := c.AgendaEntry(id)
	if !ok {
		return c, ErrAgendaEntryNotFound
	}
	next := make([]AgendaEntry, 0, len(c.Agenda)-1)
	next = append(next, c.Agenda[:idx]...)
	next = append(next, c.Agenda[idx+1:]...)
	c.Agenda = next
	return c, nil
}

// WithAgenda replaces the whole agenda.
func (c Content) WithAgenda(entries []AgendaEntry) Content {
	c.Agenda = append([]AgendaEntry(nil), entries...)
	return c
}
