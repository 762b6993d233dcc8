package board

import (
	"encoding/json"
	"strings"
)

// Decode parses a stored content blob and upgrades older layouts. Content
// that is not valid JSON yields an empty board.
func Decode(raw string) Content {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		return NewContent()
	}
	Migrate(doc)
	buf, err := json.Marshal(doc)
	if err != nil {
		return NewContent()
	}
	var c Content
	if err := json.Unmarshal(buf, &c); err != nil {
		return NewContent()
	}
	return c.fillDefaults()
}

// Load decodes raw, applies the default subject list when subjects is empty
// and syncs standards cells. It returns the content and the effective subjects.
func Load(raw string, subjects []string) (Content, []string) {
	c := Decode(raw)
	if len(subjects) == 0 {
		subjects = append([]string(nil), DefaultSubjects...)
	}
	return c.WithSubjects(subjects), subjects
}

// DecodeSubjects parses the stored subjects column, ignoring malformed input.
func DecodeSubjects(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var subjects []string
	if err := json.Unmarshal([]byte(raw), &subjects); err != nil {
		return nil
	}
	return subjects
}

func (c Content) Encode() (string, error) {
	buf, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Migrate upgrades a raw content document in place. It is idempotent and
// reports whether anything changed.
//
//   - milestone1/2/3 become milestoneEmpathize/Define/PrototypeTest, and
//     milestoneIdeate is added empty
//   - a single standards cell becomes a one element list labelled
//     "Standards: General", or an empty list when it had no value
//   - communityPartners and both additional lists are created when missing
func Migrate(doc map[string]any) bool {
	changed := false
	if dt, ok := doc["designThinking"].(map[string]any); ok {
		if _, legacy := dt["milestone1"]; legacy {
			empty := newDesignThinking()
			dt["milestoneEmpathize"] = orDefault(dt["milestone1"], empty.MilestoneEmpathize)
			dt["milestoneDefine"] = orDefault(dt["milestone2"], empty.MilestoneDefine)
			dt["milestoneIdeate"] = cellMap(empty.MilestoneIdeate)
			dt["milestonePrototypeTest"] = orDefault(dt["milestone3"], empty.MilestonePrototypeTest)
			delete(dt, "milestone1")
			delete(dt, "milestone2")
			delete(dt, "milestone3")
			changed = true
		}
		if _, ok := dt["additional"].([]any); !ok {
			dt["additional"] = []any{}
			changed = true
		}
	}
	if ip, ok := doc["initialPlanning"].(map[string]any); ok {
		if old, present := ip["standards"]; present && old != nil {
			if _, isList := old.([]any); !isList {
				ip["standards"] = migrateStandards(old)
				changed = true
			}
		}
		if !truthy(ip["communityPartners"]) {
			ip["communityPartners"] = cellMap(newCommunityPartnersCell())
			changed = true
		}
		if _, ok := ip["additional"].([]any); !ok {
			ip["additional"] = []any{}
			changed = true
		}
	}
	return changed
}

func migrateStandards(old any) []any {
	cell, ok := old.(map[string]any)
	if !ok {
		return []any{}
	}
	if v, _ := cell["value"].(string); v == "" {
		return []any{}
	}
	next := make(map[string]any, len(cell)+1)
	for k, v := range cell {
		next[k] = v
	}
	next["label"] = "Standards: General"
	return []any{next}
}

func orDefault(v any, fallback Cell) any {
	if truthy(v) {
		return v
	}
	return cellMap(fallback)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	}
	return true
}

func cellMap(c Cell) map[string]any {
	m := map[string]any{"id": c.ID, "label": c.Label, "value": c.Value}
	if c.Subtitle != "" {
		m["subtitle"] = c.Subtitle
	}
	return m
}

// fillDefaults restores fixed cells that a partial document left blank and
// replaces nil lists with empty ones.
func (c Content) fillDefaults() Content {
	fresh := NewContent()
	for _, name := range append(append([]FixedName(nil), InitialPlanningFixed...), DesignThinkingFixed...) {
		p := fixedCell(&c, name)
		if p.Label != "" {
			continue
		}
		def := fixedCell(&fresh, name)
		p.Label, p.Subtitle = def.Label, def.Subtitle
		if p.ID == "" {
			p.ID = def.ID
		}
	}
	if c.InitialPlanning.Standards == nil {
		c.InitialPlanning.Standards = []Cell{}
	}
	if c.InitialPlanning.Additional == nil {
		c.InitialPlanning.Additional = []Cell{}
	}
	if c.DesignThinking.Additional == nil {
		c.DesignThinking.Additional = []Cell{}
	}
	if c.Agenda == nil {
		c.Agenda = []AgendaEntry{}
	}
	return c
}

// DecodeLesson parses a stored lesson plan. Malformed input yields an empty
// lesson.
func DecodeLesson(raw string) LessonContent {
	var l LessonContent
	_ = json.Unmarshal([]byte(raw), &l)
	return l
}

func (l LessonContent) Encode() (string, error) {
	buf, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
