package board

import "strings"

// CellRef is one addressable board cell as listed by Cells.
type CellRef struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Cells lists every board cell in display order: initial planning fixed
// cells with standards after the main idea, custom planning columns, design
// thinking cells and custom design thinking columns. Agenda entries are not
// cells.
func (c Content) Cells() []CellRef {
	ip, dt := c.InitialPlanning, c.DesignThinking
	refs := []CellRef{{Key: string(MainIdea), Label: ip.MainIdea.Label, Value: ip.MainIdea.Value}}
	for _, s := range ip.Standards {
		subject := strings.TrimPrefix(s.Label, StandardsLabel(""))
		refs = append(refs, CellRef{Key: StandardsCell{Subject: subject}.Key(), Label: s.Label, Value: s.Value})
	}
	for _, name := range InitialPlanningFixed[1:] {
		cell := fixedCell(&c, name)
		refs = append(refs, CellRef{Key: string(name), Label: cell.Label, Value: cell.Value})
	}
	for i, cell := range ip.Additional {
		refs = append(refs, CellRef{Key: AdditionalCell{Area: AreaInitialPlanning, Index: i}.Key(), Label: cell.Label, Value: cell.Value})
	}
	for _, name := range DesignThinkingFixed {
		cell := fixedCell(&c, name)
		refs = append(refs, CellRef{Key: string(name), Label: cell.Label, Value: cell.Value})
	}
	for i, cell := range dt.Additional {
		refs = append(refs, CellRef{Key: AdditionalCell{Area: AreaDesignThinking, Index: i}.Key(), Label: cell.Label, Value: cell.Value})
	}
	return refs
}

// ChangedCells returns the keys whose values differ between a and b, in b's
// cell order followed by keys only present in a.
func ChangedCells(a, b Content) []CellRef {
	before := map[string]string{}
	for _, ref := range a.Cells() {
		before[ref.Key] = ref.Value
	}
	var out []CellRef
	seen := map[string]bool{}
	for _, ref := range b.Cells() {
		seen[ref.Key] = true
		if old, ok := before[ref.Key]; !ok || old != ref.Value {
			out = append(out, ref)
		}
	}
	for _, ref := range a.Cells() {
		if !seen[ref.Key] {
			out = append(out, CellRef{Key: ref.Key, Label: ref.Label})
		}
	}
	return out
}
