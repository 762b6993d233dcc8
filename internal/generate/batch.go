package generate

import (
	"errors"

	"pblboard/api/internal/board"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

var (
	ErrProposalIndex    = errors.New("generate: proposal index out of range")
	ErrProposalResolved = errors.New("generate: proposal already resolved")
)

// Batch tracks the accept/reject state of one collaborator reply. Every
// change starts pending and is resolved exactly once.
type Batch struct {
	Message  string           `json:"message"`
	Changes  []ProposedChange `json:"proposedChanges"`
	Statuses []Status         `json:"statuses"`
}

func NewBatch(r Reply) *Batch {
	statuses := make([]Status, len(r.ProposedChanges))
	for i := range statuses {
		statuses[i] = StatusPending
	}
	return &Batch{
		Message:  r.Message,
		Changes:  append([]ProposedChange{}, r.ProposedChanges...),
		Statuses: statuses,
	}
}

func (b *Batch) resolve(i int, s Status) (ProposedChange, error) {
	if i < 0 || i >= len(b.Changes) {
		return ProposedChange{}, ErrProposalIndex
	}
	if b.Statuses[i] != StatusPending {
		return ProposedChange{}, ErrProposalResolved
	}
	b.Statuses[i] = s
	return b.Changes[i], nil
}

func (b *Batch) Accept(i int) (ProposedChange, error) { return b.resolve(i, StatusAccepted) }

func (b *Batch) Reject(i int) error {
	_, err := b.resolve(i, StatusRejected)
	return err
}

// AcceptAll accepts every pending change and returns them in order.
func (b *Batch) AcceptAll() []ProposedChange {
	var out []ProposedChange
	for i, s := range b.Statuses {
		if s == StatusPending {
			b.Statuses[i] = StatusAccepted
			out = append(out, b.Changes[i])
		}
	}
	return out
}

func (b *Batch) PendingCount() int {
	n := 0
	for _, s := range b.Statuses {
		if s == StatusPending {
			n++
		}
	}
	return n
}

// LessonEdit is a proposed change addressed to a lesson plan section.
type LessonEdit struct {
	LessonID string
	Field    board.LessonField
	Value    string
}

// Route splits changes into board changes and lesson section edits by
// their cell key.
func Route(changes []ProposedChange) (boardChanges []ProposedChange, lessonEdits []LessonEdit) {
	for _, ch := range changes {
		if addr, err := board.ParseAddress(ch.CellID); err == nil {
			if l, ok := addr.(board.LessonSectionCell); ok {
				lessonEdits = append(lessonEdits, LessonEdit{LessonID: l.LessonID, Field: l.Field, Value: ch.ProposedValue})
				continue
			}
		}
		boardChanges = append(boardChanges, ch)
	}
	return boardChanges, lessonEdits
}

// ApplyToBoard folds changes into c as one combined value. Changes whose
// key resolves to no board cell are returned as skipped.
func ApplyToBoard(c board.Content, changes []ProposedChange) (board.Content, []string) {
	var skipped []string
	for _, ch := range changes {
		addr, err := board.ParseAddress(ch.CellID)
		if err != nil {
			skipped = append(skipped, ch.CellID)
			continue
		}
		next, ok := c.WithAddressValue(addr, ch.ProposedValue)
		if !ok {
			skipped = append(skipped, ch.CellID)
			continue
		}
		c = next
	}
	return c, skipped
}
