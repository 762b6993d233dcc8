// Package search finds a teacher's boards by title and content. Meilisearch
// is used while it is healthy; PostgreSQL full-text search is the fallback.
package search

import (
	"context"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/store"
)

const defaultLimit = 20

type Result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type Query struct {
	Text    string
	OwnerID string
	Limit   int
	Offset  int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// BoardRecord is the indexed view of a board.
type BoardRecord struct {
	ID              string   `json:"id"`
	OwnerID         string   `json:"ownerId"`
	Title           string   `json:"title"`
	MainIdea        string   `json:"mainIdea"`
	DrivingQuestion string   `json:"drivingQuestion"`
	Subjects        []string `json:"subjects"`
	GradeLevel      string   `json:"gradeLevel"`
}

// RecordFromBoard decodes the stored content and picks the indexed fields.
func RecordFromBoard(b store.Board) BoardRecord {
	content := board.Decode(b.Content)
	return BoardRecord{
		ID:              b.ID,
		OwnerID:         b.OwnerID,
		Title:           b.Title,
		MainIdea:        strings.TrimSpace(content.InitialPlanning.MainIdea.Value),
		DrivingQuestion: strings.TrimSpace(content.DesignThinking.DrivingQuestion.Value),
		Subjects:        board.DecodeSubjects(b.Subjects),
		GradeLevel:      b.GradeLevel,
	}
}
