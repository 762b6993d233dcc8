package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pblboard/api/internal/board"
	"pblboard/api/internal/store"
)

type fakeIndex struct {
	mu       sync.Mutex
	healthy  bool
	searchFn func(q Query) ([]Result, int, error)
	indexed  []BoardRecord
	deleted  []string
}

func (f *fakeIndex) Healthy() bool { return f.healthy }
func (f *fakeIndex) Search(q Query) ([]Result, int, error) {
	return f.searchFn(q)
}
func (f *fakeIndex) IndexBoards(records []BoardRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, records...)
	return nil
}
func (f *fakeIndex) DeleteBoard(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSearcher struct {
	calls int
	last  Query
}

func (f *fakeSearcher) Search(_ context.Context, q Query) ([]Result, int, error) {
	f.calls++
	f.last = q
	return []Result{{ID: "pg", Title: "From Postgres"}}, 1, nil
}
func (f *fakeSearcher) Healthy() bool { return true }

func TestSearchPrefersHealthyMeili(t *testing.T) {
	idx := &fakeIndex{healthy: true, searchFn: func(q Query) ([]Result, int, error) {
		return []Result{{ID: "m", Title: q.Text}}, 1, nil
	}}
	pg := &fakeSearcher{}
	resp := NewService(idx, pg, nil).Search(context.Background(), Query{Text: "water", OwnerID: "u1"})
	assert.Equal(t, "m", resp.Results[0].ID)
	assert.Equal(t, 0, pg.calls)
}

func TestSearchFallsBackToPostgres(t *testing.T) {
	idx := &fakeIndex{healthy: true, searchFn: func(Query) ([]Result, int, error) { return nil, 0, errors.New("down") }}
	pg := &fakeSearcher{}
	resp := NewService(idx, pg, nil).Search(context.Background(), Query{Text: "water", OwnerID: "u1"})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "pg", resp.Results[0].ID)
	assert.Equal(t, "u1", pg.last.OwnerID)

	idx.healthy = false
	resp = NewService(nil, nil, nil).Search(context.Background(), Query{Text: "x"})
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestIndexBoardDecodesContent(t *testing.T) {
	c := board.NewContent().WithValue("mainIdea", " Clean water ").WithValue("drivingQuestion", "How can we?")
	raw, err := c.Encode()
	require.NoError(t, err)

	idx := &fakeIndex{healthy: true}
	svc := NewService(idx, nil, nil)
	svc.IndexBoard(store.Board{ID: "b1", OwnerID: "u1", Title: "T", Content: raw, Subjects: `["Math"]`, GradeLevel: "6"})
	svc.DeleteBoard("b2")

	require.Eventually(t, func() bool {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		return len(idx.indexed) == 1 && len(idx.deleted) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, BoardRecord{
		ID: "b1", OwnerID: "u1", Title: "T", MainIdea: "Clean water",
		DrivingQuestion: "How can we?", Subjects: []string{"Math"}, GradeLevel: "6",
	}, idx.indexed[0])
}

func TestIndexSkippedWhenUnhealthy(t *testing.T) {
	idx := &fakeIndex{healthy: false}
	svc := NewService(idx, nil, nil)
	svc.IndexBoard(store.Board{ID: "b1"})
	svc.DeleteBoard("b1")
	time.Sleep(20 * time.Millisecond)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	assert.Empty(t, idx.indexed)
	assert.Empty(t, idx.deleted)
}
