package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pblboard/api/internal/board"
)

var avery = Author{Name: "Avery Lee", Email: "avery@school.example"}

func snapshot(mainIdea string) Snapshot {
	return Snapshot{
		Title:   "Creek Project",
		Context: board.Context{State: "Utah", GradeLevel: "6", Subjects: []string{"Science"}},
		Content: board.NewContentForSubjects([]string{"Science"}).WithValue("mainIdea", mainIdea),
	}
}

func TestBoardRepoLifecycle(t *testing.T) {
	dir := t.TempDir()
	svc := New(dir)

	history, err := svc.History("b1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	first, err := svc.Commit("b1", snapshot("Water"), avery, "Save board")
	require.NoError(t, err)
	assert.Len(t, first.Hash, 40)
	assert.Equal(t, "Avery Lee", first.Author)
	_, err = os.Stat(filepath.Join(dir, "b1", ".git"))
	require.NoError(t, err)

	second, err := svc.Commit("b1", snapshot("Clean water"), avery, "Save board")
	require.NoError(t, err)

	history, err = svc.History("b1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.Hash, history[0].Hash)

	snap, info, err := svc.Snapshot("b1", first.Hash[:7])
	require.NoError(t, err)
	assert.Equal(t, first.Hash, info.Hash)
	assert.Equal(t, "Water", snap.Content.InitialPlanning.MainIdea.Value)
	assert.Equal(t, "Utah", snap.Context.State)
}

func TestCommitSkipsUnchangedSnapshot(t *testing.T) {
	svc := New(t.TempDir())
	snap := snapshot("Water")
	first, err := svc.Commit("b1", snap, avery, "Save board")
	require.NoError(t, err)

	again, err := svc.Commit("b1", snap, avery, "Save board")
	assert.ErrorIs(t, err, ErrNoChanges)
	assert.Equal(t, first.Hash, again.Hash)

	history, err := svc.History("b1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCompareListsChangedCells(t *testing.T) {
	svc := New(t.TempDir())
	base := snapshot("Water")
	a, err := svc.Commit("b1", base, avery, "one")
	require.NoError(t, err)
	next := base
	next.Content = base.Content.WithValue("mainIdea", "Clean water")
	next.Title = "Creek Cleanup"
	b, err := svc.Commit("b1", next, avery, "two")
	require.NoError(t, err)

	diff, err := svc.Compare("b1", a.Hash, b.Hash)
	require.NoError(t, err)
	assert.True(t, diff.TitleChanged)
	assert.False(t, diff.ContextChanged)
	assert.False(t, diff.AgendaChanged)
	require.Len(t, diff.Cells, 1)
	assert.Equal(t, "mainIdea", diff.Cells[0].Key)
	assert.Equal(t, "Clean water", diff.Cells[0].Value)
}

func TestUnknownRevision(t *testing.T) {
	svc := New(t.TempDir())
	_, _, err := svc.Snapshot("missing", "abc1234")
	assert.ErrorIs(t, err, ErrRevisionNotFound)

	_, err = svc.Commit("b1", snapshot("Water"), avery, "one")
	require.NoError(t, err)
	_, _, err = svc.Snapshot("b1", "deadbee")
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestConcurrentCommits(t *testing.T) {
	svc := New(t.TempDir())
	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if _, err := svc.Commit("b1", snapshot(fmt.Sprintf("idea-%02d", idx)), avery, "save"); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	history, err := svc.History("b1", 100)
	require.NoError(t, err)
	assert.Len(t, history, writers)

	snap, _, err := svc.Snapshot("b1", history[0].Hash)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(snap.Content.InitialPlanning.MainIdea.Value, "idea-"))
}

func TestAuthorFallbacks(t *testing.T) {
	assert.Equal(t, "PBL Board", authorName(Author{}))
	assert.Equal(t, "a@b.c", authorName(Author{Email: "a@b.c"}))
	assert.Equal(t, "Avery.Lee@users.pblboard.local", authorEmail(Author{Name: "Avery Lee!"}))
}
