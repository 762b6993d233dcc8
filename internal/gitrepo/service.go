// Package gitrepo keeps a go-git repository per board and commits board.json
// on every persisted save, giving each board a browsable revision history.
package gitrepo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"pblboard/api/internal/board"
	"pblboard/api/internal/store"
)

const snapshotFile = "board.json"

var (
	// ErrNoChanges is returned by Commit when the snapshot equals HEAD.
	ErrNoChanges        = errors.New("no changes to commit")
	ErrRevisionNotFound = errors.New("revision not found")
)

// Snapshot is what one revision stores.
type Snapshot struct {
	Title   string        `json:"title"`
	Context board.Context `json:"context"`
	Content board.Content `json:"content"`
}

type Author struct {
	Name  string
	Email string
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Commit writes snap to the board's repository, creating the repository on
// first use.
func (s *Service) Commit(boardID string, snap Snapshot, author Author, message string) (store.CommitInfo, error) {
	lock := s.boardLock(boardID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(boardID)
	if err != nil {
		return store.CommitInfo{}, err
	}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	payload = append(payload, '\n')

	if head, err := repo.Head(); err == nil {
		if commitObj, err := repo.CommitObject(head.Hash()); err == nil {
			if prev, err := readFile(commitObj); err == nil && bytes.Equal(prev, payload) {
				return toCommitInfo(commitObj), ErrNoChanges
			}
		}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), snapshotFile), payload, 0o644); err != nil {
		return store.CommitInfo{}, fmt.Errorf("write %s: %w", snapshotFile, err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return store.CommitInfo{}, fmt.Errorf("git add: %w", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: authorName(author), Email: authorEmail(author), When: time.Now()},
	})
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("commit snapshot: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists commits newest first. A board without a repository has no
// history.
func (s *Service) History(boardID string, limit int) ([]store.CommitInfo, error) {
	lock := s.boardLock(boardID)
	lock.Lock()
	defer lock.Unlock()

	items := make([]store.CommitInfo, 0)
	repo, err := git.PlainOpen(s.repoPath(boardID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Snapshot loads the board as it was at hash. Short hashes are accepted.
func (s *Service) Snapshot(boardID, hash string) (Snapshot, store.CommitInfo, error) {
	lock := s.boardLock(boardID)
	lock.Lock()
	defer lock.Unlock()

	return s.snapshot(boardID, hash)
}

func (s *Service) snapshot(boardID, hash string) (Snapshot, store.CommitInfo, error) {
	repo, err := git.PlainOpen(s.repoPath(boardID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Snapshot{}, store.CommitInfo{}, ErrRevisionNotFound
	}
	if err != nil {
		return Snapshot{}, store.CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return Snapshot{}, store.CommitInfo{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return Snapshot{}, store.CommitInfo{}, fmt.Errorf("%w: %s", ErrRevisionNotFound, hash)
	}
	raw, err := readFile(commitObj)
	if err != nil {
		return Snapshot{}, store.CommitInfo{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, store.CommitInfo{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, toCommitInfo(commitObj), nil
}

// Diff describes what changed between two revisions.
type Diff struct {
	From           string          `json:"from"`
	To             string          `json:"to"`
	TitleChanged   bool            `json:"titleChanged"`
	ContextChanged bool            `json:"contextChanged"`
	AgendaChanged  bool            `json:"agendaChanged"`
	Cells          []board.CellRef `json:"cells"`
}

func (s *Service) Compare(boardID, from, to string) (Diff, error) {
	lock := s.boardLock(boardID)
	lock.Lock()
	defer lock.Unlock()

	a, fromInfo, err := s.snapshot(boardID, from)
	if err != nil {
		return Diff{}, err
	}
	b, toInfo, err := s.snapshot(boardID, to)
	if err != nil {
		return Diff{}, err
	}
	return DiffSnapshots(a, b, fromInfo.Hash, toInfo.Hash), nil
}

func DiffSnapshots(a, b Snapshot, fromHash, toHash string) Diff {
	cells := board.ChangedCells(a.Content, b.Content)
	if cells == nil {
		cells = []board.CellRef{}
	}
	return Diff{
		From:           fromHash,
		To:             toHash,
		TitleChanged:   a.Title != b.Title,
		ContextChanged: !jsonEqual(a.Context, b.Context),
		AgendaChanged:  !jsonEqual(a.Content.Agenda, b.Content.Agenda),
		Cells:          cells,
	}
}

func jsonEqual(a, b any) bool {
	x, errA := json.Marshal(a)
	y, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(x, y)
}

func (s *Service) repoPath(boardID string) string {
	return filepath.Join(s.baseDir, boardID)
}

func (s *Service) boardLock(boardID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[boardID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[boardID] = lock
	}
	return lock
}

// openOrInit opens the board repository or creates one whose HEAD points at
// an unborn main branch.
func (s *Service) openOrInit(boardID string) (*git.Repository, error) {
	path := s.repoPath(boardID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func readFile(commitObj *object.Commit) ([]byte, error) {
	file, err := commitObj.File(snapshotFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", snapshotFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func toCommitInfo(commitObj *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      commitObj.Hash.String(),
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func authorName(a Author) string {
	if a.Name != "" {
		return a.Name
	}
	if a.Email != "" {
		return a.Email
	}
	return "PBL Board"
}

func authorEmail(a Author) string {
	if a.Email != "" {
		return a.Email
	}
	return sanitizeEmail(a.Name) + "@users.pblboard.local"
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrRevisionNotFound, hash)
	}
	return *resolved, nil
}
