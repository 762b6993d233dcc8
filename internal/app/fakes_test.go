package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pblboard/api/internal/auth"
	"pblboard/api/internal/board"
	"pblboard/api/internal/config"
	"pblboard/api/internal/generate"
	"pblboard/api/internal/gitrepo"
	"pblboard/api/internal/store"
)

// fakeStore keeps boards and lessons in memory. The Fn hooks override
// single calls.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int
	users   map[string]store.User
	boards  map[string]store.Board
	lessons map[string]store.LessonPlan
	refresh map[string]string

	updates int

	pingFn        func(context.Context) error
	updateBoardFn func(context.Context, string, store.BoardUpdate) (store.Board, error)
	getBoardFn    func(context.Context, string) (store.Board, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]store.User{},
		boards:  map[string]store.Board{},
		lessons: map[string]store.LessonPlan{},
		refresh: map[string]string{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(_ context.Context, u store.User) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = f.id("usr")
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListBoardsByOwner(_ context.Context, ownerID string) ([]store.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Board
	for _, b := range f.boards {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) GetBoard(ctx context.Context, id string) (store.Board, error) {
	if f.getBoardFn != nil {
		return f.getBoardFn(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[id]
	if !ok {
		return store.Board{}, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) InsertBoard(_ context.Context, b store.Board) (store.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == "" {
		b.ID = f.id("brd")
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	f.boards[b.ID] = b
	return b, nil
}

func (f *fakeStore) UpdateBoard(ctx context.Context, id string, u store.BoardUpdate) (store.Board, error) {
	if f.updateBoardFn != nil {
		return f.updateBoardFn(ctx, id, u)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[id]
	if !ok {
		return store.Board{}, store.ErrNotFound
	}
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Content != nil {
		b.Content = *u.Content
	}
	if u.State != nil {
		b.State = *u.State
	}
	if u.GradeLevel != nil {
		b.GradeLevel = *u.GradeLevel
	}
	if u.Subjects != nil {
		b.Subjects = *u.Subjects
	}
	if u.Location != nil {
		b.Location = *u.Location
	}
	b.UpdatedAt = time.Now()
	f.boards[id] = b
	f.updates++
	return b, nil
}

func (f *fakeStore) DeleteBoard(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.boards, id)
	return nil
}

func (f *fakeStore) ListLessons(_ context.Context, boardID string) ([]store.LessonPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.LessonPlan
	for _, l := range f.lessons {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) GetLesson(_ context.Context, id string) (store.LessonPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return store.LessonPlan{}, store.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) InsertLesson(_ context.Context, l store.LessonPlan) (store.LessonPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.ID == "" {
		l.ID = f.id("lsn")
	}
	f.lessons[l.ID] = l
	return l, nil
}

func (f *fakeStore) UpdateLesson(_ context.Context, id string, content *string, period *int) (store.LessonPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return store.LessonPlan{}, store.ErrNotFound
	}
	if content != nil {
		l.Content = *content
	}
	if period != nil {
		l.PeriodMinutes = *period
	}
	f.lessons[id] = l
	return l, nil
}

func (f *fakeStore) DeleteLesson(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lessons, id)
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) SaveRefreshSession(_ context.Context, hash, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[hash] = userID
	return nil
}

func (f *fakeStore) LookupRefreshSession(_ context.Context, hash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.refresh[hash]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return store.User{ID: id}, nil
}

func (f *fakeStore) RevokeRefreshSession(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, hash)
	return nil
}

func (f *fakeStore) board(t *testing.T, id string) store.Board {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[id]
	if !ok {
		t.Fatalf("board %s not stored", id)
	}
	return b
}

// fakeGit records commits per board.
type fakeGit struct {
	mu      sync.Mutex
	commits map[string][]store.CommitInfo
	snaps   map[string]gitrepo.Snapshot
}

func newFakeGit() *fakeGit {
	return &fakeGit{commits: map[string][]store.CommitInfo{}, snaps: map[string]gitrepo.Snapshot{}}
}

func (g *fakeGit) Commit(boardID string, snap gitrepo.Snapshot, author gitrepo.Author, message string) (store.CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	hash := fmt.Sprintf("%040d", len(g.snaps)+1)
	info := store.CommitInfo{Hash: hash, Message: message, Author: author.Name, CreatedAt: time.Now()}
	g.commits[boardID] = append([]store.CommitInfo{info}, g.commits[boardID]...)
	g.snaps[hash] = snap
	return info, nil
}

func (g *fakeGit) History(boardID string, limit int) ([]store.CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.commits[boardID]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *fakeGit) Snapshot(_ string, hash string) (gitrepo.Snapshot, store.CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, ok := g.snaps[hash]
	if !ok {
		return gitrepo.Snapshot{}, store.CommitInfo{}, gitrepo.ErrRevisionNotFound
	}
	return snap, store.CommitInfo{Hash: hash}, nil
}

func (g *fakeGit) Compare(string, string, string) (gitrepo.Diff, error) {
	return gitrepo.Diff{}, nil
}

// fakeAI answers every generation call from canned values.
type fakeAI struct {
	suggestions []generate.Suggestion
	improved    string
	title       string
	reply       generate.Reply
	sessions    []generate.Session
	chunks      []string
}

func (a *fakeAI) Suggest(context.Context, generate.CellRequest) ([]generate.Suggestion, error) {
	return a.suggestions, nil
}
func (a *fakeAI) Improve(context.Context, generate.CellRequest) (generate.Suggestion, error) {
	return generate.Suggestion{Text: a.improved}, nil
}
func (a *fakeAI) Title(context.Context, board.Content, board.Context, string) (string, error) {
	return a.title, nil
}
func (a *fakeAI) ImproveAgendaField(_ context.Context, c board.Content, _ board.Context, _ string, _ generate.AgendaField, _ string) (board.Content, error) {
	return c, nil
}
func (a *fakeAI) ImproveLessonSection(context.Context, board.Content, board.Context, generate.Lesson, board.LessonField, string) (board.LessonContent, error) {
	return board.LessonContent{}, nil
}
func (a *fakeAI) Variation(context.Context, board.Content, board.Context, string, *generate.Variation) (generate.Variation, error) {
	return generate.Variation{}, nil
}
func (a *fakeAI) Agenda(context.Context, board.Content, board.Context, int) ([]generate.Session, error) {
	return a.sessions, nil
}
func (a *fakeAI) Lesson(context.Context, generate.LessonRequest) (board.LessonContent, error) {
	return board.LessonContent{}, nil
}
func (a *fakeAI) Lessons(context.Context, board.Content, board.Context, string, []generate.Selection, generate.LessonSink) ([]generate.Failure, error) {
	return nil, nil
}
func (a *fakeAI) Collaborate(context.Context, board.Content, board.Context, generate.CollaboratorMode, []generate.Lesson, string) (generate.Reply, error) {
	return a.reply, nil
}
func (a *fakeAI) Critique(context.Context, board.Content) (generate.Critique, error) {
	return generate.Critique{}, nil
}
func (a *fakeAI) StreamStandards(_ context.Context, _, _, _ string, onDelta func(string)) ([]generate.Suggestion, error) {
	partial := ""
	for _, c := range a.chunks {
		partial += c
		onDelta(partial)
	}
	return a.suggestions, nil
}

const testSecret = "test-secret"

func testConfig() config.Config {
	return config.Config{
		JWTSecret:           testSecret,
		AccessTTL:           time.Hour,
		RefreshTTL:          24 * time.Hour,
		AllowedEmailDomains: []string{"school.org"},
		SaveDebounce:        time.Hour,
		HistoryMax:          50,
	}
}

type testEnv struct {
	store  *fakeStore
	git    *fakeGit
	ai     *fakeAI
	svc    *Service
	server http.Handler
}

func newTestEnv() *testEnv {
	fs := newFakeStore()
	fg := newFakeGit()
	fa := &fakeAI{}
	svc := New(testConfig(), Deps{Store: fs, Git: fg, AI: fa})
	return &testEnv{store: fs, git: fg, ai: fa, svc: svc, server: NewHTTPServer(svc, "*").Handler()}
}

// token issues an access token for a user of the allowed domain.
func token(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := auth.IssueToken([]byte(testSecret), auth.Claims{
		Sub:   userID,
		Name:  userID,
		Email: email,
		JTI:   "jti_" + userID,
		Exp:   time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) seedBoard(t *testing.T, ownerID string) store.Board {
	t.Helper()
	content, err := board.NewContentForSubjects(board.DefaultSubjects).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := e.store.InsertBoard(context.Background(), store.Board{
		Slug:         "slug",
		Title:        "Untitled Board",
		RealtimeRoom: "board:slug",
		OwnerID:      ownerID,
		Content:      content,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return b
}
