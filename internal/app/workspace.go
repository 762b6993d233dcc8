package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"pblboard/api/internal/board"
	"pblboard/api/internal/generate"
	"pblboard/api/internal/gitrepo"
	"pblboard/api/internal/history"
	"pblboard/api/internal/store"
)

const (
	defaultSaveDebounce   = time.Second
	defaultEditSessionTTL = 30 * time.Minute
)

// docState is what one debounced save writes.
type docState struct {
	Title   string
	Context board.Context
	Content board.Content
}

// EditState is returned by every editing call.
type EditState struct {
	Title   string        `json:"title"`
	Content board.Content `json:"content"`
	Context board.Context `json:"context"`
	CanUndo bool          `json:"canUndo"`
	CanRedo bool          `json:"canRedo"`
}

// workspace is one teacher's editing session on one board. The content
// lives in an undo/redo engine; title and context are plain fields because
// changing them records no history step.
type workspace struct {
	boardID string
	room    string
	ownerID string
	author  gitrepo.Author

	history *history.Engine[board.Content]
	saver   *history.Debouncer[docState]

	mu       sync.Mutex
	title    string
	bctx     board.Context
	batch    *generate.Batch
	lastUsed time.Time
}

func (w *workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

func (w *workspace) stateLocked() EditState {
	return EditState{
		Title:   w.title,
		Content: w.history.Current(),
		Context: w.bctx,
		CanUndo: w.history.CanUndo(),
		CanRedo: w.history.CanRedo(),
	}
}

func (w *workspace) state() EditState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

// snapshot returns the current content and context for read-only use, such
// as building an LLM prompt.
func (w *workspace) snapshot() (board.Content, board.Context, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Current(), w.bctx, w.title
}

func (w *workspace) scheduleLocked() {
	w.saver.Schedule(docState{Title: w.title, Context: w.bctx, Content: w.history.Current()})
}

// edit applies fn to the current content as one history step and schedules
// a save. A nil error with an unchanged value still records the step.
func (w *workspace) edit(fn func(board.Content) (board.Content, error)) (EditState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := fn(w.history.Current())
	if err != nil {
		return EditState{}, err
	}
	w.history.Apply(next)
	w.scheduleLocked()
	return w.stateLocked(), nil
}

// update changes title or context without a history step.
func (w *workspace) update(fn func(w *workspace)) EditState {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
	w.scheduleLocked()
	return w.stateLocked()
}

// undo and redo re-sync standards to the live subject list, since context
// changes are not part of the history.
func (w *workspace) undo() EditState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if restored, ok := w.history.Undo(); ok {
		w.history.Replace(restored.WithSubjects(w.bctx.Subjects))
		w.scheduleLocked()
	}
	return w.stateLocked()
}

func (w *workspace) redo() EditState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if restored, ok := w.history.Redo(); ok {
		w.history.Replace(restored.WithSubjects(w.bctx.Subjects))
		w.scheduleLocked()
	}
	return w.stateLocked()
}

func (w *workspace) setBatch(b *generate.Batch) {
	w.mu.Lock()
	w.batch = b
	w.mu.Unlock()
}

// workspaces holds the live editing sessions keyed by board and user.
type workspaces struct {
	svc *Service
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	items map[string]*workspace
}

func newWorkspaces(svc *Service) *workspaces {
	ttl := svc.cfg.EditSessionTTL
	if ttl <= 0 {
		ttl = defaultEditSessionTTL
	}
	return &workspaces{svc: svc, ttl: ttl, now: time.Now, items: map[string]*workspace{}}
}

func workspaceKey(boardID, userID string) string {
	return boardID + "/" + userID
}

func (m *workspaces) peek(boardID, userID string) (*workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.items[workspaceKey(boardID, userID)]
	if ok {
		w.touch(m.now())
	}
	return w, ok
}

// open returns the caller's session on b, creating it from the stored row.
func (m *workspaces) open(b store.Board, session Session) *workspace {
	key := workspaceKey(b.ID, session.UserID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.items[key]; ok {
		w.touch(m.now())
		return w
	}
	w := m.newWorkspace(b, session)
	m.items[key] = w
	return w
}

func (m *workspaces) newWorkspace(b store.Board, session Session) *workspace {
	cfg := m.svc.cfg
	content, bctx := loadBoard(b)
	w := &workspace{
		boardID:  b.ID,
		room:     b.RealtimeRoom,
		ownerID:  b.OwnerID,
		author:   gitrepo.Author{Name: session.UserName, Email: session.Email},
		title:    b.Title,
		bctx:     bctx,
		lastUsed: m.now(),
	}
	w.history = history.New(content,
		history.WithWindow(cfg.HistoryWindow),
		history.WithMaxDepth(cfg.HistoryMax),
	)
	delay := cfg.SaveDebounce
	if delay <= 0 {
		delay = defaultSaveDebounce
	}
	log := m.svc.log.With("board_id", b.ID, "user_id", session.UserID)
	w.saver = history.NewDebouncer(delay, func(ctx context.Context, st docState) error {
		return m.svc.persist(ctx, w, st)
	}, func(err error) {
		log.Error("board save failed", "error", err)
	})
	return w
}

// forBoard lists every live session on boardID.
func (m *workspaces) forBoard(boardID string) []*workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*workspace
	for _, w := range m.items {
		if w.boardID == boardID {
			out = append(out, w)
		}
	}
	return out
}

// drop removes every session on boardID. Pending saves are flushed first
// when flush is set and discarded otherwise.
func (m *workspaces) drop(ctx context.Context, boardID string, flush bool) {
	m.mu.Lock()
	var dropped []*workspace
	for key, w := range m.items {
		if w.boardID == boardID {
			dropped = append(dropped, w)
			delete(m.items, key)
		}
	}
	m.mu.Unlock()
	for _, w := range dropped {
		if flush {
			w.saver.Flush(ctx)
		} else {
			w.saver.Discard()
		}
	}
}

// sweep flushes and evicts sessions idle for longer than the TTL.
func (m *workspaces) sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	var idle []*workspace
	for key, w := range m.items {
		if w.idleSince().Before(cutoff) {
			idle = append(idle, w)
			delete(m.items, key)
		}
	}
	m.mu.Unlock()
	for _, w := range idle {
		w.saver.Flush(ctx)
	}
	return len(idle)
}

func (m *workspaces) flushAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*workspace, 0, len(m.items))
	for _, w := range m.items {
		all = append(all, w)
	}
	m.mu.Unlock()
	for _, w := range all {
		w.saver.Flush(ctx)
	}
}

func (m *workspaces) run(ctx context.Context) {
	interval := m.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			m.flushAll(flushCtx)
			cancel()
			return
		case <-ticker.C:
			if n := m.sweep(ctx); n > 0 {
				m.svc.log.Debug("evicted idle editing sessions", "count", n)
			}
		}
	}
}

func loadBoard(b store.Board) (board.Content, board.Context) {
	content, subjects := board.Load(b.Content, board.DecodeSubjects(b.Subjects))
	return content, board.Context{State: b.State, GradeLevel: b.GradeLevel, Subjects: subjects, Location: b.Location}
}

// persist writes one save to the database and mirrors it to the revision
// history, the search index and the board's realtime room. Only the
// database write can fail the save.
func (s *Service) persist(ctx context.Context, w *workspace, st docState) error {
	update, contentJSON, err := boardUpdate(st)
	if err != nil {
		return err
	}
	saved, err := s.store.UpdateBoard(ctx, w.boardID, update)
	if err != nil {
		return err
	}
	log := s.log.With("board_id", w.boardID)
	if s.search != nil {
		s.search.IndexBoard(saved)
	}
	if s.git != nil {
		snap := gitrepo.Snapshot{Title: st.Title, Context: st.Context, Content: st.Content}
		if _, err := s.git.Commit(w.boardID, snap, w.author, "Save board"); err != nil && !errors.Is(err, gitrepo.ErrNoChanges) {
			log.Warn("revision commit failed", "error", err)
		}
	}
	if s.realtime != nil && w.room != "" {
		if err := s.realtime.PublishContent(ctx, w.room, contentJSON); err != nil {
			log.Warn("realtime publish failed", "error", err)
		}
	}
	return nil
}

func boardUpdate(st docState) (store.BoardUpdate, string, error) {
	contentJSON, err := st.Content.Encode()
	if err != nil {
		return store.BoardUpdate{}, "", err
	}
	subjectsJSON, err := encodeSubjects(st.Context.Subjects)
	if err != nil {
		return store.BoardUpdate{}, "", err
	}
	title := st.Title
	return store.BoardUpdate{
		Title:      &title,
		Content:    &contentJSON,
		State:      &st.Context.State,
		GradeLevel: &st.Context.GradeLevel,
		Subjects:   &subjectsJSON,
		Location:   &st.Context.Location,
	}, contentJSON, nil
}
