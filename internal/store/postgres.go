package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

const userColumns = `id, email, display_name, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	created, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, display_name, password_hash)
		VALUES (LOWER($1), $2, $3)
		RETURNING `+userColumns,
		user.Email, user.DisplayName, user.PasswordHash,
	))
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=LOWER($1)`, email))
	if err != nil {
		return User{}, notFound(err, "get user by email")
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
	if err != nil {
		return User{}, notFound(err, "get user")
	}
	return u, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.display_name, u.password_hash, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash))
	if err != nil {
		return User{}, notFound(err, "lookup refresh session")
	}
	return u, nil
}

const boardColumns = `id, slug, title, realtime_room, owner_id, content, state, grade_level, subjects, location, created_at, updated_at`

func scanBoard(row interface{ Scan(...any) error }) (Board, error) {
	var b Board
	err := row.Scan(&b.ID, &b.Slug, &b.Title, &b.RealtimeRoom, &b.OwnerID, &b.Content,
		&b.State, &b.GradeLevel, &b.Subjects, &b.Location, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *PostgresStore) ListBoardsByOwner(ctx context.Context, ownerID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+boardColumns+`
		FROM boards
		WHERE owner_id=$1
		ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id=$1`, boardID))
	if err != nil {
		return Board{}, notFound(err, "get board")
	}
	return b, nil
}

func (s *PostgresStore) InsertBoard(ctx context.Context, b Board) (Board, error) {
	created, err := scanBoard(s.db.QueryRowContext(ctx, `
		INSERT INTO boards (slug, title, realtime_room, owner_id, content, state, grade_level, subjects, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+boardColumns,
		b.Slug, b.Title, b.RealtimeRoom, b.OwnerID, b.Content, b.State, b.GradeLevel, b.Subjects, b.Location,
	))
	if err != nil {
		return Board{}, fmt.Errorf("insert board: %w", err)
	}
	return created, nil
}

// UpdateBoard writes the non-nil fields of u and bumps updated_at.
func (s *PostgresStore) UpdateBoard(ctx context.Context, boardID string, u BoardUpdate) (Board, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{boardID}
	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	add("title", u.Title)
	add("content", u.Content)
	add("state", u.State)
	add("grade_level", u.GradeLevel)
	add("subjects", u.Subjects)
	add("location", u.Location)

	b, err := scanBoard(s.db.QueryRowContext(ctx,
		`UPDATE boards SET `+strings.Join(sets, ", ")+` WHERE id=$1 RETURNING `+boardColumns, args...))
	if err != nil {
		return Board{}, notFound(err, "update board")
	}
	return b, nil
}

func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, boardID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete board: %w", ErrNotFound)
	}
	return nil
}

const lessonColumns = `id, board_id, agenda_entry_id, subject, period_minutes, content, created_at, updated_at`

func scanLesson(row interface{ Scan(...any) error }) (LessonPlan, error) {
	var l LessonPlan
	err := row.Scan(&l.ID, &l.BoardID, &l.AgendaEntryID, &l.Subject, &l.PeriodMinutes, &l.Content, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// ListLessons returns a board's lessons ordered by agenda entry, then subject.
func (s *PostgresStore) ListLessons(ctx context.Context, boardID string) ([]LessonPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lessonColumns+`
		FROM lesson_plans
		WHERE board_id=$1
		ORDER BY agenda_entry_id ASC, subject ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	items := make([]LessonPlan, 0)
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetLesson(ctx context.Context, lessonID string) (LessonPlan, error) {
	l, err := scanLesson(s.db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lesson_plans WHERE id=$1`, lessonID))
	if err != nil {
		return LessonPlan{}, notFound(err, "get lesson")
	}
	return l, nil
}

func (s *PostgresStore) InsertLesson(ctx context.Context, l LessonPlan) (LessonPlan, error) {
	created, err := scanLesson(s.db.QueryRowContext(ctx, `
		INSERT INTO lesson_plans (board_id, agenda_entry_id, subject, period_minutes, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+lessonColumns,
		l.BoardID, l.AgendaEntryID, l.Subject, l.PeriodMinutes, l.Content,
	))
	if err != nil {
		return LessonPlan{}, fmt.Errorf("insert lesson: %w", err)
	}
	return created, nil
}

// UpdateLesson changes content and/or period length; nil arguments are kept.
func (s *PostgresStore) UpdateLesson(ctx context.Context, lessonID string, content *string, periodMinutes *int) (LessonPlan, error) {
	l, err := scanLesson(s.db.QueryRowContext(ctx, `
		UPDATE lesson_plans
		SET content=COALESCE($2, content), period_minutes=COALESCE($3, period_minutes), updated_at=NOW()
		WHERE id=$1
		RETURNING `+lessonColumns,
		lessonID, content, periodMinutes,
	))
	if err != nil {
		return LessonPlan{}, notFound(err, "update lesson")
	}
	return l, nil
}

func (s *PostgresStore) DeleteLesson(ctx context.Context, lessonID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lesson_plans WHERE id=$1`, lessonID)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete lesson: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
