package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pblboard/api/internal/store"
)

// PgFTS searches the generated fts column of the boards table.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy is always true: without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "b.fts @@ plainto_tsquery('english', $1)"
	args := []any{q.Text}
	if q.OwnerID != "" {
		args = append(args, q.OwnerID)
		where += fmt.Sprintf(" AND b.owner_id = $%d", len(args))
	}

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM boards b WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT b.id, b.title,
			ts_headline('english', b.content, plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet
		FROM boards b
		WHERE %s
		ORDER BY ts_rank(b.fts, plainto_tsquery('english', $1)) DESC, b.updated_at DESC
		LIMIT %d OFFSET %d`, where, q.limit(), offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every board for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]BoardRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, owner_id, title, content, subjects, grade_level FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	defer rows.Close()

	records := make([]BoardRecord, 0)
	for rows.Next() {
		var b store.Board
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Content, &b.Subjects, &b.GradeLevel); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		records = append(records, RecordFromBoard(b))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return records, nil
}
