package search

import (
	"context"

	"pblboard/api/internal/logger"
	"pblboard/api/internal/store"
)

// Index is the Meilisearch side used by Service. *Meili implements it.
type Index interface {
	Healthy() bool
	Search(q Query) ([]Result, int, error)
	IndexBoards(records []BoardRecord) error
	DeleteBoard(id string) error
}

type Service struct {
	meili Index
	pgfts Searcher
	log   *logger.Logger
}

// NewService wires the search backends. meili may be nil.
func NewService(meili Index, pgfts Searcher, log *logger.Logger) *Service {
	return &Service{meili: meili, pgfts: pgfts, log: logger.OrNop(log).With("component", "Search")}
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meiliReady() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn("meilisearch failed, falling back to pgfts", "error", err)
	}
	if s.pgfts == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		s.log.Error("pgfts search failed", "error", err)
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexBoard pushes b to Meilisearch in the background.
func (s *Service) IndexBoard(b store.Board) {
	if !s.meiliReady() {
		return
	}
	record := RecordFromBoard(b)
	go func() {
		if err := s.meili.IndexBoards([]BoardRecord{record}); err != nil {
			s.log.Warn("index board failed", "board_id", record.ID, "error", err)
		}
	}()
}

func (s *Service) DeleteBoard(id string) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.DeleteBoard(id); err != nil {
			s.log.Warn("delete board from index failed", "board_id", id, "error", err)
		}
	}()
}

// ReindexAllFromPG loads every board from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context, pg *PgFTS) {
	if !s.meiliReady() || pg == nil {
		return
	}
	records, err := pg.LoadAllRecords(ctx)
	if err != nil {
		s.log.Warn("reindex load failed", "error", err)
		return
	}
	if err := s.meili.IndexBoards(records); err != nil {
		s.log.Warn("reindex boards failed", "error", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
