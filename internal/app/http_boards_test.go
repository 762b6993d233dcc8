package app

import (
	"encoding/json"
	"net/http"
	"testing"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("failed to parse response %s: %v", body, err)
	}
	return out
}

func TestCreateListAndGetBoard(t *testing.T) {
	env := newTestEnv()
	tok := token(t, "usr_1", "a@school.org")

	rr := env.do(t, http.MethodPost, "/api/boards", tok, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[struct {
		Board struct {
			ID           string   `json:"id"`
			Title        string   `json:"title"`
			RealtimeRoom string   `json:"realtimeRoom"`
			Subjects     []string `json:"subjects"`
		} `json:"board"`
	}](t, rr.Body.Bytes())
	if created.Board.Title != "Untitled Board" {
		t.Fatalf("expected default title, got %q", created.Board.Title)
	}
	if created.Board.RealtimeRoom == "" {
		t.Fatal("expected a realtime room")
	}
	if len(created.Board.Subjects) != 4 {
		t.Fatalf("expected default subjects, got %v", created.Board.Subjects)
	}

	list := env.do(t, http.MethodGet, "/api/boards", tok, "")
	boards := decode[struct {
		Boards []map[string]any `json:"boards"`
	}](t, list.Body.Bytes())
	if len(boards.Boards) != 1 {
		t.Fatalf("expected 1 board, got %d", len(boards.Boards))
	}

	get := env.do(t, http.MethodGet, "/api/boards/"+created.Board.ID, tok, "")
	if get.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", get.Code)
	}
	payload := decode[struct {
		Content struct {
			InitialPlanning struct {
				Standards []struct {
					Label string `json:"label"`
				} `json:"standards"`
			} `json:"initialPlanning"`
		} `json:"content"`
		Progress struct {
			FilledCellCount int `json:"filledCellCount"`
		} `json:"progress"`
	}](t, get.Body.Bytes())
	if len(payload.Content.InitialPlanning.Standards) != 4 {
		t.Fatalf("expected one standards cell per subject, got %d", len(payload.Content.InitialPlanning.Standards))
	}
	if payload.Progress.FilledCellCount != 0 {
		t.Fatalf("expected empty board, got %d filled", payload.Progress.FilledCellCount)
	}
}

func TestGetMissingBoard(t *testing.T) {
	env := newTestEnv()
	tok := token(t, "usr_1", "a@school.org")

	rr := env.do(t, http.MethodGet, "/api/boards/brd_missing", tok, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestDeleteBoardOwnerOnly(t *testing.T) {
	env := newTestEnv()
	b := env.seedBoard(t, "usr_owner")
	owner := token(t, "usr_owner", "owner@school.org")
	other := token(t, "usr_other", "other@school.org")

	rr := env.do(t, http.MethodDelete, "/api/boards/"+b.ID, other, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for collaborator delete, got %d", rr.Code)
	}

	// collaborators may still read and edit
	if got := env.do(t, http.MethodGet, "/api/boards/"+b.ID, other, "").Code; got != http.StatusOK {
		t.Fatalf("expected collaborator read to succeed, got %d", got)
	}

	rr = env.do(t, http.MethodDelete, "/api/boards/"+b.ID, owner, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := env.do(t, http.MethodGet, "/api/boards/"+b.ID, owner, "").Code; got != http.StatusNotFound {
		t.Fatalf("expected deleted board to be gone, got %d", got)
	}
}

func TestUpdateBoardWritesThrough(t *testing.T) {
	env := newTestEnv()
	b := env.seedBoard(t, "usr_1")
	tok := token(t, "usr_1", "a@school.org")

	rr := env.do(t, http.MethodPut, "/api/boards/"+b.ID, tok, `{"title":"  River Study  ","subjects":["Science"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	stored := env.store.board(t, b.ID)
	if stored.Title != "River Study" {
		t.Fatalf("expected trimmed title, got %q", stored.Title)
	}
	if stored.Subjects != `["Science"]` {
		t.Fatalf("expected subjects json, got %q", stored.Subjects)
	}
}

func TestSearchWithoutIndexReturnsEmpty(t *testing.T) {
	env := newTestEnv()
	tok := token(t, "usr_1", "a@school.org")

	rr := env.do(t, http.MethodGet, "/api/boards/search?q=river", tok, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decode[struct {
		Results []any  `json:"results"`
		Query   string `json:"query"`
	}](t, rr.Body.Bytes())
	if len(body.Results) != 0 || body.Query != "river" {
		t.Fatalf("unexpected search response: %+v", body)
	}
}

func TestUnconfiguredFeaturesReturn503(t *testing.T) {
	env := newTestEnv()
	b := env.seedBoard(t, "usr_1")
	tok := token(t, "usr_1", "a@school.org")

	for _, path := range []string{
		"/api/boards/" + b.ID + "/events",
		"/api/boards/" + b.ID + "/export?format=pdf",
	} {
		if got := env.do(t, http.MethodGet, path, tok, "").Code; got != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected status 503, got %d", path, got)
		}
	}
}
