package app

import (
	"net/http"
	"testing"

	"pblboard/api/internal/generate"
)

func TestCollaboratorProposals(t *testing.T) {
	env := newTestEnv()
	b := env.seedBoard(t, "usr_1")
	tok := token(t, "usr_1", "a@school.org")
	base := "/api/boards/" + b.ID + "/ai"
	env.ai.reply = generate.Reply{
		Message: "Two ideas",
		ProposedChanges: []generate.ProposedChange{
			{CellID: "mainIdea", ProposedValue: "Water quality in our river"},
			{CellID: "noSuchCell", ProposedValue: "ignored"},
			{CellID: "drivingQuestion", ProposedValue: "How might we keep the river clean?"},
		},
	}

	if got := env.do(t, http.MethodPost, base+"/proposals/accept-all", tok, "").Code; got != http.StatusNotFound {
		t.Fatalf("expected status 404 without proposals, got %d", got)
	}

	rr := env.do(t, http.MethodPost, base+"/collaborate", tok, `{"message":"Improve my board"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rejected := env.do(t, http.MethodPost, base+"/proposals/2/reject", tok, "")
	if rejected.Code != http.StatusOK {
		t.Fatalf("expected status 200 on reject, got %d", rejected.Code)
	}

	result := decode[struct {
		Batch struct {
			Statuses []string `json:"statuses"`
		} `json:"batch"`
		State   editResponse `json:"state"`
		Skipped []string     `json:"skipped"`
	}](t, env.do(t, http.MethodPost, base+"/proposals/accept-all", tok, "").Body.Bytes())

	if got := result.State.Content.InitialPlanning.MainIdea.Value; got != "Water quality in our river" {
		t.Fatalf("expected main idea to be applied, got %q", got)
	}
	if got := result.State.Content.DesignThinking.DrivingQuestion.Value; got != "" {
		t.Fatalf("expected rejected proposal to stay unapplied, got %q", got)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "noSuchCell" {
		t.Fatalf("expected unknown cell to be skipped, got %v", result.Skipped)
	}
	if want := []string{"accepted", "accepted", "rejected"}; len(result.Batch.Statuses) != 3 ||
		result.Batch.Statuses[0] != want[0] || result.Batch.Statuses[1] != want[1] || result.Batch.Statuses[2] != want[2] {
		t.Fatalf("unexpected statuses %v", result.Batch.Statuses)
	}

	// accept-all is a single undo step
	undone := decode[editResponse](t, env.do(t, http.MethodPost, "/api/boards/"+b.ID+"/edit/undo", tok, "").Body.Bytes())
	if undone.Content.InitialPlanning.MainIdea.Value != "" || undone.CanUndo {
		t.Fatalf("expected one undo to revert all accepted proposals, got %+v", undone)
	}

	if got := env.do(t, http.MethodPost, base+"/proposals/0/accept", tok, "").Code; got != http.StatusConflict {
		t.Fatalf("expected status 409 for resolved proposal, got %d", got)
	}
	if got := env.do(t, http.MethodPost, base+"/proposals/9/accept", tok, "").Code; got != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown proposal, got %d", got)
	}
}

func TestFixCellAppliesImprovement(t *testing.T) {
	env := newTestEnv()
	b := env.seedBoard(t, "usr_1")
	tok := token(t, "usr_1", "a@school.org")
	env.ai.improved = "A sharper idea"

	if got := env.do(t, http.MethodPost, "/api/boards/"+b.ID+"/ai/fix", tok, `{"cellKey":"mainIdea"}`).Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 without feedback, got %d", got)
	}

	st := decode[editResponse](t, env.do(t, http.MethodPost, "/api/boards/"+b.ID+"/ai/fix", tok,
		`{"cellKey":"mainIdea","feedback":"make it sharper"}`).Body.Bytes())
	if st.Content.InitialPlanning.MainIdea.Value != "A sharper idea" {
		t.Fatalf("expected improved value, got %q", st.Content.InitialPlanning.MainIdea.Value)
	}

	if got := env.do(t, http.MethodPost, "/api/boards/"+b.ID+"/ai/fix", tok,
		`{"cellKey":"nope","feedback":"x"}`).Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown cell, got %d", got)
	}
}

func TestGenerateTitleRecordsNoUndoStep(t *testing.T) {
	env := newTestEnv()
	b := env.seedBoard(t, "usr_1")
	tok := token(t, "usr_1", "a@school.org")
	env.ai.title = "River Keepers"

	st := decode[editResponse](t, env.do(t, http.MethodPost, "/api/boards/"+b.ID+"/ai/title", tok, "").Body.Bytes())
	if st.Title != "River Keepers" || st.CanUndo {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestRegenerateAgendaValidatesDays(t *testing.T) {
	env := newTestEnv()
	b := env.seedBoard(t, "usr_1")
	tok := token(t, "usr_1", "a@school.org")
	env.ai.sessions = []generate.Session{{Title: "Kickoff"}, {Title: "Field trip"}}

	if got := env.do(t, http.MethodPost, "/api/boards/"+b.ID+"/ai/agenda", tok, `{"numDays":61}`).Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", got)
	}
	st := decode[editResponse](t, env.do(t, http.MethodPost, "/api/boards/"+b.ID+"/ai/agenda", tok, `{"numDays":2}`).Body.Bytes())
	if len(st.Content.Agenda) != 2 {
		t.Fatalf("expected two agenda entries, got %d", len(st.Content.Agenda))
	}
}

func TestStatelessGenerateValidates(t *testing.T) {
	env := newTestEnv()
	tok := token(t, "usr_1", "a@school.org")
	env.ai.suggestions = []generate.Suggestion{{Text: "one"}}

	if got := env.do(t, http.MethodPost, "/api/ai/generate", tok, `{}`).Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 without cellId, got %d", got)
	}
	body := decode[struct {
		Suggestions []generate.Suggestion `json:"suggestions"`
	}](t, env.do(t, http.MethodPost, "/api/ai/generate", tok, `{"cellId":"mainIdea"}`).Body.Bytes())
	if len(body.Suggestions) != 1 || body.Suggestions[0].Text != "one" {
		t.Fatalf("unexpected suggestions %+v", body.Suggestions)
	}

	if got := env.do(t, http.MethodPost, "/api/ai/generate-agenda", tok, `{"numDays":0}`).Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 for zero days, got %d", got)
	}
}

func TestStandardsStreamWritesDeltas(t *testing.T) {
	env := newTestEnv()
	tok := token(t, "usr_1", "a@school.org")
	env.ai.chunks = []string{`{"sugg`, `estions":`, `[]}`}

	rr := env.do(t, http.MethodPost, "/api/ai/standards", tok, `{"topic":"water cycle","gradeLevel":"5"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("expected plain text stream, got %q", got)
	}
	if got := rr.Body.String(); got != `{"suggestions":[]}` {
		t.Fatalf("expected concatenated deltas, got %q", got)
	}

	if got := env.do(t, http.MethodPost, "/api/ai/standards", tok, `{}`).Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 without topic, got %d", got)
	}
}

func TestLessonsRoutes(t *testing.T) {
	env := newTestEnv()
	b := env.seedBoard(t, "usr_1")
	tok := token(t, "usr_1", "a@school.org")

	if got := env.do(t, http.MethodGet, "/api/lessons", tok, "").Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 without boardId, got %d", got)
	}
	if got := env.do(t, http.MethodPost, "/api/lessons", tok, `{"boardId":"`+b.ID+`"}`).Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing fields, got %d", got)
	}

	rr := env.do(t, http.MethodPost, "/api/lessons", tok, `{"boardId":"`+b.ID+`","agendaEntryId":"ae_1","subject":"Science","periodMinutes":45,"content":{"materials":"beakers"}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[struct {
		Lesson struct {
			ID string `json:"id"`
		} `json:"lesson"`
	}](t, rr.Body.Bytes())

	list := decode[struct {
		Lessons []map[string]any `json:"lessons"`
	}](t, env.do(t, http.MethodGet, "/api/lessons?boardId="+b.ID, tok, "").Body.Bytes())
	if len(list.Lessons) != 1 {
		t.Fatalf("expected one lesson, got %d", len(list.Lessons))
	}

	if got := env.do(t, http.MethodPut, "/api/lessons/"+created.Lesson.ID, tok, `{"periodMinutes":0}`).Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 for zero period, got %d", got)
	}
	if got := env.do(t, http.MethodDelete, "/api/lessons/"+created.Lesson.ID, tok, "").Code; got != http.StatusOK {
		t.Fatalf("expected status 200 on delete, got %d", got)
	}
}
