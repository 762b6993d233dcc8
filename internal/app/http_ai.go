package app

import (
	"net/http"

	"pblboard/api/internal/board"
	"pblboard/api/internal/generate"
)

// handleStatelessAI serves /api/ai/{name}. These routes generate from the
// posted document only.
func (s *HTTPServer) handleStatelessAI(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()

	switch name {
	case "generate":
		var req generate.CellRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		suggestions, err := s.service.GenerateCell(ctx, req)
		s.respond(w, r, map[string]any{"suggestions": suggestions}, err)

	case "improve":
		var req generate.CellRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		suggestion, err := s.service.ImproveCell(ctx, req)
		s.respond(w, r, map[string]any{"suggestion": suggestion}, err)

	case "generate-board":
		var in GenerateBoardInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		variation, err := s.service.GenerateBoard(ctx, in)
		s.respond(w, r, variation, err)

	case "generate-agenda":
		var in GenerateAgendaInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		sessions, err := s.service.GenerateAgenda(ctx, in)
		s.respond(w, r, map[string]any{"sessions": sessions}, err)

	case "generate-lesson":
		var in GenerateLessonInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		lesson, err := s.service.GenerateLesson(ctx, in)
		s.respond(w, r, map[string]any{"lesson": lesson}, err)

	case "collaborate":
		var in CollaborateInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		reply, err := s.service.Collaborate(ctx, in)
		s.respond(w, r, reply, err)

	case "critique":
		var body struct {
			Content board.Content `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		critique, err := s.service.CritiqueContent(ctx, body.Content)
		s.respond(w, r, critique, err)

	case "standards":
		s.streamStandards(w, r)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// streamStandards writes the model output as plain text while it arrives.
// Errors after the first chunk can only end the stream.
func (s *HTTPServer) streamStandards(w http.ResponseWriter, r *http.Request) {
	var in StandardsInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	flusher, _ := w.(http.Flusher)
	written := 0
	started := false
	_, err := s.service.StreamStandards(r.Context(), in, func(partial string) {
		if len(partial) <= written {
			return
		}
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		_, _ = w.Write([]byte(partial[written:]))
		written = len(partial)
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err == nil && !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		if !started {
			s.fail(w, r, err)
			return
		}
		s.log.Warn("standards stream ended early", "request_id", requestID(r.Context()), "error", err)
	}
}

// handleBoardAI serves /api/boards/{id}/ai/...
func (s *HTTPServer) handleBoardAI(w http.ResponseWriter, r *http.Request, session Session, boardID string, rest []string) {
	if len(rest) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	ctx := r.Context()

	if rest[0] == "proposals" {
		s.handleProposals(w, r, session, boardID, rest[1:])
		return
	}
	if rest[0] == "critique" && len(rest) == 1 && (r.Method == http.MethodGet || r.Method == http.MethodPost) {
		critique, err := s.service.CritiqueBoard(ctx, session, boardID)
		s.respond(w, r, critique, err)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	switch {
	case len(rest) == 1 && rest[0] == "suggest":
		var body struct {
			CellKey  string `json:"cellKey"`
			Feedback string `json:"feedback"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		suggestions, err := s.service.SuggestCell(ctx, session, boardID, body.CellKey, body.Feedback)
		s.respond(w, r, map[string]any{"suggestions": suggestions}, err)

	case len(rest) == 1 && rest[0] == "apply":
		var in ApplyInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.ApplySuggestion(ctx, session, boardID, in)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "fix":
		var body struct {
			CellKey  string `json:"cellKey"`
			Feedback string `json:"feedback"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.FixCell(ctx, session, boardID, body.CellKey, body.Feedback)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "add":
		var body struct {
			CellKey     string `json:"cellKey"`
			Description string `json:"description"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.AddCellSection(ctx, session, boardID, body.CellKey, body.Description)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "title":
		st, err := s.service.GenerateTitle(ctx, session, boardID)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "variation":
		var in VariationInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		variation, err := s.service.BoardVariation(ctx, session, boardID, in)
		s.respond(w, r, variation, err)

	case len(rest) == 2 && rest[0] == "variation" && rest[1] == "apply":
		var v generate.Variation
		if err := decodeBody(r, &v); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.ApplyVariation(ctx, session, boardID, v)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "agenda":
		var body struct {
			NumDays int `json:"numDays"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.RegenerateAgenda(ctx, session, boardID, body.NumDays)
		s.respond(w, r, st, err)

	case len(rest) == 3 && rest[0] == "agenda" && rest[2] == "improve":
		var in ImproveAgendaInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.ImproveAgendaEntry(ctx, session, boardID, rest[1], in)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "lessons":
		var in GenerateLessonsInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.GenerateLessons(ctx, session, boardID, in)
		s.respond(w, r, payload, err)

	case len(rest) == 1 && rest[0] == "collaborate":
		var in BoardCollaborateInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		batch, err := s.service.BoardCollaborate(ctx, session, boardID, in)
		s.respond(w, r, map[string]any{"batch": batch}, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleProposals serves /api/boards/{id}/ai/proposals/...
func (s *HTTPServer) handleProposals(w http.ResponseWriter, r *http.Request, session Session, boardID string, rest []string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()
	switch {
	case len(rest) == 1 && rest[0] == "accept-all":
		result, err := s.service.AcceptAllProposals(ctx, session, boardID)
		s.respond(w, r, result, err)

	case len(rest) == 2 && (rest[1] == "accept" || rest[1] == "reject"):
		index, err := pathIndex(rest[0])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		var result ProposalResult
		if rest[1] == "accept" {
			result, err = s.service.AcceptProposal(ctx, session, boardID, index)
		} else {
			result, err = s.service.RejectProposal(ctx, session, boardID, index)
		}
		s.respond(w, r, result, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleLessons serves /api/lessons/...; rest is the path after "lessons".
func (s *HTTPServer) handleLessons(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListLessons(ctx, session, r.URL.Query().Get("boardId"))
			s.respond(w, r, map[string]any{"lessons": items}, err)
		case http.MethodPost:
			var in CreateLessonInput
			if err := decodeBody(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			created, err := s.service.CreateLesson(ctx, session, in)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"lesson": created})
		default:
			methodNotAllowed(w)
		}
		return
	}

	lessonID := rest[0]
	switch {
	case len(rest) == 1 && r.Method == http.MethodPut:
		var in UpdateLessonInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateLesson(ctx, session, lessonID, in)
		s.respond(w, r, map[string]any{"lesson": updated}, err)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		err := s.service.DeleteLesson(ctx, session, lessonID)
		s.respond(w, r, map[string]any{"ok": true}, err)

	case len(rest) == 2 && rest[1] == "regenerate" && r.Method == http.MethodPost:
		updated, err := s.service.RegenerateLesson(ctx, session, lessonID)
		s.respond(w, r, map[string]any{"lesson": updated}, err)

	case len(rest) == 2 && rest[1] == "improve" && r.Method == http.MethodPost:
		var in ImproveLessonInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.ImproveLesson(ctx, session, lessonID, in)
		s.respond(w, r, map[string]any{"lesson": updated}, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}
