package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"pblboard/api/internal/board"
	"pblboard/api/internal/export"
)

// respond writes payload, or the mapped error when err is set.
func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, payload any, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

// handleBoards serves /api/boards/...; rest is the path after "boards".
func (s *HTTPServer) handleBoards(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListBoards(r.Context(), session)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"boards": items})
		case http.MethodPost:
			created, err := s.service.CreateBoard(r.Context(), session)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"board": created})
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(rest) == 1 && rest[0] == "search" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		offset, _ := strconv.Atoi(query.Get("offset"))
		writeJSON(w, http.StatusOK, s.service.SearchBoards(r.Context(), session, query.Get("q"), limit, offset))
		return
	}

	boardID := rest[0]
	rest = rest[1:]

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetBoard(r.Context(), session, boardID)
			s.respond(w, r, payload, err)
		case http.MethodPut:
			var body UpdateBoardInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			updated, err := s.service.UpdateBoard(r.Context(), session, boardID, body)
			s.respond(w, r, map[string]any{"board": updated}, err)
		case http.MethodDelete:
			err := s.service.DeleteBoard(r.Context(), session, boardID)
			s.respond(w, r, map[string]any{"ok": true}, err)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch rest[0] {
	case "progress":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		progress, err := s.service.Progress(r.Context(), session, boardID)
		s.respond(w, r, progress, err)
	case "edit":
		s.handleEdit(w, r, session, boardID, rest[1:])
	case "revisions", "compare":
		s.handleRevisions(w, r, session, boardID, rest)
	case "ai":
		s.handleBoardAI(w, r, session, boardID, rest[1:])
	case "events":
		s.handleEvents(w, r, session, boardID)
	case "presence":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var body PresenceInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		err := s.service.PublishPresence(r.Context(), session, boardID, body)
		s.respond(w, r, map[string]any{"ok": true}, err)
	case "export":
		s.handleExport(w, r, session, boardID)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleEdit serves /api/boards/{id}/edit/...
func (s *HTTPServer) handleEdit(w http.ResponseWriter, r *http.Request, session Session, boardID string, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		st, err := s.service.EditState(ctx, session, boardID)
		s.respond(w, r, st, err)
		return
	}

	switch {
	case len(rest) == 1 && rest[0] == "content" && r.Method == http.MethodPut:
		var body struct {
			Content json.RawMessage `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.SetContent(ctx, session, boardID, string(body.Content))
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "context" && r.Method == http.MethodPut:
		var body ContextInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.SetContext(ctx, session, boardID, body)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "title" && r.Method == http.MethodPut:
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.SetTitle(ctx, session, boardID, body.Title)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "undo" && r.Method == http.MethodPost:
		st, err := s.service.Undo(ctx, session, boardID)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "redo" && r.Method == http.MethodPost:
		st, err := s.service.Redo(ctx, session, boardID)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "flush" && r.Method == http.MethodPost:
		saved, err := s.service.Flush(ctx, session, boardID)
		s.respond(w, r, map[string]any{"saved": saved}, err)

	case len(rest) == 1 && rest[0] == "move" && r.Method == http.MethodPost:
		var body MoveInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.MoveSection(ctx, session, boardID, body)
		s.respond(w, r, st, err)

	case rest[0] == "cells" && len(rest) >= 2:
		s.handleCell(w, r, session, boardID, rest[1], rest[2:])

	case rest[0] == "additional" && len(rest) == 2 && r.Method == http.MethodPost:
		st, err := s.service.AddAdditional(ctx, session, boardID, rest[1])
		s.respond(w, r, st, err)

	case rest[0] == "additional" && len(rest) == 3 && r.Method == http.MethodDelete:
		index, err := pathIndex(rest[2])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		st, err := s.service.RemoveAdditional(ctx, session, boardID, rest[1], index)
		s.respond(w, r, st, err)

	case rest[0] == "agenda" && len(rest) == 1 && r.Method == http.MethodPost:
		st, err := s.service.AddAgendaEntry(ctx, session, boardID)
		s.respond(w, r, st, err)

	case rest[0] == "agenda" && len(rest) == 2 && r.Method == http.MethodPut:
		var patch board.AgendaPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.PatchAgendaEntry(ctx, session, boardID, rest[1], patch)
		s.respond(w, r, st, err)

	case rest[0] == "agenda" && len(rest) == 2 && r.Method == http.MethodDelete:
		st, err := s.service.DeleteAgendaEntry(ctx, session, boardID, rest[1])
		s.respond(w, r, st, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleCell serves /api/boards/{id}/edit/cells/{cellKey}/...
func (s *HTTPServer) handleCell(w http.ResponseWriter, r *http.Request, session Session, boardID, cellKey string, rest []string) {
	ctx := r.Context()
	switch {
	case len(rest) == 0 && r.Method == http.MethodPut:
		var body struct {
			Value string `json:"value"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.SetCell(ctx, session, boardID, cellKey, body.Value)
		s.respond(w, r, st, err)

	case len(rest) == 1 && rest[0] == "sections" && r.Method == http.MethodGet:
		sections, err := s.service.Sections(ctx, session, boardID, cellKey)
		s.respond(w, r, map[string]any{"sections": sections}, err)

	case len(rest) == 2 && rest[0] == "sections" && rest[1] == "reorder" && r.Method == http.MethodPost:
		var body struct {
			From int `json:"from"`
			To   int `json:"to"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.ReorderSections(ctx, session, boardID, cellKey, body.From, body.To)
		s.respond(w, r, st, err)

	case len(rest) == 2 && rest[0] == "sections" && r.Method == http.MethodPut:
		index, err := pathIndex(rest[1])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		st, err := s.service.EditSection(ctx, session, boardID, cellKey, index, body.Text)
		s.respond(w, r, st, err)

	case len(rest) == 2 && rest[0] == "sections" && r.Method == http.MethodDelete:
		index, err := pathIndex(rest[1])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		st, err := s.service.DeleteSection(ctx, session, boardID, cellKey, index)
		s.respond(w, r, st, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleRevisions serves the revisions and compare routes; rest starts at
// "revisions" or "compare".
func (s *HTTPServer) handleRevisions(w http.ResponseWriter, r *http.Request, session Session, boardID string, rest []string) {
	ctx := r.Context()
	switch {
	case rest[0] == "compare" && len(rest) == 1 && r.Method == http.MethodGet:
		q := r.URL.Query()
		diff, err := s.service.CompareRevisions(ctx, session, boardID, q.Get("from"), q.Get("to"))
		s.respond(w, r, diff, err)

	case len(rest) == 1 && r.Method == http.MethodGet:
		items, err := s.service.ListRevisions(ctx, session, boardID)
		s.respond(w, r, map[string]any{"revisions": items}, err)

	case len(rest) == 1 && r.Method == http.MethodPost:
		var body struct {
			Message string `json:"message"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateRevision(ctx, session, boardID, body.Message)
		s.respond(w, r, payload, err)

	case rest[0] == "revisions" && len(rest) == 2 && r.Method == http.MethodGet:
		payload, err := s.service.GetRevision(ctx, session, boardID, rest[1])
		s.respond(w, r, payload, err)

	case rest[0] == "revisions" && len(rest) == 3 && rest[2] == "restore" && r.Method == http.MethodPost:
		st, err := s.service.RestoreRevision(ctx, session, boardID, rest[1])
		s.respond(w, r, st, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleEvents streams the board's room as server-sent events.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request, session Session, boardID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	hub, client, err := s.service.JoinBoardEvents(r.Context(), session, boardID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer hub.Leave(client)
	hub.Serve(w, r, client)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, session Session, boardID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	format, err := export.ParseFormat(strings.ToLower(q.Get("format")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.service.ExportBoard(r.Context(), session, export.Request{
		BoardID:        boardID,
		Format:         format,
		IncludeLessons: q.Get("lessons") == "true",
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if q.Get("upload") == "true" {
		url, err := s.service.UploadExport(r.Context(), boardID, result)
		s.respond(w, r, map[string]any{"url": url, "filename": result.Filename}, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Type", result.MimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
