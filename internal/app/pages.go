package app

import (
	_ "embed"
	"net/http"
)

var (
	//go:embed pages/login.html
	loginPage string
	//go:embed pages/unauthorized.html
	unauthorizedPage string
	//go:embed pages/notfound.html
	notFoundPage string
	//go:embed pages/error.html
	errorPage string
)

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// handleBoardPage renders the read-only board view. Failures become HTML
// pages rather than JSON.
func (s *HTTPServer) handleBoardPage(w http.ResponseWriter, r *http.Request, session Session, boardID string) {
	page, err := s.service.BoardPage(r.Context(), session, boardID)
	if err == nil {
		writeHTML(w, http.StatusOK, page)
		return
	}
	status, code, _, _ := mapError(err)
	switch status {
	case http.StatusNotFound:
		writeHTML(w, status, notFoundPage)
	case http.StatusForbidden:
		writeHTML(w, status, unauthorizedPage)
	default:
		if status >= http.StatusInternalServerError {
			s.log.Error("board page failed", "request_id", requestID(r.Context()), "board_id", boardID, "code", code, "error", err)
		}
		writeHTML(w, status, errorPage)
	}
}
