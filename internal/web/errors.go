package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. The status code comes from the error kind; the message from core.MapError
//  4. Technical error + context is logged with request id for correlation
//  5. User message is rendered as JSON for API calls, HTML otherwise

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tblimport/internal/core"
	"github.com/JonMunkholm/tblimport/internal/logging"
	"github.com/JonMunkholm/tblimport/internal/store"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Action   string `json:"action,omitempty"`
	Code     string `json:"code"`
	ExitCode int    `json:"exit_code"`
}

// statusFor maps an import error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, store.ErrExists), errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict
	}
	switch core.KindOf(err) {
	case core.KindUsage, core.KindSyntax, core.KindConfig, core.KindParse, core.KindLookup, core.KindTranscode:
		return http.StatusUnprocessableEntity
	case core.KindMismatch:
		return http.StatusConflict
	case core.KindIO:
		if strings.Contains(err.Error(), "TOO_LARGE") {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and answers with the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = errorPage(userMsg).Render(r.Context(), w)
		return
	}
	writeJSON(w, status, ErrorResponse{
		Error:    err.Error(),
		Message:  userMsg.Message,
		Action:   userMsg.Action,
		Code:     userMsg.Code,
		ExitCode: core.ExitCode(err),
	})
}

// wantsHTML reports whether the client asked for a page rather than JSON.
func wantsHTML(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html")
}
