package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/tblimport/internal/core"
	"github.com/JonMunkholm/tblimport/internal/logging"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleImport runs the pipeline on the request body. Query parameters mirror
// the command line: library, table, encoding, replace, force, dry_run and
// params (a classic parameter string).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := core.Params{
		Library:  q.Get("library"),
		Table:    q.Get("table"),
		Encoding: q.Get("encoding"),
		Replace:  queryBool(q.Get("replace")),
		Force:    queryBool(q.Get("force")),
		DryRun:   queryBool(q.Get("dry_run")),
	}
	if raw := q.Get("params"); raw != "" {
		if err := core.ParseParamString(raw, &p); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if p.Encoding == "" {
		p.Encoding = s.encoding
	}

	// One byte over the limit is enough for the importer to reject it.
	data, err := io.ReadAll(io.LimitReader(r.Body, int64(s.importer.MaxSize())+1))
	if err != nil {
		s.respondError(w, r, &core.Error{Kind: core.KindIO, Op: "read body", RC: 20, Reason: "READ", Err: err})
		return
	}

	ctx := logging.WithRun(r.Context(), uuid.NewString())
	sum, err := s.importer.Run(ctx, p, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) describe(r *http.Request) (core.TableInfo, error) {
	encoding := r.URL.Query().Get("encoding")
	if encoding == "" {
		encoding = s.encoding
	}
	return s.importer.Describe(r.Context(), chi.URLParam(r, "library"), chi.URLParam(r, "table"), encoding)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	info, err := s.describe(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleTablePage(w http.ResponseWriter, r *http.Request) {
	info, err := s.describe(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tablePage(info).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render table page", "error", err)
	}
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
