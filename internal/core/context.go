package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JonMunkholm/tblimport/internal/codepage"
	"github.com/JonMunkholm/tblimport/internal/document"
	"github.com/JonMunkholm/tblimport/internal/logging"
	"github.com/JonMunkholm/tblimport/internal/store"
)

// RunContext carries the state of one import run from component to
// component. Nothing about a run lives in package state.
type RunContext struct {
	RunID  string
	Params Params

	Doc   document.Accessor
	Codes *codepage.Pipeline

	Schema ImportSchema
	// StoreTable is the table name in the store encoding.
	StoreTable string
	Outcome    Outcome
	Rows       int

	lib       store.Library
	tableOpen bool
	log       *slog.Logger
}

// NewRunContext prepares a run over a parsed document.
func NewRunContext(ctx context.Context, p Params, doc document.Accessor, codes *codepage.Pipeline) *RunContext {
	return &RunContext{
		RunID:  logging.RunID(ctx),
		Params: p,
		Doc:    doc,
		Codes:  codes,
		log:    logging.FromContext(ctx),
	}
}

// Logger returns the run's logger.
func (rc *RunContext) Logger() *slog.Logger {
	if rc.log == nil {
		return slog.Default()
	}
	return rc.log
}

// literal converts a UTF-8 member name into the document encoding.
func (rc *RunContext) literal(name string) (string, error) {
	s, err := rc.Codes.Literal(name)
	if err != nil {
		return "", newError(KindTranscode, "literal "+name, "", err)
	}
	return s, nil
}

// findRoot looks up a well-known root member. found is false when the member
// is absent; any other failure is returned as a Lookup error.
func (rc *RunContext) findRoot(name string, expect document.Type) (v document.Value, found bool, err error) {
	lit, err := rc.literal(name)
	if err != nil {
		return document.Value{}, false, err
	}
	v, err = rc.Doc.FindByName(document.Root, lit, expect)
	switch {
	case errors.Is(err, document.ErrNotFound):
		return document.Value{}, false, nil
	case err != nil:
		return document.Value{}, false, newError(KindLookup, "find "+name, "", err)
	}
	return v, true, nil
}

// cleanup releases store resources in reverse acquisition order. A table
// still open for write is ended so nothing half-written is saved.
func (rc *RunContext) cleanup(ctx context.Context) {
	if rc.lib == nil {
		return
	}
	if rc.tableOpen {
		if err := rc.lib.End(ctx, rc.StoreTable); err != nil {
			rc.Logger().Warn("end table failed", "table", rc.Schema.Identity.Table, "error", err)
		}
		rc.tableOpen = false
	}
	if err := rc.lib.Release(); err != nil {
		rc.Logger().Warn("release library failed", "library", rc.Schema.Identity.Library, "error", err)
	}
	rc.lib = nil
}
