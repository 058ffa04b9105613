package core

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/JonMunkholm/tblimport/internal/codepage"
	"github.com/JonMunkholm/tblimport/internal/document"
	"github.com/JonMunkholm/tblimport/internal/logging"
	"github.com/JonMunkholm/tblimport/internal/store"
	"github.com/JonMunkholm/tblimport/internal/store/memstore"
)

var (
	errNoInput  = errors.New("input path is required")
	errTooLarge = errors.New("document too large")
)

// Binder binds the store library an import writes to. tables is the code
// page table names and values arrive in.
type Binder func(ctx context.Context, library string, tables codepage.Codec) (store.Library, error)

// Importer runs document-to-table imports.
type Importer struct {
	bind    Binder
	maxSize int
}

// NewImporter creates an importer. maxSize <= 0 means document.MaxSize.
func NewImporter(bind Binder, maxSize int) *Importer {
	if maxSize <= 0 || maxSize > document.MaxSize {
		maxSize = document.MaxSize
	}
	return &Importer{bind: bind, maxSize: maxSize}
}

// MaxSize is the largest document the importer accepts.
func (im *Importer) MaxSize() int { return im.maxSize }

// ImportFile reads p.Input and imports it.
func (im *Importer) ImportFile(ctx context.Context, p Params) (Summary, error) {
	p.Normalize()
	if p.Input == "" {
		return Summary{}, &Error{Kind: KindUsage, Op: "import", RC: 8, Reason: "NO_INPUT", Err: errNoInput}
	}

	info, err := os.Stat(p.Input)
	if err != nil {
		return Summary{}, newError(KindIO, "read "+p.Input, "OPEN", err)
	}
	if info.Size() > int64(im.maxSize) {
		return Summary{}, newError(KindIO, "read "+p.Input, "TOO_LARGE",
			fmt.Errorf("%w: %d bytes exceeds %d", errTooLarge, info.Size(), im.maxSize))
	}
	data, err := os.ReadFile(p.Input)
	if err != nil {
		return Summary{}, newError(KindIO, "read "+p.Input, "READ", err)
	}
	return im.Run(ctx, p, data)
}

// Run imports one document. Store resources acquired during the run are
// released on every path; a table open for write when an error occurs is
// ended without saving.
func (im *Importer) Run(ctx context.Context, p Params, data []byte) (Summary, error) {
	p.Normalize()

	if _, _, err := codepage.Lookup(p.Encoding); err != nil {
		return Summary{}, newError(KindConfig, "encoding", "UNKNOWN", err)
	}
	if len(data) > im.maxSize {
		return Summary{}, newError(KindIO, "read", "TOO_LARGE",
			fmt.Errorf("%w: %d bytes exceeds %d", errTooLarge, len(data), im.maxSize))
	}

	doc, err := document.Parse(data)
	if err != nil {
		return Summary{}, newError(KindParse, "parse", "", err)
	}
	defer doc.Release()

	codes, err := codepage.New(doc.Encoding(), p.Encoding)
	if err != nil {
		return Summary{}, newError(KindConfig, "encoding", "UNKNOWN", err)
	}

	rc := NewRunContext(ctx, p, doc, codes)
	rc.Logger().Debug("document parsed",
		"encoding", codes.Document().String(), "nodes", doc.Len(),
		"store_encoding", codes.Store().Name, "explicit_target", codes.Explicit())

	if err := ExtractMetadata(rc); err != nil {
		return Summary{}, err
	}
	rc.log = logging.WithFields(ctx, "library", rc.Schema.Identity.Library, "table", rc.Schema.Identity.Table)
	log := rc.log

	lib, err := im.bind(ctx, rc.Schema.Identity.Library, codes.Store())
	if err != nil {
		return Summary{}, newError(KindStore, "bind "+rc.Schema.Identity.Library, "", err)
	}
	rc.lib = lib
	defer rc.cleanup(ctx)

	if err := im.write(ctx, rc); err != nil {
		log.Error("import failed", "error", err)
		return Summary{}, err
	}

	sum := Summary{
		RunID:   rc.RunID,
		Library: rc.Schema.Identity.Library,
		Table:   rc.Schema.Identity.Table,
		Rows:    rc.Rows,
		Hint:    rc.Schema.RowCountHint,
		Keys:    displayNames(rc.Schema.Keys),
		Values:  displayNames(rc.Schema.Values),
		Outcome: rc.Outcome.String(),
		DryRun:  p.DryRun,
	}
	log.Info("import complete", "rows", rc.Rows, "outcome", sum.Outcome, "dry_run", p.DryRun)
	return sum, nil
}

func (im *Importer) write(ctx context.Context, rc *RunContext) error {
	log := rc.Logger()

	rc.Outcome = NewTable
	if rc.Params.Replace {
		outcome, err := Reconcile(ctx, rc.lib, rc)
		rc.Outcome = outcome
		if err != nil {
			return err
		}
	}
	log.Info("reconciled", "outcome", rc.Outcome.String())

	if rc.Params.DryRun {
		if err := rc.lib.Release(); err != nil {
			log.Warn("release library failed", "error", err)
		}
		rc.lib = memstore.New().Library(rc.Schema.Identity.Library)
	}

	mode := store.CreateNew
	if rc.Outcome == ReplaceSameShape || rc.Outcome == ReplaceForced {
		mode = store.CreateReplace
	}
	if err := rc.lib.Create(ctx, rc.StoreTable, rc.Schema.KeyNames(), rc.Schema.ValueNames(), mode); err != nil {
		if errors.Is(err, store.ErrExists) {
			return newError(KindStore, "create", "", fmt.Errorf("%w; rerun with REPL to replace it", err))
		}
		return newError(KindStore, "create", "", err)
	}
	rc.tableOpen = true
	log.Debug("table created", "mode", mode.String())

	n, err := ImportRows(ctx, rc)
	rc.Rows = n
	if err != nil {
		return err
	}
	log.Debug("rows appended", "rows", n)

	if err := rc.lib.Close(ctx, rc.StoreTable); err != nil {
		return newError(KindStore, "close", "", err)
	}
	rc.tableOpen = false
	log.Debug("table closed")
	return nil
}
