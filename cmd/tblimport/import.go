package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tblimport/internal/core"
	"github.com/JonMunkholm/tblimport/internal/logging"
)

var importParams core.Params

var importCmd = &cobra.Command{
	Use:   "import <document> [DSN=lib] [TABLE=name] [ENC=codepage] [(REPL FORCE]",
	Short: "Import one document into a table",
	Long: `Import reads the document, resolves the table identity (flags and
parameters first, then the document's "table" and "dsn" fields) and writes
every entry of its "data" array as one record.

Without REPL an existing table is left alone and the run fails. With REPL
the table is replaced when its key and value fields match the document;
FORCE replaces it even when they differ and implies REPL.`,
	Args: cobra.ArbitraryArgs,
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importParams.Library, "library", "", "table library (store location)")
	f.StringVar(&importParams.Library, "dsn", "", "alias for --library")
	f.StringVar(&importParams.Table, "table", "", "table name")
	f.StringVar(&importParams.Encoding, "encoding", "", "store encoding, e.g. IBM-037 (default from config)")
	f.BoolVar(&importParams.Replace, "replace", false, "replace an existing table with the same fields")
	f.BoolVar(&importParams.Force, "force", false, "replace an existing table even if its fields differ")
	f.BoolVar(&importParams.DryRun, "dry-run", false, "run the whole import without saving anything")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	p := importParams
	if len(args) > 0 {
		p.Input = args[0]
		if err := core.ParseParamString(strings.Join(args[1:], " "), &p); err != nil {
			return err
		}
	}
	if p.Encoding == "" {
		p.Encoding = cfg.Import.Encoding
	}

	runID := uuid.NewString()
	ctx := logging.WithRun(cmd.Context(), runID)
	logging.FromContext(ctx).Info("import started", "input", p.Input, "driver", cfg.Store.Driver)

	im := core.NewImporter(oneShotBinder(cfg.Store), cfg.Import.MaxDocumentSize)
	sum, err := im.ImportFile(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), sum.Report())
	return nil
}
