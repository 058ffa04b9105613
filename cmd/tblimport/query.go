package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tblimport/internal/core"
)

var (
	queryLibrary  string
	queryTable    string
	queryEncoding string
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the key and value fields of a table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc := queryEncoding
		if enc == "" {
			enc = cfg.Import.Encoding
		}
		im := core.NewImporter(oneShotBinder(cfg.Store), cfg.Import.MaxDocumentSize)
		info, err := im.Describe(cmd.Context(), queryLibrary, queryTable, enc)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if queryJSON {
			e := json.NewEncoder(out)
			e.SetIndent("", "  ")
			return e.Encode(info)
		}
		fmt.Fprintf(out, "Table %s in library %s\n", info.Table, info.Library)
		fmt.Fprintf(out, "Keys:  %s\n", strings.Join(info.Keys, " "))
		fmt.Fprintf(out, "Names: %s\n", strings.Join(info.Values, " "))
		fmt.Fprintf(out, "Rows:  %d\n", info.Rows)
		return nil
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryLibrary, "library", "", "table library (store location)")
	f.StringVar(&queryTable, "table", "", "table name")
	f.StringVar(&queryEncoding, "encoding", "", "store encoding the table was written with")
	f.BoolVar(&queryJSON, "json", false, "print JSON")
	rootCmd.AddCommand(queryCmd)
}
