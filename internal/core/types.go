package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tblimport/internal/codepage"
)

// Well-known root member names of an import document.
const (
	FieldTable   = "table"
	FieldLibrary = "dsn"
	FieldKeys    = "keys"
	FieldNames   = "names"
	FieldData    = "data"
	FieldNumRows = "num_rows"
)

// Params are the caller-supplied settings of one import run. Library, Table
// and Encoding are UTF-8; empty means "not given".
type Params struct {
	Input    string
	Library  string
	Table    string
	Encoding string
	Replace  bool
	Force    bool
	DryRun   bool
}

// Normalize trims the textual parameters and applies the flag policy:
// FORCE on its own also requests REPLACE.
func (p *Params) Normalize() {
	p.Input = strings.TrimSpace(p.Input)
	p.Library = strings.TrimSpace(p.Library)
	p.Table = strings.TrimSpace(p.Table)
	p.Encoding = strings.TrimSpace(p.Encoding)
	if p.Force {
		p.Replace = true
	}
}

// Identity names the output table. Both parts are UTF-8.
type Identity struct {
	Library string
	Table   string
}

func (id Identity) String() string { return id.Library + "(" + id.Table + ")" }

// Field is one table field. Name is in the working encoding and is what the
// store sees; Source is the spelling used inside the document's row objects.
type Field struct {
	Name   string
	Source string
}

// ImportSchema is what the metadata extractor derives from the document root.
type ImportSchema struct {
	Identity     Identity
	RowCountHint int
	Keys         []Field
	Values       []Field
}

// KeyNames returns the key field names in the working encoding.
func (s *ImportSchema) KeyNames() []string { return names(s.Keys) }

// ValueNames returns the value field names in the working encoding.
func (s *ImportSchema) ValueNames() []string { return names(s.Values) }


func names(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// Record is one row bound by field name, ready to append.
type Record map[string]string

// Outcome is the reconciler's decision.
type Outcome int

const (
	NewTable Outcome = iota
	ReplaceSameShape
	ReplaceForced
	RejectMismatch
)

func (o Outcome) String() string {
	switch o {
	case NewTable:
		return "new-table"
	case ReplaceSameShape:
		return "replace-same-shape"
	case ReplaceForced:
		return "replace-forced"
	case RejectMismatch:
		return "reject-mismatch"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Summary is the completion report of a successful run. Field names are
// UTF-8 for display.
type Summary struct {
	RunID   string   `json:"run_id"`
	Library string   `json:"library"`
	Table   string   `json:"table"`
	Rows    int      `json:"rows"`
	Hint    int      `json:"row_count_hint"`
	Keys    []string `json:"keys"`
	Values  []string `json:"names"`
	Outcome string   `json:"outcome"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// RowPhrase is the singular or plural row-count phrase.
func RowPhrase(n int) string {
	if n == 1 {
		return "row has been processed"
	}
	return "rows have been processed"
}

// Reported is the row count shown to the operator: the document's hint when
// it gave one, otherwise the rows actually appended.
func (s Summary) Reported() int {
	if s.Hint > 0 {
		return s.Hint
	}
	return s.Rows
}

// Report renders the human-readable completion message.
func (s Summary) Report() string {
	n := s.Reported()
	var b strings.Builder
	fmt.Fprintf(&b, "Table %s in library %s\n", s.Table, s.Library)
	fmt.Fprintf(&b, "%d %s\n", n, RowPhrase(n))
	fmt.Fprintf(&b, "Keys:  %s\n", strings.Join(s.Keys, " "))
	fmt.Fprintf(&b, "Names: %s\n", strings.Join(s.Values, " "))
	if s.DryRun {
		b.WriteString("Dry run: nothing was saved\n")
	}
	return b.String()
}

// displayNames decodes working-encoding field names for reports.
func displayNames(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		s, err := codepage.Decode(f.Name, codepage.Default)
		if err != nil {
			s = f.Name
		}
		out[i] = s
	}
	return out
}
