package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/tblimport/internal/document"
	"github.com/JonMunkholm/tblimport/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "missing input",
			err:         &Error{Kind: KindUsage, Op: "import", Reason: "NO_INPUT", Err: errNoInput},
			wantCode:    "CFG001",
			wantMessage: "No input document was given",
		},
		{
			name:        "unresolved identity",
			err:         newError(KindConfig, "resolve table", "MISSING", errNoIdentity),
			wantCode:    "CFG002",
			wantMessage: "The table identity could not be resolved",
		},
		{
			name:        "syntax error from parser",
			err:         newError(KindParse, "parse", "", &document.Error{Op: "parse", Code: document.CodeSyntax}),
			wantCode:    "DOC002",
			wantMessage: "The document is not well-formed",
		},
		{
			name:        "empty names array",
			err:         newError(KindLookup, "extract names", "EMPTY", errNoValues),
			wantCode:    "LKP002",
			wantMessage: "The document defines no value fields",
		},
		{
			name:        "shape mismatch",
			err:         fmt.Errorf("reconcile: %w", errShapeMismatch),
			wantCode:    "SCH001",
			wantMessage: "The existing table has different fields",
		},
		{
			name:        "duplicate key from store",
			err:         newError(KindStore, "append row 1", "", store.ErrDuplicateKey),
			wantCode:    "TBL003",
			wantMessage: "Two rows share the same key",
		},
		{
			name:        "postgres connection refused",
			err:         errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode:    "TBL006",
			wantMessage: "Unable to connect to the store",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value"),
			wantCode:    "TBL003",
			wantMessage: "Two rows share the same key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError().Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError().Message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
	got := FormatUserError(errShapeMismatch)
	want := "The existing table has different fields (Code: SCH001). Rerun with FORCE to replace the table anyway"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
	if !IsUserFacing(store.ErrExists) {
		t.Error("IsUserFacing(ErrExists) = false, want true")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("IsUserFacing(boom) = true, want false")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{&Error{Kind: KindUsage}, 1},
		{&Error{Kind: KindSyntax}, 2},
		{&Error{Kind: KindConfig}, 4},
		{&Error{Kind: KindIO}, 8},
		{&Error{Kind: KindParse}, 12},
		{&Error{Kind: KindLookup}, 16},
		{&Error{Kind: KindMismatch}, 20},
		{&Error{Kind: KindStore}, 24},
		{&Error{Kind: KindTranscode}, 28},
		{fmt.Errorf("wrapped: %w", &Error{Kind: KindStore}), 24},
		{errors.New("plain"), ExitInternal},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		err        error
		wantRC     int
		wantReason string
	}{
		{store.ErrNotExist, 8, "NOT_EXIST"},
		{store.ErrDuplicateKey, 8, "DUPLICATE_KEY"},
		{store.ErrNotOpen, 12, "NOT_OPEN"},
		{&document.Error{Code: document.CodeTypeMismatch}, int(document.CodeTypeMismatch), "TYPE_MISMATCH"},
		{document.ErrNotFound, 8, "NOT_FOUND"},
		{errors.New("disk full"), 20, "SEVERE"},
	}
	for _, tt := range tests {
		rc, reason := diagnose(tt.err)
		if rc != tt.wantRC || reason != tt.wantReason {
			t.Errorf("diagnose(%v) = %d %s, want %d %s", tt.err, rc, reason, tt.wantRC, tt.wantReason)
		}
	}
}
