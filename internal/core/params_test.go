package core

import (
	"testing"

	"github.com/JonMunkholm/tblimport/internal/store"
)

func TestParseParamString(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		start   Params
		want    Params
		wantErr bool
	}{
		{
			name: "keywords and options",
			in:   "DSN=LIB.PDS TABLE=T1 ENC=IBM-037 (REPL FORCE",
			want: Params{Library: "LIB.PDS", Table: "T1", Encoding: "IBM-037", Replace: true, Force: true},
		},
		{
			name: "detached parenthesis and closing paren",
			in:   "table=T2 ( repl)",
			want: Params{Table: "T2", Replace: true},
		},
		{
			name:  "flags already set win",
			in:    "DSN=OTHER TABLE=T9",
			start: Params{Library: "MINE"},
			want:  Params{Library: "MINE", Table: "T9"},
		},
		{
			name: "empty string",
			in:   "",
			want: Params{},
		},
		{
			name:    "unknown keyword",
			in:      "COLOR=RED",
			wantErr: true,
		},
		{
			name:    "bare word before options",
			in:      "T1",
			wantErr: true,
		},
		{
			name:    "unknown option",
			in:      "(NOPE",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start
			err := ParseParamString(tt.in, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseParamString(%q) = nil, want error", tt.in)
				}
				if ExitCode(err) != ExitSyntax {
					t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitSyntax)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseParamString(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseParamString(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeForceImpliesReplace(t *testing.T) {
	p := Params{Force: true, Table: "  T1 "}
	p.Normalize()
	if !p.Replace {
		t.Error("Normalize() left Replace false with Force set")
	}
	if p.Table != "T1" {
		t.Errorf("Table = %q, want %q", p.Table, "T1")
	}
}

func TestSameShape(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		values []string
		shape  store.Shape
		want   bool
	}{
		{"identical", []string{"ID"}, []string{"VAL"}, store.Shape{Keys: "(ID)", Names: "(VAL)"}, true},
		{"order ignored", []string{"B", "A"}, []string{"Y", "X"}, store.Shape{Keys: "(A B)", Names: "(X Y)"}, true},
		{"key-less", nil, []string{"V"}, store.Shape{Keys: "", Names: "(V)"}, true},
		{"extra key", []string{"ID"}, []string{"VAL"}, store.Shape{Keys: "(ID NAME)", Names: "(VAL)"}, false},
		{"value moved to key", []string{"ID", "VAL"}, []string{"X"}, store.Shape{Keys: "(ID)", Names: "(VAL X)"}, false},
		{"case matters", []string{"id"}, []string{"VAL"}, store.Shape{Keys: "(ID)", Names: "(VAL)"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameShape(tt.keys, tt.values, tt.shape); got != tt.want {
				t.Errorf("SameShape() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRowPhrase(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "rows have been processed"},
		{1, "row has been processed"},
		{2, "rows have been processed"},
	}
	for _, tt := range tests {
		if got := RowPhrase(tt.n); got != tt.want {
			t.Errorf("RowPhrase(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
