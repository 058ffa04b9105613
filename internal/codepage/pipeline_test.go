package codepage

import (
	"errors"
	"testing"
)

// countingTranscoder records calls so tests can assert empty input never
// reaches the transcoder.
type countingTranscoder struct {
	calls int
}

func (c *countingTranscoder) Transcode(in []byte, from, to Codec) ([]byte, error) {
	c.calls++
	return XText{}.Transcode(in, from, to)
}

type failingTranscoder struct{}

func (failingTranscoder) Transcode([]byte, Codec, Codec) ([]byte, error) {
	return nil, errors.New("iconv failed")
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantName     string
		wantExplicit bool
		wantErr      bool
	}{
		{"empty is default", "", "IBM-1047", false, false},
		{"dashed alias", "IBM-1047", "IBM-1047", false, false},
		{"compact alias", "ibm1047", "IBM-1047", false, false},
		{"bare number alias", "1047", "IBM-1047", false, false},
		{"cp alias", " CP1047 ", "IBM-1047", false, false},
		{"ibm 037", "IBM-037", "IBM-037", true, false},
		{"latin1", "iso8859-1", "ISO8859-1", true, false},
		{"utf8", "utf-8", "UTF-8", true, false},
		{"unknown", "NOT-A-CODEPAGE", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, explicit, err := Lookup(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Lookup(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if c.Name != tt.wantName {
				t.Errorf("Lookup(%q) name = %q, want %q", tt.input, c.Name, tt.wantName)
			}
			if explicit != tt.wantExplicit {
				t.Errorf("Lookup(%q) explicit = %v, want %v", tt.input, explicit, tt.wantExplicit)
			}
		})
	}
}

func TestEmptyInputSkipsTranscoder(t *testing.T) {
	tc := &countingTranscoder{}
	for _, doc := range []Variant{Legacy, Unicode} {
		for _, explicit := range []bool{false, true} {
			target := Default
			if explicit {
				target, _, _ = Lookup("IBM-037")
			}
			p := NewWithTranscoder(tc, doc, target, explicit)
			for name, fn := range map[string]func(string) (string, error){
				"LegacyToUnicode": p.LegacyToUnicode,
				"UnicodeToLegacy": p.UnicodeToLegacy,
				"Convert":         p.Convert,
				"FromParam":       p.FromParam,
			} {
				got, err := fn("")
				if err != nil || got != "" {
					t.Errorf("%s(\"\") = %q, %v; want empty, nil", name, got, err)
				}
			}
		}
	}
	if tc.calls != 0 {
		t.Errorf("transcoder called %d times for empty input", tc.calls)
	}
}

func TestLegacyToUnicode(t *testing.T) {
	p := NewWithTranscoder(XText{}, Legacy, Default, false)

	got, err := p.LegacyToUnicode("\xc1\xc2\xc3\x40\xf1") // "ABC 1"
	if err != nil {
		t.Fatalf("LegacyToUnicode() error = %v", err)
	}
	if got != "ABC 1" {
		t.Errorf("LegacyToUnicode() = %q, want %q", got, "ABC 1")
	}
}

func TestUnicodeToLegacy(t *testing.T) {
	p := NewWithTranscoder(XText{}, Unicode, Default, false)

	got, err := p.UnicodeToLegacy("ID")
	if err != nil {
		t.Fatalf("UnicodeToLegacy() error = %v", err)
	}
	if got != "\xc9\xc4" {
		t.Errorf("UnicodeToLegacy() = %x, want c9c4", got)
	}
}

func TestRoundTripPrintableASCII(t *testing.T) {
	p := NewWithTranscoder(XText{}, Legacy, Default, false)

	var ascii []byte
	for b := byte(0x20); b < 0x7f; b++ {
		ascii = append(ascii, b)
	}
	inputs := []string{"ID", "hello world", string(ascii)}

	for _, in := range inputs {
		legacy, err := p.UnicodeToLegacy(in)
		if err != nil {
			t.Fatalf("UnicodeToLegacy(%q) error = %v", in, err)
		}
		uni, err := p.LegacyToUnicode(legacy)
		if err != nil {
			t.Fatalf("LegacyToUnicode() error = %v", err)
		}
		back, err := p.UnicodeToLegacy(uni)
		if err != nil {
			t.Fatalf("UnicodeToLegacy() error = %v", err)
		}
		if back != legacy {
			t.Errorf("round trip of %q = %x, want %x", in, back, legacy)
		}
		if uni != in {
			t.Errorf("LegacyToUnicode(UnicodeToLegacy(%q)) = %q", in, uni)
		}
	}
}

func TestConvertDispatch(t *testing.T) {
	ibm037, _, err := Lookup("IBM-037")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		doc      Variant
		target   Codec
		explicit bool
		input    string
		want     string
	}{
		// '[' is 0xAD in IBM-1047 and 0xBA in IBM-037.
		{"explicit target from legacy", Legacy, ibm037, true, "\xad", "\xba"},
		{"explicit target from unicode", Unicode, ibm037, true, "[A", "\xba\xc1"},
		{"default from unicode", Unicode, Default, false, "[A", "\xad\xc1"},
		{"default from legacy is identity", Legacy, Default, false, "\xad\xc1", "\xad\xc1"},
		{"explicit utf-8 from unicode", Unicode, UTF8, true, "x\n", "x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewWithTranscoder(XText{}, tt.doc, tt.target, tt.explicit)
			got, err := p.Convert(tt.input)
			if err != nil {
				t.Fatalf("Convert(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Convert(%q) = %x, want %x", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertUnrepresentableRune(t *testing.T) {
	p := NewWithTranscoder(XText{}, Unicode, Default, false)

	_, err := p.Convert("日本")
	if err == nil {
		t.Fatal("Convert() expected error for rune outside IBM-1047")
	}
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("Convert() error = %T, want *ConversionError", err)
	}
}

func TestTranscoderFailureIsReported(t *testing.T) {
	p := NewWithTranscoder(failingTranscoder{}, Legacy, Default, false)

	if _, err := p.LegacyToUnicode("\xc1"); err == nil {
		t.Error("LegacyToUnicode() expected error from transcoder")
	}
}

func TestLiteralMatchesDocumentEncoding(t *testing.T) {
	legacy := NewWithTranscoder(XText{}, Legacy, Default, false)
	got, err := legacy.Literal("keys")
	if err != nil {
		t.Fatal(err)
	}
	if got != "\x92\x85\xa8\xa2" {
		t.Errorf("Literal(keys) for legacy doc = %x, want 9285a8a2", got)
	}

	unicode := NewWithTranscoder(XText{}, Unicode, Default, false)
	got, err = unicode.Literal("keys")
	if err != nil {
		t.Fatal(err)
	}
	if got != "keys" {
		t.Errorf("Literal(keys) for unicode doc = %q, want keys", got)
	}
}
