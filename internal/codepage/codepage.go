// Package codepage transcodes strings pulled from a document between the
// document's declared encoding, the working encoding and the encoding the
// target store was asked to use.
//
// The working encoding, and the implicit store encoding when the caller does
// not request one, is the legacy EBCDIC code page IBM-1047. Documents declare
// one of two variants: Legacy (IBM-1047 bytes) or Unicode (UTF-8 bytes).
//
// Strings are carried as Go strings holding raw bytes in whatever encoding the
// stage produced; they are only guaranteed to be UTF-8 after an explicit
// conversion to Unicode.
package codepage

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Variant is the encoding a document declares.
type Variant int

const (
	Legacy Variant = iota
	Unicode
)

func (v Variant) String() string {
	switch v {
	case Legacy:
		return "legacy"
	case Unicode:
		return "unicode"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Codec is a named code page backed by an x/text encoding.
type Codec struct {
	Name string
	enc  encoding.Encoding
}

// Valid reports whether the codec carries an encoding.
func (c Codec) Valid() bool { return c.enc != nil }

func (c Codec) String() string { return c.Name }

var (
	IBM1047 = Codec{Name: "IBM-1047", enc: charmap.CodePage1047}
	UTF8    = Codec{Name: "UTF-8", enc: unicode.UTF8}
)

// Default is the working encoding and the implicit store encoding.
var Default = IBM1047

// defaultAliases are spellings of the default code page. Requesting any of
// them is the same as requesting nothing.
var defaultAliases = map[string]bool{
	"":            true,
	"DEFAULT":     true,
	"IBM-1047":    true,
	"IBM1047":     true,
	"IBM01047":    true,
	"1047":        true,
	"CP1047":      true,
	"EBCDIC-1047": true,
}

var known = map[string]Codec{
	"IBM-037":      {Name: "IBM-037", enc: charmap.CodePage037},
	"IBM037":       {Name: "IBM-037", enc: charmap.CodePage037},
	"CP037":        {Name: "IBM-037", enc: charmap.CodePage037},
	"IBM-1140":     {Name: "IBM-1140", enc: charmap.CodePage1140},
	"IBM1140":      {Name: "IBM-1140", enc: charmap.CodePage1140},
	"CP1140":       {Name: "IBM-1140", enc: charmap.CodePage1140},
	"ISO8859-1":    {Name: "ISO8859-1", enc: charmap.ISO8859_1},
	"ISO-8859-1":   {Name: "ISO8859-1", enc: charmap.ISO8859_1},
	"LATIN1":       {Name: "ISO8859-1", enc: charmap.ISO8859_1},
	"ISO8859-15":   {Name: "ISO8859-15", enc: charmap.ISO8859_15},
	"ISO-8859-15":  {Name: "ISO8859-15", enc: charmap.ISO8859_15},
	"WINDOWS-1252": {Name: "WINDOWS-1252", enc: charmap.Windows1252},
	"CP1252":       {Name: "WINDOWS-1252", enc: charmap.Windows1252},
	"UTF-8":        UTF8,
	"UTF8":         UTF8,
}

// Lookup resolves an encoding name. The boolean result is false when the name
// means "use the default" (empty or an alias of IBM-1047).
func Lookup(name string) (Codec, bool, error) {
	norm := strings.ToUpper(strings.TrimSpace(name))
	if defaultAliases[norm] {
		return Default, false, nil
	}
	if c, ok := known[norm]; ok {
		return c, true, nil
	}
	enc, err := ianaindex.IANA.Encoding(strings.TrimSpace(name))
	if err != nil || enc == nil {
		return Codec{}, false, fmt.Errorf("unsupported encoding %q", name)
	}
	return Codec{Name: norm, enc: enc}, true, nil
}

// Transcoder converts bytes between two code pages.
type Transcoder interface {
	Transcode(in []byte, from, to Codec) ([]byte, error)
}

// XText is the Transcoder backed by golang.org/x/text. Runes the target code
// page cannot represent are an error, never silently replaced.
type XText struct{}

func (XText) Transcode(in []byte, from, to Codec) ([]byte, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("transcode %s to %s: codec not configured", from, to)
	}
	text, err := from.enc.NewDecoder().Bytes(in)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", from, err)
	}
	out, err := to.enc.NewEncoder().Bytes(text)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", to, err)
	}
	return out, nil
}

// Decode converts s from c to UTF-8 using x/text directly. Used for display
// and for persisting identifiers in stores that speak UTF-8.
func Decode(s string, c Codec) (string, error) {
	if s == "" || c.Name == UTF8.Name {
		return s, nil
	}
	out, err := XText{}.Transcode([]byte(s), c, UTF8)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Encode converts UTF-8 s into c.
func Encode(s string, c Codec) (string, error) {
	if s == "" || c.Name == UTF8.Name {
		return s, nil
	}
	out, err := XText{}.Transcode([]byte(s), UTF8, c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
