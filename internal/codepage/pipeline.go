package codepage

import (
	"bytes"
	"fmt"
)

// legacyNewline is LF in the EBCDIC code pages (0x25).
const legacyNewline = 0x25

// ConversionError reports which conversion primitive failed.
type ConversionError struct {
	Op  string
	Err error
}

func (e *ConversionError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *ConversionError) Unwrap() error { return e.Err }

// Pipeline applies the conversion rules for one import run. The same pipeline
// is used for table identifiers, key values and stored field values.
type Pipeline struct {
	t        Transcoder
	doc      Variant
	target   Codec
	explicit bool
}

// New builds a pipeline for a document of the given variant. targetName is the
// caller-requested store encoding; empty or an alias of the default means none.
func New(doc Variant, targetName string) (*Pipeline, error) {
	target, explicit, err := Lookup(targetName)
	if err != nil {
		return nil, err
	}
	return NewWithTranscoder(XText{}, doc, target, explicit), nil
}

// NewWithTranscoder is New with an explicit transcoder and resolved target.
func NewWithTranscoder(t Transcoder, doc Variant, target Codec, explicit bool) *Pipeline {
	if !explicit {
		target = Default
	}
	return &Pipeline{t: t, doc: doc, target: target, explicit: explicit}
}

// Document returns the document variant the pipeline converts from.
func (p *Pipeline) Document() Variant { return p.doc }

// Store returns the code page values are converted to.
func (p *Pipeline) Store() Codec { return p.target }

// Explicit reports whether the caller requested a store encoding.
func (p *Pipeline) Explicit() bool { return p.explicit }

// LegacyToUnicode converts IBM-1047 bytes to UTF-8. A line terminator is
// appended before conversion and removed from the result.
func (p *Pipeline) LegacyToUnicode(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	in := append([]byte(s), legacyNewline)
	out, err := p.t.Transcode(in, Default, UTF8)
	if err != nil {
		return "", &ConversionError{Op: "legacy to unicode", Err: err}
	}
	return string(bytes.TrimSuffix(out, []byte{'\n'})), nil
}

// UnicodeToLegacy converts UTF-8 to IBM-1047. The forced line terminator comes
// back as a trailing control byte, which is stripped.
func (p *Pipeline) UnicodeToLegacy(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	in := append([]byte(s), '\n')
	out, err := p.t.Transcode(in, UTF8, Default)
	if err != nil {
		return "", &ConversionError{Op: "unicode to legacy", Err: err}
	}
	return string(bytes.TrimSuffix(out, []byte{legacyNewline})), nil
}

// Convert moves s from the document encoding to the store encoding.
func (p *Pipeline) Convert(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	switch {
	case p.explicit && p.doc == Unicode:
		return p.unicodeToTarget(s)
	case p.explicit:
		out, err := p.t.Transcode([]byte(s), Default, p.target)
		if err != nil {
			return "", &ConversionError{Op: "legacy to " + p.target.Name, Err: err}
		}
		return string(out), nil
	case p.doc == Unicode:
		return p.UnicodeToLegacy(s)
	default:
		return s, nil
	}
}

func (p *Pipeline) unicodeToTarget(s string) (string, error) {
	op := "unicode to " + p.target.Name
	out, err := p.t.Transcode(append([]byte(s), '\n'), UTF8, p.target)
	if err != nil {
		return "", &ConversionError{Op: op, Err: err}
	}
	nl, err := p.t.Transcode([]byte{'\n'}, UTF8, p.target)
	if err != nil {
		return "", &ConversionError{Op: op, Err: err}
	}
	return string(bytes.TrimSuffix(out, nl)), nil
}

// ToWorking moves s from the document encoding to the working encoding.
func (p *Pipeline) ToWorking(s string) (string, error) {
	if p.doc == Unicode {
		return p.UnicodeToLegacy(s)
	}
	return s, nil
}

// ToUnicode moves s from the document encoding to UTF-8.
func (p *Pipeline) ToUnicode(s string) (string, error) {
	if p.doc == Legacy {
		return p.LegacyToUnicode(s)
	}
	return s, nil
}

// Literal converts a UTF-8 literal, such as a well-known field name, into the
// document encoding so it can be compared with document member names.
func (p *Pipeline) Literal(s string) (string, error) {
	if p.doc == Legacy {
		return p.UnicodeToLegacy(s)
	}
	return s, nil
}

// FromParam converts a caller-supplied UTF-8 parameter into the store encoding.
func (p *Pipeline) FromParam(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if p.explicit {
		return p.unicodeToTarget(s)
	}
	return p.UnicodeToLegacy(s)
}
