// Package document parses an input document into an immutable, handle
// addressed tree and exposes the lookups the import pipeline needs.
//
// Tokenizing is done by github.com/buger/jsonparser; the result is flattened
// into an arena of nodes so a Handle is just an index. Handle 0 is the root
// object. All names and scalar text are kept in the document's declared
// encoding, so callers must convert literals before comparing them.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/JonMunkholm/tblimport/internal/codepage"
)

// MaxSize is the largest document Parse accepts, in bytes.
var MaxSize = 9_999_999

// Handle references a node. It is only valid for the Document that issued it.
type Handle int

// Root is the handle of the document's root object.
const Root Handle = 0

// Type is the discovered type of a node.
type Type int

const (
	TypeString Type = iota + 1
	TypeNumber
	TypeBoolean
	TypeNull
	TypeArray
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeNull:
		return "null"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Composite reports whether values of this type are returned as handles.
func (t Type) Composite() bool { return t == TypeArray || t == TypeObject }

type node struct {
	typ     Type
	text    string
	names   []string
	members []Handle
	elems   []Handle
}

// Document is a parsed input document.
type Document struct {
	nodes    []node
	encoding codepage.Variant
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse detects the declared encoding of data and builds the node tree.
func Parse(data []byte) (*Document, error) {
	if len(data) > MaxSize {
		return nil, &Error{Op: "parse", Code: CodeTooLarge, Detail: fmt.Sprintf("%d bytes exceeds %d", len(data), MaxSize)}
	}

	variant, err := DetectEncoding(data)
	if err != nil {
		return nil, err
	}

	text := bytes.TrimPrefix(data, utf8BOM)
	if variant == codepage.Legacy {
		decoded, err := codepage.Decode(string(data), codepage.IBM1047)
		if err != nil {
			return nil, &Error{Op: "parse", Code: CodeEncoding, Detail: err.Error()}
		}
		text = []byte(nlToLF(decoded))
	}

	if !json.Valid(text) {
		return nil, &Error{Op: "parse", Code: CodeSyntax, Detail: "document is not well-formed"}
	}

	value, vt, _, err := jsonparser.Get(text)
	if err != nil {
		return nil, &Error{Op: "parse", Code: CodeSyntax, Detail: err.Error()}
	}
	if vt != jsonparser.Object {
		return nil, &Error{Op: "parse", Code: CodeSyntax, Detail: "root is not an object"}
	}

	d := &Document{encoding: variant}
	if _, err := d.build(value, vt); err != nil {
		return nil, err
	}
	return d, nil
}

// Encoding returns the encoding the document declared.
func (d *Document) Encoding() codepage.Variant { return d.encoding }

// Release drops the node arena. Handles issued earlier become invalid.
func (d *Document) Release() {
	d.nodes = nil
}

// Len returns the number of nodes in the document.
func (d *Document) Len() int { return len(d.nodes) }

func (d *Document) build(value []byte, vt jsonparser.ValueType) (Handle, error) {
	h := Handle(len(d.nodes))
	d.nodes = append(d.nodes, node{})

	var n node
	switch vt {
	case jsonparser.Object:
		n.typ = TypeObject
		err := jsonparser.ObjectEach(value, func(key, v []byte, dt jsonparser.ValueType, _ int) error {
			name, err := jsonparser.ParseString(key)
			if err != nil {
				return err
			}
			name, err = d.native(name)
			if err != nil {
				return err
			}
			child, err := d.build(v, dt)
			if err != nil {
				return err
			}
			n.names = append(n.names, name)
			n.members = append(n.members, child)
			return nil
		})
		if err != nil {
			return 0, wrapSyntax(err)
		}

	case jsonparser.Array:
		n.typ = TypeArray
		var cbErr error
		_, err := jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, _ int, err error) {
			if cbErr != nil {
				return
			}
			if err != nil {
				cbErr = err
				return
			}
			child, err := d.build(v, dt)
			if err != nil {
				cbErr = err
				return
			}
			n.elems = append(n.elems, child)
		})
		if cbErr != nil {
			return 0, wrapSyntax(cbErr)
		}
		if err != nil {
			return 0, wrapSyntax(err)
		}

	case jsonparser.String:
		n.typ = TypeString
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return 0, wrapSyntax(err)
		}
		if n.text, err = d.native(s); err != nil {
			return 0, err
		}

	case jsonparser.Number, jsonparser.Boolean:
		n.typ = TypeNumber
		if vt == jsonparser.Boolean {
			n.typ = TypeBoolean
		}
		s, err := d.native(string(value))
		if err != nil {
			return 0, err
		}
		n.text = s

	case jsonparser.Null:
		n.typ = TypeNull

	default:
		return 0, &Error{Op: "parse", Code: CodeSyntax, Detail: fmt.Sprintf("unexpected token type %s", vt)}
	}

	d.nodes[h] = n
	return h, nil
}

// native converts parser output (always UTF-8) back to the declared encoding.
func (d *Document) native(s string) (string, error) {
	if d.encoding == codepage.Unicode {
		return s, nil
	}
	out, err := codepage.Encode(s, codepage.IBM1047)
	if err != nil {
		return "", &Error{Op: "parse", Code: CodeEncoding, Detail: err.Error()}
	}
	return out, nil
}

// nlToLF rewrites NEL (U+0085, the IBM-1047 NL byte 0x15) to LF outside
// string literals, where JSON only allows ASCII whitespace. NEL inside a
// string is data and is kept.
func nlToLF(s string) string {
	if !strings.ContainsRune(s, '\u0085') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for _, r := range s {
		switch {
		case inString && escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case !inString && r == '\u0085':
			r = '\n'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func wrapSyntax(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Op: "parse", Code: CodeSyntax, Detail: err.Error()}
}

// ebcdicSpace lists the IBM-1047 whitespace bytes: space, HT, LF, NL, CR.
var ebcdicSpace = map[byte]bool{0x40: true, 0x05: true, 0x25: true, 0x15: true, 0x0D: true}

// DetectEncoding inspects the first significant byte of data. A '{' or '['
// in ASCII means Unicode; the same characters in IBM-1047 mean Legacy.
func DetectEncoding(data []byte) (codepage.Variant, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return codepage.Unicode, nil
	}
	for _, b := range data {
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			continue
		case ebcdicSpace[b]:
			continue
		case b == '{' || b == '[':
			return codepage.Unicode, nil
		case b == 0xC0 || b == 0xAD:
			return codepage.Legacy, nil
		default:
			return 0, &Error{Op: "parse", Code: CodeEncoding, Detail: fmt.Sprintf("unrecognized leading byte 0x%02X", b)}
		}
	}
	return 0, &Error{Op: "parse", Code: CodeSyntax, Detail: "document is empty"}
}
