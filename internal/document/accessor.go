package document

import "fmt"

// NullText is the value returned for a null scalar.
const NullText = ""

// Accessor is the set of lookups the import pipeline performs on a document.
type Accessor interface {
	FindByName(obj Handle, name string, expect Type) (Value, error)
	ArrayLength(arr Handle) (int, error)
	ArrayEntry(arr Handle, index int) (Handle, error)
	ValueOf(h Handle, expect Type) (string, error)
}

var _ Accessor = (*Document)(nil)

// Value is the result of FindByName. Composite members carry a Handle;
// scalars carry their text in the document encoding.
type Value struct {
	Handle Handle
	Type   Type
	Text   string
}

// FindByName searches the direct members of obj for name. A missing member
// yields ErrNotFound; a member of the wrong type yields a CodeTypeMismatch
// error. Numbers satisfy a string expectation and null satisfies any scalar
// expectation.
func (d *Document) FindByName(obj Handle, name string, expect Type) (Value, error) {
	n, err := d.node("find", obj)
	if err != nil {
		return Value{}, err
	}
	if n.typ != TypeObject {
		return Value{}, &Error{Op: "find", Code: CodeTypeMismatch, Detail: fmt.Sprintf("handle %d is %s, not object", obj, n.typ)}
	}

	for i, member := range n.names {
		if member != name {
			continue
		}
		h := n.members[i]
		child := d.nodes[h]
		if !accepts(expect, child.typ) {
			return Value{}, &Error{Op: "find", Code: CodeTypeMismatch, Detail: fmt.Sprintf("member is %s, want %s", child.typ, expect)}
		}
		if child.typ.Composite() {
			return Value{Handle: h, Type: child.typ}, nil
		}
		text, err := d.ValueOf(h, expect)
		if err != nil {
			return Value{}, err
		}
		return Value{Handle: h, Type: child.typ, Text: text}, nil
	}
	return Value{}, ErrNotFound
}

// ArrayLength returns the number of entries in arr.
func (d *Document) ArrayLength(arr Handle) (int, error) {
	n, err := d.node("length", arr)
	if err != nil {
		return 0, err
	}
	if n.typ != TypeArray {
		return 0, &Error{Op: "length", Code: CodeTypeMismatch, Detail: fmt.Sprintf("handle %d is %s, not array", arr, n.typ)}
	}
	return len(n.elems), nil
}

// ArrayEntry returns the handle of entry index (0-based) in arr.
func (d *Document) ArrayEntry(arr Handle, index int) (Handle, error) {
	n, err := d.node("entry", arr)
	if err != nil {
		return 0, err
	}
	if n.typ != TypeArray {
		return 0, &Error{Op: "entry", Code: CodeTypeMismatch, Detail: fmt.Sprintf("handle %d is %s, not array", arr, n.typ)}
	}
	if index < 0 || index >= len(n.elems) {
		return 0, &Error{Op: "entry", Code: CodeIndexRange, Detail: fmt.Sprintf("index %d outside [0,%d)", index, len(n.elems))}
	}
	return n.elems[index], nil
}

// ValueOf extracts the scalar at h. Strings and numbers come back as their
// text, booleans as "true" or "false", null as NullText.
func (d *Document) ValueOf(h Handle, expect Type) (string, error) {
	n, err := d.node("value", h)
	if err != nil {
		return "", err
	}
	if n.typ == TypeNull {
		return NullText, nil
	}
	if !accepts(expect, n.typ) || n.typ.Composite() {
		return "", &Error{Op: "value", Code: CodeTypeMismatch, Detail: fmt.Sprintf("handle %d is %s, want %s", h, n.typ, expect)}
	}
	switch n.typ {
	case TypeString, TypeNumber:
		return n.text, nil
	case TypeBoolean:
		return n.text, nil
	}
	return "", &Error{Op: "value", Code: CodeTypeMismatch, Detail: fmt.Sprintf("handle %d has no scalar value", h)}
}

// TypeOf returns the discovered type of h.
func (d *Document) TypeOf(h Handle) (Type, error) {
	n, err := d.node("type", h)
	if err != nil {
		return 0, err
	}
	return n.typ, nil
}

func (d *Document) node(op string, h Handle) (*node, error) {
	if d.nodes == nil {
		return nil, &Error{Op: op, Code: CodeReleased, Detail: "document has been released"}
	}
	if h < 0 || int(h) >= len(d.nodes) {
		return nil, &Error{Op: op, Code: CodeBadHandle, Detail: fmt.Sprintf("handle %d", h)}
	}
	return &d.nodes[h], nil
}

func accepts(expect, actual Type) bool {
	if expect == actual {
		return true
	}
	switch expect {
	case TypeString:
		return actual == TypeNumber || actual == TypeNull
	case TypeNumber, TypeBoolean:
		return actual == TypeNull
	}
	return false
}
