package form

import (
	"fmt"
	"strings"
)

const defaultFieldType = "text"

// Field groups every value contributed under one (type, name) key.
type Field struct {
	name   string
	typ    string
	values []*FieldValue
}

func NewField(name, typ string, values ...*FieldValue) *Field {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" {
		typ = defaultFieldType
	}
	f := &Field{name: name, typ: typ}
	for _, v := range values {
		if v != nil {
			f.values = append(f.values, v)
		}
	}
	return f
}

func (f *Field) Name() string { return f.name }
func (f *Field) Type() string { return f.typ }
func (f *Field) Len() int     { return len(f.values) }

// Values returns the field's values. The slice is a copy; the values are not.
func (f *Field) Values() []*FieldValue {
	out := make([]*FieldValue, len(f.values))
	copy(out, f.values)
	return out
}

func (f *Field) Value(i int) (*FieldValue, error) {
	if i < 0 || i >= len(f.values) {
		return nil, fmt.Errorf("field %q value %d: %w", f.name, i, ErrNotFound)
	}
	return f.values[i], nil
}

func (f *Field) AddValues(values ...*FieldValue) {
	for _, v := range values {
		if v != nil {
			f.values = append(f.values, v)
		}
	}
}

// HasValue reports whether any value of the field equals value.
func (f *Field) HasValue(value string) bool {
	for _, v := range f.values {
		if v.value == value {
			return true
		}
	}
	return false
}

// SetSelected marks every value equal to value and returns how many matched.
func (f *Field) SetSelected(value string, selected bool) int {
	n := 0
	for _, v := range f.values {
		if v.value == value {
			v.selected = selected
			n++
		}
	}
	return n
}

func (f *Field) SelectedValues() []*FieldValue {
	var out []*FieldValue
	for _, v := range f.values {
		if v.selected {
			out = append(out, v)
		}
	}
	return out
}

func (f *Field) key() fieldKey {
	return fieldKey{typ: f.typ, name: f.name}
}

func (f *Field) Equal(other *Field) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.name != other.name || f.typ != other.typ || len(f.values) != len(other.values) {
		return false
	}
	for i := range f.values {
		if !f.values[i].Equal(other.values[i]) {
			return false
		}
	}
	return true
}

func (f *Field) Clone() *Field {
	c := &Field{name: f.name, typ: f.typ, values: make([]*FieldValue, 0, len(f.values))}
	for _, v := range f.values {
		c.values = append(c.values, v.clone())
	}
	return c
}
