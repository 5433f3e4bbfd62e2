package form

import (
	"fmt"
	"slices"
	"strings"
)

type fieldKey struct {
	typ  string
	name string
}

// FieldCollection is an ordered list of fields. Fields sharing a (type, name)
// key merge on Append. The zero value is ready to use.
type FieldCollection struct {
	fields []*Field
	byKey  map[fieldKey]int
	byName map[string]int
}

func NewFieldCollection(fields ...*Field) *FieldCollection {
	c := &FieldCollection{}
	c.reindex()
	for _, f := range fields {
		c.Append(f)
	}
	return c
}

func (c *FieldCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// All returns the fields in order. The slice is a copy.
func (c *FieldCollection) All() []*Field {
	if c == nil {
		return nil
	}
	out := make([]*Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Append adds f, or folds its values into the existing field with the same
// type and name. It returns the field now holding the values.
func (c *FieldCollection) Append(f *Field) *Field {
	if f == nil {
		return nil
	}
	if c.byKey == nil {
		c.reindex()
	}
	if i, ok := c.byKey[f.key()]; ok {
		existing := c.fields[i]
		existing.AddValues(f.values...)
		return existing
	}
	c.fields = append(c.fields, f)
	i := len(c.fields) - 1
	c.byKey[f.key()] = i
	if _, ok := c.byName[f.name]; !ok {
		c.byName[f.name] = i
	}
	return f
}

func (c *FieldCollection) At(i int) (*Field, error) {
	if c == nil || i < 0 || i >= len(c.fields) {
		return nil, fmt.Errorf("field index %d: %w", i, ErrNotFound)
	}
	return c.fields[i], nil
}

// ByName returns the first field with the name.
func (c *FieldCollection) ByName(name string) (*Field, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.fields[i], true
}

// ByNameValue returns the first field with the name holding value. Values
// change in place, so it reads them rather than an index.
func (c *FieldCollection) ByNameValue(name, value string) (*Field, bool) {
	if c == nil {
		return nil, false
	}
	for _, f := range c.fields {
		if f.name != name {
			continue
		}
		for _, v := range f.values {
			if v.value == value {
				return f, true
			}
		}
	}
	return nil, false
}

func (c *FieldCollection) ByTypeName(typ, name string) (*Field, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.byKey[fieldKey{typ: strings.ToLower(typ), name: name}]
	if !ok {
		return nil, false
	}
	return c.fields[i], true
}

// SetSelected flags every value equal to value in fields named name.
func (c *FieldCollection) SetSelected(name, value string, selected bool) error {
	matched := 0
	for _, f := range c.fields {
		if f.name == name {
			matched += f.SetSelected(value, selected)
		}
	}
	if matched == 0 {
		return fmt.Errorf("field %q value %q: %w", name, value, ErrNotFound)
	}
	return nil
}

func (c *FieldCollection) Remove(i int) (*Field, error) {
	if i < 0 || i >= len(c.fields) {
		return nil, fmt.Errorf("remove field %d: %w", i, ErrNotFound)
	}
	f := c.fields[i]
	c.fields = slices.Delete(c.fields, i, i+1)
	c.reindex()
	return f, nil
}

func (c *FieldCollection) Clear() {
	c.fields = nil
	c.reindex()
}

// Sort orders fields by name, then type. The sort is stable.
func (c *FieldCollection) Sort() {
	slices.SortStableFunc(c.fields, func(a, b *Field) int {
		if n := strings.Compare(a.name, b.name); n != 0 {
			return n
		}
		return strings.Compare(a.typ, b.typ)
	})
	c.reindex()
}

func (c *FieldCollection) Reverse() {
	slices.Reverse(c.fields)
	c.reindex()
}

// reindex rebuilds the key and name lookups after a structural change.
func (c *FieldCollection) reindex() {
	c.byKey = make(map[fieldKey]int, len(c.fields))
	c.byName = make(map[string]int, len(c.fields))
	for i, f := range c.fields {
		if _, ok := c.byKey[f.key()]; !ok {
			c.byKey[f.key()] = i
		}
		if _, ok := c.byName[f.name]; !ok {
			c.byName[f.name] = i
		}
	}
}

func (c *FieldCollection) Equal(other *FieldCollection) bool {
	if c.Len() != other.Len() {
		return false
	}
	for i := range c.Len() {
		if !c.fields[i].Equal(other.fields[i]) {
			return false
		}
	}
	return true
}

func (c *FieldCollection) Clone() *FieldCollection {
	out := NewFieldCollection()
	for _, f := range c.All() {
		out.Append(f.Clone())
	}
	return out
}
