package form

import (
	"fmt"
	"strings"
)

const (
	DefaultMethod        = "GET"
	DefaultEnctype       = "application/x-www-form-urlencoded"
	DefaultAcceptCharset = "utf-8"
)

// Form is the submission model of one <form>. Name, ID and Action are empty
// when the attribute is absent.
type Form struct {
	Name          string
	ID            string
	Action        string
	Method        string
	Enctype       string
	AcceptCharset string
	Fields        *FieldCollection
	Controls      *FieldCollection
}

type Pair struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type Attachment struct {
	Name     string `json:"name" yaml:"name"`
	Filename string `json:"filename" yaml:"filename"`
	Path     string `json:"path" yaml:"path"`
}

func New() *Form {
	return &Form{
		Method:        DefaultMethod,
		Enctype:       DefaultEnctype,
		AcceptCharset: DefaultAcceptCharset,
		Fields:        NewFieldCollection(),
		Controls:      NewFieldCollection(),
	}
}

// Normalize applies attribute defaults. Method is upper-cased and only the
// first listed charset is kept.
func (f *Form) Normalize() {
	f.Method = strings.ToUpper(strings.TrimSpace(f.Method))
	if f.Method == "" {
		f.Method = DefaultMethod
	}
	f.Enctype = strings.ToLower(strings.TrimSpace(f.Enctype))
	if f.Enctype == "" {
		f.Enctype = DefaultEnctype
	}
	f.AcceptCharset = FirstCharset(f.AcceptCharset)
	if f.Fields == nil {
		f.Fields = NewFieldCollection()
	}
	if f.Controls == nil {
		f.Controls = NewFieldCollection()
	}
}

// FirstCharset returns the first token of an accept-charset list.
func FirstCharset(list string) string {
	parts := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(parts) == 0 {
		return DefaultAcceptCharset
	}
	return parts[0]
}

func (f *Form) FieldByName(name string) (*Field, bool) {
	return f.Fields.ByName(name)
}

func (f *Form) ControlByName(name string) (*Field, bool) {
	return f.Controls.ByName(name)
}

// SubmissionPairs lists selected values without attachments, fields first.
func (f *Form) SubmissionPairs() []Pair {
	var out []Pair
	for _, c := range []*FieldCollection{f.Fields, f.Controls} {
		for _, field := range c.All() {
			for _, v := range field.values {
				if v.selected && !v.HasAttachment() {
					out = append(out, Pair{Name: field.name, Value: v.value})
				}
			}
		}
	}
	return out
}

// FileAttachments lists selected values that carry a file.
func (f *Form) FileAttachments() []Attachment {
	var out []Attachment
	for _, c := range []*FieldCollection{f.Fields, f.Controls} {
		for _, field := range c.All() {
			for _, v := range field.values {
				if v.selected && v.HasAttachment() {
					out = append(out, Attachment{Name: field.name, Filename: v.Filename(), Path: v.binaryPath})
				}
			}
		}
	}
	return out
}

// SelectControl activates the control value matching name and value and
// deactivates every other control. An empty value matches the first value of
// the named control.
func (f *Form) SelectControl(name, value string) error {
	var target *FieldValue
	for _, field := range f.Controls.All() {
		if field.name != name {
			continue
		}
		for _, v := range field.values {
			if value == "" || v.value == value {
				target = v
				break
			}
		}
		if target != nil {
			break
		}
	}
	if target == nil {
		return fmt.Errorf("control %q value %q: %w", name, value, ErrNotFound)
	}
	f.ClearControls()
	target.selected = true
	// image controls submit both coordinates
	if sibling, ok := imageSibling(f.Controls, name); ok {
		for _, v := range sibling.values {
			v.selected = true
		}
	}
	return nil
}

// imageSibling returns the other coordinate of the image control named name:
// "x" pairs with "y" and "pic.x" with "pic.y".
func imageSibling(controls *FieldCollection, name string) (*Field, bool) {
	if _, ok := controls.ByTypeName("image", name); !ok {
		return nil, false
	}
	var other string
	switch {
	case strings.HasSuffix(name, "x"):
		other = name[:len(name)-1] + "y"
	case strings.HasSuffix(name, "y"):
		other = name[:len(name)-1] + "x"
	default:
		return nil, false
	}
	return controls.ByTypeName("image", other)
}

func (f *Form) ClearControls() {
	for _, field := range f.Controls.All() {
		for _, v := range field.values {
			v.selected = false
		}
	}
}

// AttachFile attaches path to the first value of the named field.
func (f *Form) AttachFile(name, path string) error {
	field, ok := f.Fields.ByName(name)
	if !ok || field.Len() == 0 {
		return fmt.Errorf("attach to field %q: %w", name, ErrNotFound)
	}
	return field.values[0].AttachFile(path)
}

func (f *Form) Equal(other *Form) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Name == other.Name &&
		f.ID == other.ID &&
		f.Action == other.Action &&
		f.Method == other.Method &&
		f.Enctype == other.Enctype &&
		f.AcceptCharset == other.AcceptCharset &&
		f.Fields.Equal(other.Fields) &&
		f.Controls.Equal(other.Controls)
}

func (f *Form) Clone() *Form {
	c := *f
	c.Fields = f.Fields.Clone()
	c.Controls = f.Controls.Clone()
	return &c
}
