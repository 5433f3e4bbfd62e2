package extract

import (
	"fmt"
	"strconv"

	"github.com/adityalohuni/htmlform/internal/form"
)

type selectorKind int

const (
	selectFirst selectorKind = iota
	selectName
	selectID
	selectIndex
)

// Selector picks one form out of a document.
type Selector struct {
	kind  selectorKind
	value string
	index int
}

func First() Selector             { return Selector{kind: selectFirst} }
func ByName(name string) Selector { return Selector{kind: selectName, value: name} }
func ByID(id string) Selector     { return Selector{kind: selectID, value: id} }
func ByIndex(index int) Selector  { return Selector{kind: selectIndex, index: index} }

func (s Selector) String() string {
	switch s.kind {
	case selectName:
		return fmt.Sprintf("name=%q", s.value)
	case selectID:
		return fmt.Sprintf("id=%q", s.value)
	case selectIndex:
		return "index=" + strconv.Itoa(s.index)
	default:
		return "first"
	}
}

// SelectorSpec is the wire shape of a selector. At most one of its fields may
// be set; none means the first form.
type SelectorSpec struct {
	Name  string `json:"name,omitempty" jsonschema:"select the form by its name attribute"`
	ID    string `json:"id,omitempty" jsonschema:"select the form by its id attribute"`
	Index *int   `json:"index,omitempty" jsonschema:"select the form by zero-based position in the document"`
}

func (s SelectorSpec) Selector() (Selector, error) {
	set := 0
	if s.Name != "" {
		set++
	}
	if s.ID != "" {
		set++
	}
	if s.Index != nil {
		set++
	}
	switch {
	case set > 1:
		return Selector{}, fmt.Errorf("selector: name, id and index are exclusive: %w", form.ErrInvalidArgument)
	case s.Name != "":
		return ByName(s.Name), nil
	case s.ID != "":
		return ByID(s.ID), nil
	case s.Index != nil:
		if *s.Index < 0 {
			return Selector{}, fmt.Errorf("selector: negative index %d: %w", *s.Index, form.ErrInvalidArgument)
		}
		return ByIndex(*s.Index), nil
	default:
		return First(), nil
	}
}
