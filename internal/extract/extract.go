// Package extract turns <form> markup into form models: it resolves which
// elements a form owns, runs them through the rule catalog and folds the
// results into fields and controls.
package extract

import (
	"fmt"
	"strings"

	"github.com/adityalohuni/htmlform/internal/dom"
	"github.com/adityalohuni/htmlform/internal/form"
	"github.com/adityalohuni/htmlform/internal/rules"
)

var fieldTags = []string{"button", "input", "select", "textarea"}

// excludedTypes never reach the rule catalog.
var excludedTypes = map[string]bool{
	"reset":  true,
	"search": true,
}

// Page is a parsed document and the forms it contains.
type Page struct {
	doc   *dom.Document
	forms []*dom.Element
}

func Load(markup string) (*Page, error) {
	doc, err := dom.Parse(markup)
	if err != nil {
		return nil, err
	}
	return NewPage(doc), nil
}

func NewPage(doc *dom.Document) *Page {
	return &Page{doc: doc, forms: doc.Find([]string{"form"}, nil)}
}

func (p *Page) Len() int { return len(p.forms) }

// Form extracts the form the selector picks, or fails with form.ErrNotFound.
func (p *Page) Form(sel Selector) (*form.Form, error) {
	el, err := p.find(sel)
	if err != nil {
		return nil, err
	}
	return Extract(p.doc, el), nil
}

func (p *Page) Forms() []*form.Form {
	out := make([]*form.Form, 0, len(p.forms))
	for _, el := range p.forms {
		out = append(out, Extract(p.doc, el))
	}
	return out
}

func (p *Page) FormByName(name string) (*form.Form, error) { return p.Form(ByName(name)) }
func (p *Page) FormByID(id string) (*form.Form, error)     { return p.Form(ByID(id)) }
func (p *Page) FormByIndex(i int) (*form.Form, error)      { return p.Form(ByIndex(i)) }

func (p *Page) find(sel Selector) (*dom.Element, error) {
	switch sel.kind {
	case selectFirst:
		if len(p.forms) > 0 {
			return p.forms[0], nil
		}
	case selectIndex:
		if sel.index >= 0 && sel.index < len(p.forms) {
			return p.forms[sel.index], nil
		}
	case selectName, selectID:
		key := "name"
		if sel.kind == selectID {
			key = "id"
		}
		for _, el := range p.forms {
			if v, ok := el.Attr(key); ok && v == sel.value {
				return el, nil
			}
		}
	}
	return nil, fmt.Errorf("form %s: %w", sel, form.ErrNotFound)
}

func ParseForm(markup string, sel Selector) (*form.Form, error) {
	p, err := Load(markup)
	if err != nil {
		return nil, err
	}
	return p.Form(sel)
}

func ParseForms(markup string) ([]*form.Form, error) {
	p, err := Load(markup)
	if err != nil {
		return nil, err
	}
	return p.Forms(), nil
}

// Extract builds the model for formEl. Elements nested in the form without a
// form attribute come first, then elements anywhere in doc whose form
// attribute names the form's id.
func Extract(doc *dom.Document, formEl *dom.Element) *form.Form {
	f := &form.Form{
		Name:          formEl.AttrOr("name", ""),
		ID:            formEl.AttrOr("id", ""),
		Action:        formEl.AttrOr("action", ""),
		Method:        formEl.AttrOr("method", ""),
		Enctype:       formEl.AttrOr("enctype", ""),
		AcceptCharset: formEl.AttrOr("accept-charset", ""),
	}
	f.Normalize()

	candidates := formEl.Find(fieldTags, dom.Lacks("form"))
	if f.ID != "" {
		candidates = append(candidates, doc.Find(fieldTags, dom.Equals("form", f.ID))...)
	}
	for _, el := range candidates {
		in := rules.InputFrom(el)
		if excludedTypes[in.Type] {
			continue
		}
		kind, entries := rules.Dispatch(in)
		if len(entries) == 0 {
			continue
		}
		target := f.Fields
		if kind.Category() == rules.CategoryControl {
			target = f.Controls
		}
		fold(target, fieldType(in), entries)
	}
	return f
}

// fieldType is the resolved type for inputs and buttons and the tag name for
// select and textarea.
func fieldType(in rules.Input) string {
	switch in.Tag {
	case "input", "button":
		return in.Type
	default:
		return in.Tag
	}
}

func fold(target *form.FieldCollection, typ string, entries []rules.Entry) {
	for _, e := range entries {
		target.Append(form.NewField(e.Name, typ, form.NewFieldValue(e.Value, e.Selected)))
	}
}

// Field builds a single field from an input, select or textarea element.
func Field(el *dom.Element) (*form.Field, error) {
	in := rules.InputFrom(el)
	switch in.Tag {
	case "input", "select", "textarea":
	default:
		return nil, fmt.Errorf("field from <%s>: %w", in.Tag, form.ErrInvalidElement)
	}
	if kind := rules.Match(in.Tag, in.Type); kind.Category() == rules.CategoryControl || excludedTypes[in.Type] {
		return nil, fmt.Errorf("field from input type %q: %w", in.Type, form.ErrInvalidElement)
	}
	return single(in)
}

// Control builds a single control from a submit or image button.
func Control(el *dom.Element) (*form.Field, error) {
	in := rules.InputFrom(el)
	switch in.Tag {
	case "input", "button":
	default:
		return nil, fmt.Errorf("control from <%s>: %w", in.Tag, form.ErrInvalidElement)
	}
	switch in.Type {
	case "submit", "image":
	default:
		return nil, fmt.Errorf("control type %q: %w", in.Type, form.ErrUnsupportedControlType)
	}
	return single(in)
}

// single folds every entry of one element into one field. Image controls
// keep the prefix-less name so both coordinates stay on a single field.
func single(in rules.Input) (*form.Field, error) {
	_, entries := rules.Dispatch(in)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no rule for <%s>: %w", in.Tag, form.ErrInvalidElement)
	}
	field := form.NewField(entries[0].Name, fieldType(in))
	if in.Tag == "input" && in.Type == "image" {
		field = form.NewField(in.Attrs["name"], fieldType(in))
	}
	for _, e := range entries {
		field.AddValues(form.NewFieldValue(e.Value, e.Selected))
	}
	return field, nil
}

// ParseField parses markup holding one field element.
func ParseField(markup string) (*form.Field, error) {
	el, err := fragment(markup)
	if err != nil {
		return nil, err
	}
	return Field(el)
}

func ParseControl(markup string) (*form.Field, error) {
	el, err := fragment(markup)
	if err != nil {
		return nil, err
	}
	return Control(el)
}

func fragment(markup string) (*dom.Element, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, fmt.Errorf("empty markup: %w", form.ErrInvalidArgument)
	}
	el, err := dom.ParseFragment(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", form.ErrInvalidElement, err)
	}
	return el, nil
}
