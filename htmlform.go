// Package htmlform extracts submission-ready data from HTML <form> markup.
//
// A parsed Form keeps ordinary inputs in Fields and submit-triggering
// elements (submit inputs, image inputs and buttons) in Controls. Values a
// browser would send are marked selected; SubmissionPairs and
// FileAttachments read them back out.
//
//	f, err := htmlform.ParseForm(markup, htmlform.ByID("login"))
//	if err != nil {
//		return err
//	}
//	for _, p := range f.SubmissionPairs() {
//		fmt.Println(p.Name, p.Value)
//	}
package htmlform

import (
	"io"

	"github.com/adityalohuni/htmlform/internal/extract"
	"github.com/adityalohuni/htmlform/internal/form"
	"github.com/adityalohuni/htmlform/internal/submission"
)

type (
	Form            = form.Form
	Field           = form.Field
	FieldValue      = form.FieldValue
	FieldCollection = form.FieldCollection
	Pair            = form.Pair
	Attachment      = form.Attachment
	Record          = form.Record
	FieldRecord     = form.FieldRecord
	ValueRecord     = form.ValueRecord
	Page            = extract.Page
	Selector        = extract.Selector
	Request         = submission.Request
	PrepareOptions  = submission.Options
)

var (
	ErrNotFound               = form.ErrNotFound
	ErrInvalidElement         = form.ErrInvalidElement
	ErrUnsupportedControlType = form.ErrUnsupportedControlType
	ErrInvalidArgument        = form.ErrInvalidArgument
	ErrAttachmentLocked       = form.ErrAttachmentLocked
)

func First() Selector             { return extract.First() }
func ByName(name string) Selector { return extract.ByName(name) }
func ByID(id string) Selector     { return extract.ByID(id) }
func ByIndex(index int) Selector  { return extract.ByIndex(index) }

// ParseForm extracts the form sel picks from markup. It fails with
// ErrNotFound when no form matches.
func ParseForm(markup string, sel Selector) (*Form, error) {
	return extract.ParseForm(markup, sel)
}

// ParseForms extracts every form of markup in document order.
func ParseForms(markup string) ([]*Form, error) {
	return extract.ParseForms(markup)
}

// Load parses markup once for repeated form lookups.
func Load(markup string) (*Page, error) {
	return extract.Load(markup)
}

// ParseField builds a field from a single input, select or textarea element.
func ParseField(markup string) (*Field, error) {
	return extract.ParseField(markup)
}

// ParseControl builds a control from a single submit or image input or a
// button element.
func ParseControl(markup string) (*Field, error) {
	return extract.ParseControl(markup)
}

func FromRecord(rec Record) (*Form, error) {
	return form.FromRecord(rec)
}

func DecodeJSON(r io.Reader) (Record, error) { return form.DecodeJSON(r) }
func DecodeYAML(r io.Reader) (Record, error) { return form.DecodeYAML(r) }

// Prepare builds the request f would submit without sending it.
func Prepare(f *Form, opts PrepareOptions) (*Request, error) {
	return submission.Prepare(f, opts)
}
