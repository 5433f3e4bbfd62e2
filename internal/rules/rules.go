// Package rules holds the ordered catalog of element rules deciding which
// name/value entries a form element contributes to a submission.
package rules

import (
	"strconv"
	"strings"

	"github.com/adityalohuni/htmlform/internal/coerce"
	"github.com/adityalohuni/htmlform/internal/dom"
)

const (
	defaultCheckValue  = "on"
	defaultColor       = "#000000"
	defaultSubmitValue = "submit"
	defaultButtonLabel = "Submit Query"
	defaultImageCoord  = "0"
	defaultRangeMin    = 0
	defaultRangeMax    = 100
)

type Kind int

const (
	KindNone Kind = iota
	KindCheckable
	KindColor
	KindRange
	KindSubmit
	KindButtonInput
	KindImage
	KindButton
	KindInput
	KindSelect
	KindTextarea
	KindFallback
)

var kindNames = map[Kind]string{
	KindNone:        "none",
	KindCheckable:   "checkable",
	KindColor:       "color",
	KindRange:       "range",
	KindSubmit:      "submit",
	KindButtonInput: "button-input",
	KindImage:       "image",
	KindButton:      "button",
	KindInput:       "input",
	KindSelect:      "select",
	KindTextarea:    "textarea",
	KindFallback:    "fallback",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

type Category int

const (
	CategoryField Category = iota
	CategoryControl
)

func (c Category) String() string {
	if c == CategoryControl {
		return "control"
	}
	return "field"
}

// Category tells whether entries of this kind trigger submission.
func (k Kind) Category() Category {
	switch k {
	case KindSubmit, KindImage, KindButton:
		return CategoryControl
	default:
		return CategoryField
	}
}

type Entry struct {
	Name     string
	Value    string
	Selected bool
}

type Option struct {
	Attrs map[string]string
	Text  string
}

// Input is everything a rule may look at. Type is the resolved, lower-cased
// type ("text" for bare inputs, "submit" for bare buttons).
type Input struct {
	Tag     string
	Type    string
	Attrs   map[string]string
	Text    string
	Options []Option
}

func (in Input) attr(key string) (string, bool) {
	v, ok := in.Attrs[key]
	return v, ok
}

func (in Input) attrOr(key, fallback string) string {
	if v, ok := in.Attrs[key]; ok {
		return v
	}
	return fallback
}

func (in Input) has(key string) bool {
	_, ok := in.Attrs[key]
	return ok
}

func (in Input) name() string {
	return in.Attrs["name"]
}

// ResolveType lower-cases the type attribute and applies the tag default.
func ResolveType(tag, typ string, present bool) string {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if present && typ != "" {
		return typ
	}
	switch strings.ToLower(tag) {
	case "input":
		return "text"
	case "button":
		return "submit"
	default:
		return ""
	}
}

// InputFrom snapshots an element into a rule input.
func InputFrom(el *dom.Element) Input {
	tag := el.TagName()
	typ, ok := el.Attr("type")
	in := Input{
		Tag:   tag,
		Type:  ResolveType(tag, typ, ok),
		Attrs: attrMap(el),
	}
	switch tag {
	case "select":
		for _, opt := range el.Find([]string{"option"}, nil) {
			in.Options = append(in.Options, Option{Attrs: attrMap(opt), Text: opt.InnerText()})
		}
	default:
		in.Text = el.InnerText()
	}
	return in
}

func attrMap(el *dom.Element) map[string]string {
	attrs := el.Attributes()
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if _, seen := out[key]; !seen {
			out[key] = a.Value
		}
	}
	return out
}

func parseCheckable(in Input) []Entry {
	return []Entry{{Name: in.name(), Value: in.attrOr("value", defaultCheckValue), Selected: in.has("checked")}}
}

func parseColor(in Input) []Entry {
	return []Entry{{Name: in.name(), Value: in.attrOr("value", defaultColor), Selected: true}}
}

func parseRange(in Input) []Entry {
	value, ok := in.attr("value")
	if !ok {
		value = strconv.Itoa(rangeMidpoint(in.attrOr("min", ""), in.attrOr("max", "")))
	}
	return []Entry{{Name: in.name(), Value: value, Selected: true}}
}

func rangeMidpoint(minAttr, maxAttr string) int {
	lo := coerce.ParseInt(minAttr, defaultRangeMin)
	hi := coerce.ParseInt(maxAttr, defaultRangeMax)
	if hi < lo {
		return lo
	}
	// floor((lo+hi)/2) without the sum overflowing
	return lo>>1 + hi>>1 + lo&hi&1
}

func parseSubmit(in Input) []Entry {
	return []Entry{{Name: in.name(), Value: in.attrOr("value", defaultSubmitValue)}}
}

func parseButtonInput(in Input) []Entry {
	return []Entry{{Name: in.name(), Value: in.attrOr("value", "")}}
}

func parseImage(in Input) []Entry {
	prefix := in.name()
	if prefix != "" {
		prefix += "."
	}
	return []Entry{
		{Name: prefix + "x", Value: defaultImageCoord},
		{Name: prefix + "y", Value: defaultImageCoord},
	}
}

func parseButton(in Input) []Entry {
	value, ok := in.attr("value")
	if !ok {
		value = strings.TrimSpace(in.Text)
		if value == "" {
			value = defaultButtonLabel
		}
	}
	return []Entry{{Name: in.name(), Value: value}}
}

func parseInput(in Input) []Entry {
	return []Entry{{Name: in.name(), Value: in.attrOr("value", ""), Selected: true}}
}

func parseSelect(in Input) []Entry {
	name := in.name()
	out := make([]Entry, 0, len(in.Options))
	for _, opt := range in.Options {
		value, ok := opt.Attrs["value"]
		if !ok {
			value = coerce.CollapseSpace(opt.Text)
		}
		_, selected := opt.Attrs["selected"]
		out = append(out, Entry{Name: name, Value: value, Selected: selected})
	}
	return out
}

func parseTextarea(in Input) []Entry {
	return []Entry{{Name: in.name(), Value: in.Text, Selected: true}}
}

func parseFallback(in Input) []Entry {
	return []Entry{{Name: in.name(), Value: in.attrOr("value", ""), Selected: true}}
}
