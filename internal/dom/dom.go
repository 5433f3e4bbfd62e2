// Package dom wraps the HTML5 parser with the small query surface form
// extraction needs: tag lookups filtered by attributes, attribute access and
// inner text.
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNoElement = errors.New("markup contains no element")

type Document struct {
	doc *goquery.Document
}

type Element struct {
	sel *goquery.Selection
}

type Attribute struct {
	Key   string
	Value string
}

// Filter reports whether an element should be kept by Find. A nil Filter
// keeps everything.
type Filter func(*Element) bool

func Parse(markup string) (*Document, error) {
	return ParseReader(strings.NewReader(markup))
}

func ParseReader(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseFragment parses markup as body content and returns its first element.
func ParseFragment(markup string) (*Element, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return &Element{sel: goquery.NewDocumentFromNode(n).Selection}, nil
		}
	}
	return nil, ErrNoElement
}

func (d *Document) Root() *Element {
	return &Element{sel: d.doc.Selection}
}

// Find returns every descendant whose tag is one of tags, in document order.
func (d *Document) Find(tags []string, filter Filter) []*Element {
	return find(d.doc.Selection, tags, filter)
}

func (e *Element) Find(tags []string, filter Filter) []*Element {
	return find(e.sel, tags, filter)
}

func find(sel *goquery.Selection, tags []string, filter Filter) []*Element {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			names = append(names, tag)
		}
	}
	if len(names) == 0 {
		return nil
	}
	var out []*Element
	sel.Find(strings.Join(names, ", ")).Each(func(_ int, s *goquery.Selection) {
		el := &Element{sel: s}
		if filter == nil || filter(el) {
			out = append(out, el)
		}
	})
	return out
}

func (e *Element) Node() *html.Node {
	if e == nil || e.sel == nil || len(e.sel.Nodes) == 0 {
		return nil
	}
	return e.sel.Nodes[0]
}

// TagName is the lower-cased element name, or "" for non-element nodes.
func (e *Element) TagName() string {
	n := e.Node()
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

func (e *Element) Attr(key string) (string, bool) {
	n := e.Node()
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) AttrOr(key, fallback string) string {
	if v, ok := e.Attr(key); ok {
		return v
	}
	return fallback
}

func (e *Element) HasAttr(key string) bool {
	_, ok := e.Attr(key)
	return ok
}

// Attributes lists attributes in source order with keys as the parser
// produced them.
func (e *Element) Attributes() []Attribute {
	n := e.Node()
	if n == nil {
		return nil
	}
	out := make([]Attribute, 0, len(n.Attr))
	for _, a := range n.Attr {
		out = append(out, Attribute{Key: a.Key, Value: a.Val})
	}
	return out
}

// InnerText concatenates all descendant text nodes without trimming.
func (e *Element) InnerText() string {
	if e.Node() == nil {
		return ""
	}
	return e.sel.Text()
}

// FindParent returns the nearest ancestor with the given tag, or nil.
func (e *Element) FindParent(tag string) *Element {
	if e.Node() == nil {
		return nil
	}
	parent := e.sel.ParentsFiltered(strings.ToLower(tag)).First()
	if parent.Length() == 0 {
		return nil
	}
	return &Element{sel: parent}
}

// Lacks keeps elements without the attribute.
func Lacks(key string) Filter {
	return func(e *Element) bool { return !e.HasAttr(key) }
}

func Has(key string) Filter {
	return func(e *Element) bool { return e.HasAttr(key) }
}

// Equals keeps elements whose attribute is present and exactly value.
func Equals(key, value string) Filter {
	return func(e *Element) bool {
		v, ok := e.Attr(key)
		return ok && v == value
	}
}

func All(filters ...Filter) Filter {
	return func(e *Element) bool {
		for _, f := range filters {
			if f != nil && !f(e) {
				return false
			}
		}
		return true
	}
}
