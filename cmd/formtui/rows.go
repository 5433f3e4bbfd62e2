package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/adityalohuni/htmlform/internal/api"
	"github.com/adityalohuni/htmlform/internal/form"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/service"
)

// valueRow is one value of a field or control as shown in the values pane.
type valueRow struct {
	collection string
	name       string
	typ        string
	value      string
	selected   bool
	file       string
}

func valueRows(rec form.Record) []valueRow {
	var out []valueRow
	add := func(collection string, fields []form.FieldRecord) {
		for _, f := range fields {
			for _, v := range f.Values {
				out = append(out, valueRow{
					collection: collection,
					name:       deref(f.Name),
					typ:        f.Type,
					value:      deref(v.Value),
					selected:   v.IsSelected != nil && *v.IsSelected,
					file:       deref(v.BinaryPath),
				})
			}
		}
	}
	add(service.CollectionFields, rec.Fields)
	add(service.CollectionControls, rec.Controls)
	return out
}

func (r valueRow) toggle() api.SelectPayload {
	return api.SelectPayload{
		Collection: r.collection,
		Name:       r.name,
		Value:      r.value,
		Selected:   !r.selected,
	}
}

func (r valueRow) String() string {
	mark := "[ ]"
	if r.selected {
		mark = "[x]"
	}
	s := fmt.Sprintf("%s %s (%s) = %q", mark, r.name, r.typ, trimText(r.value, 40))
	if r.file != "" {
		s += " file=" + r.file
	}
	return s
}

func newestFirst(entries []formstore.Entry) []formstore.Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b formstore.Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func formLabel(e formstore.Entry) string {
	switch {
	case e.Form.Name != nil:
		return "name=" + *e.Form.Name
	case e.Form.ID != nil:
		return "id=" + *e.Form.ID
	case e.Form.Action != nil:
		return trimText(*e.Form.Action, 40)
	default:
		return e.Selector
	}
}

func renderPreview(p api.RequestPreview, sub service.Submission) string {
	lines := []string{p.Method + " " + p.URL}
	if p.ContentType != "" {
		lines = append(lines, "Content-Type: "+p.ContentType)
	}
	for _, pair := range sub.Pairs {
		lines = append(lines, fmt.Sprintf("  %s=%s", pair.Name, trimText(pair.Value, 60)))
	}
	for _, a := range sub.Attachments {
		lines = append(lines, fmt.Sprintf("  %s <- %s", a.Name, a.Path))
	}
	if p.Body != "" && !strings.HasPrefix(p.ContentType, "multipart/") {
		lines = append(lines, "", trimText(p.Body, 200))
	}
	return strings.Join(lines, "\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func shortID(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}

func emptyDefault(s, d string) string {
	if strings.TrimSpace(s) == "" {
		return d
	}
	return s
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String() + " ago"
}

func trimText(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func lastUpdatedText(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
