package form

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleForm() *Form {
	f := New()
	f.Name = "signup"
	f.ID = "f1"
	f.Action = "/submit"
	f.Method = "post"
	f.Normalize()
	f.Fields.Append(NewField("user", "text", NewFieldValue("bob", true)))
	f.Fields.Append(NewField("color", "select", NewFieldValue("a", false), NewFieldValue("b", true)))
	f.Fields.Append(NewField("avatar", "file", NewFieldValue("", true)))
	f.Controls.Append(NewField("go", "submit", NewFieldValue("Go", false)))
	f.Controls.Append(NewField("pic.x", "image", NewFieldValue("0", false)))
	f.Controls.Append(NewField("pic.y", "image", NewFieldValue("0", false)))
	return f
}

func TestCollectionMergesOnTypeAndName(t *testing.T) {
	c := NewFieldCollection()
	c.Append(NewField("r", "radio", NewFieldValue("a", false)))
	c.Append(NewField("r", "radio", NewFieldValue("b", true)))
	c.Append(NewField("r", "text", NewFieldValue("c", true)))
	if c.Len() != 2 {
		t.Fatalf("expected 2 fields, got %d", c.Len())
	}
	first, _ := c.At(0)
	var values []string
	for _, v := range first.Values() {
		values = append(values, v.Value())
	}
	if diff := cmp.Diff([]string{"a", "b"}, values); diff != "" {
		t.Fatalf("merged values (-want +got):\n%s", diff)
	}
	if f, ok := c.ByName("r"); !ok || f.Type() != "radio" {
		t.Fatalf("ByName should return the first field")
	}
	if f, ok := c.ByNameValue("r", "c"); !ok || f.Type() != "text" {
		t.Fatalf("ByNameValue should find the text field")
	}
	if f, ok := c.ByNameValue("r", "b"); !ok || f.Type() != "radio" {
		t.Fatalf("ByNameValue should index merged values")
	}
	if _, err := c.At(5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCollectionIndicesFollowMutations(t *testing.T) {
	c := NewFieldCollection(
		NewField("b", "text", NewFieldValue("1", true)),
		NewField("a", "text", NewFieldValue("2", true)),
	)
	c.Sort()
	if f, _ := c.At(0); f.Name() != "a" {
		t.Fatalf("expected sorted order")
	}
	if _, err := c.Remove(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := c.ByName("a"); ok {
		t.Fatalf("removed field must not be indexed")
	}
	if f, ok := c.ByName("b"); !ok || f.Name() != "b" {
		t.Fatalf("remaining field should be indexed at its new position")
	}
	c.Append(NewField("c", "text"))
	c.Reverse()
	if f, _ := c.At(0); f.Name() != "c" {
		t.Fatalf("expected reversed order")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty collection")
	}
}

func TestByNameValueSeesEditedValues(t *testing.T) {
	v := NewFieldValue("a", true)
	c := NewFieldCollection(NewField("q", "text", v))
	if err := v.SetValue("b"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if _, ok := c.ByNameValue("q", "a"); ok {
		t.Fatalf("old value must not match after SetValue")
	}
	if _, ok := c.ByNameValue("q", "b"); !ok {
		t.Fatalf("new value should match after SetValue")
	}

	f := sampleForm()
	if err := f.AttachFile("avatar", "/data/me.png"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, ok := f.Fields.ByNameValue("avatar", "me.png"); !ok {
		t.Fatalf("attached filename should match")
	}
	avatar, _ := f.Fields.ByName("avatar")
	first, _ := avatar.Value(0)
	first.DetachFile()
	if _, ok := f.Fields.ByNameValue("avatar", "me.png"); ok {
		t.Fatalf("detached filename must not match")
	}
}

func TestZeroValueCollection(t *testing.T) {
	var c FieldCollection
	c.Append(NewField("a", "text", NewFieldValue("1", true)))
	c.Append(NewField("a", "text", NewFieldValue("2", true)))
	if c.Len() != 1 {
		t.Fatalf("expected merged field, got %d", c.Len())
	}
	if f, ok := c.ByTypeName("text", "a"); !ok || f.Len() != 2 {
		t.Fatalf("expected both values on the merged field")
	}
}

func TestFieldValueAttachmentLocksValue(t *testing.T) {
	v := NewFieldValue("", true)
	if err := v.AttachFile("/tmp/photos/me.png"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if v.Filename() != "me.png" || v.Value() != "me.png" {
		t.Fatalf("unexpected filename %q value %q", v.Filename(), v.Value())
	}
	if err := v.SetValue("other"); !errors.Is(err, ErrAttachmentLocked) {
		t.Fatalf("expected ErrAttachmentLocked, got %v", err)
	}
	v.DetachFile()
	if err := v.SetValue("other"); err != nil {
		t.Fatalf("set after detach: %v", err)
	}
	if err := v.AttachFile(""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSubmissionPairsAndAttachments(t *testing.T) {
	f := sampleForm()
	if err := f.AttachFile("avatar", "/data/me.png"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	want := []Pair{{Name: "user", Value: "bob"}, {Name: "color", Value: "b"}}
	if diff := cmp.Diff(want, f.SubmissionPairs()); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}
	wantFiles := []Attachment{{Name: "avatar", Filename: "me.png", Path: "/data/me.png"}}
	if diff := cmp.Diff(wantFiles, f.FileAttachments()); diff != "" {
		t.Fatalf("attachments (-want +got):\n%s", diff)
	}
}

func TestSelectControl(t *testing.T) {
	f := sampleForm()
	if err := f.SelectControl("pic.x", ""); err != nil {
		t.Fatalf("select image: %v", err)
	}
	want := []Pair{
		{Name: "user", Value: "bob"},
		{Name: "color", Value: "b"},
		{Name: "avatar", Value: ""},
		{Name: "pic.x", Value: "0"},
		{Name: "pic.y", Value: "0"},
	}
	if diff := cmp.Diff(want, f.SubmissionPairs()); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}
	if err := f.SelectControl("go", "Go"); err != nil {
		t.Fatalf("select submit: %v", err)
	}
	pairs := f.SubmissionPairs()
	if last := pairs[len(pairs)-1]; last.Name != "go" || len(pairs) != 4 {
		t.Fatalf("expected only the submit control active, got %v", pairs)
	}
	if err := f.SelectControl("missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSelectUnnamedImageControl(t *testing.T) {
	f := New()
	f.Normalize()
	f.Controls.Append(NewField("x", "image", NewFieldValue("0", false)))
	f.Controls.Append(NewField("y", "image", NewFieldValue("0", false)))
	f.Controls.Append(NewField("go", "submit", NewFieldValue("Go", true)))

	if err := f.SelectControl("y", ""); err != nil {
		t.Fatalf("select image: %v", err)
	}
	want := []Pair{{Name: "x", Value: "0"}, {Name: "y", Value: "0"}}
	if diff := cmp.Diff(want, f.SubmissionPairs()); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}
}

func TestSelectSubmitNamedLikeCoordinate(t *testing.T) {
	f := New()
	f.Normalize()
	f.Controls.Append(NewField("x", "submit", NewFieldValue("X", false)))
	f.Controls.Append(NewField("y", "submit", NewFieldValue("Y", false)))

	if err := f.SelectControl("x", ""); err != nil {
		t.Fatalf("select submit: %v", err)
	}
	want := []Pair{{Name: "x", Value: "X"}}
	if diff := cmp.Diff(want, f.SubmissionPairs()); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	f := &Form{Method: " post ", AcceptCharset: "ISO-8859-1 utf-8"}
	f.Normalize()
	if f.Method != "POST" || f.Enctype != DefaultEnctype || f.AcceptCharset != "ISO-8859-1" {
		t.Fatalf("unexpected normalized form: %+v", f)
	}
	if f.Fields == nil || f.Controls == nil {
		t.Fatalf("collections must be allocated")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	f := sampleForm()
	if err := f.AttachFile("avatar", "/data/me.png"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	back, err := FromRecord(f.Record())
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if !f.Equal(back) {
		t.Fatalf("round trip mismatch:\n%s", cmp.Diff(f.Record(), back.Record()))
	}

	var buf bytes.Buffer
	if err := EncodeYAML(&buf, f.Record()); err != nil {
		t.Fatalf("encode yaml: %v", err)
	}
	rec, err := DecodeYAML(&buf)
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if diff := cmp.Diff(f.Record(), rec); diff != "" {
		t.Fatalf("yaml round trip (-want +got):\n%s", diff)
	}
}

func TestJSONRecordKeys(t *testing.T) {
	f := New()
	f.Fields.Append(NewField("q", "text", NewFieldValue("x", true)))
	data, err := f.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":null,"id":null,"action":null,"method":"GET","enctype":"application/x-www-form-urlencoded","accept-charset":"utf-8","fields":[{"name":"q","type":"text","values":[{"value":"x","is_selected":true,"binary_path":null}]}],"controls":[]}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n%s", data)
	}
	var back Form
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !f.Equal(&back) {
		t.Fatalf("json round trip mismatch")
	}
}

func TestDecodeRejectsInvalidRecords(t *testing.T) {
	cases := map[string]string{
		"null name":       `{"fields":[{"name":null,"type":"text","values":[]}]}`,
		"missing select":  `{"fields":[{"name":"a","type":"text","values":[{"value":"x"}]}]}`,
		"string selected": `{"fields":[{"name":"a","type":"text","values":[{"value":"x","is_selected":"yes"}]}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec, err := DecodeJSON(strings.NewReader(body))
			if err == nil {
				_, err = FromRecord(rec)
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestNullValueBecomesEmpty(t *testing.T) {
	rec, err := DecodeJSON(strings.NewReader(`{"method":"post","fields":[{"name":"a","type":"","values":[{"value":null,"is_selected":true}]}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	f, err := FromRecord(rec)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if f.Method != "POST" {
		t.Fatalf("method should be upper-cased, got %q", f.Method)
	}
	field, ok := f.FieldByName("a")
	if !ok || field.Type() != "text" {
		t.Fatalf("expected text field a")
	}
	v, _ := field.Value(0)
	if v.Value() != "" || !v.Selected() {
		t.Fatalf("unexpected value %q %v", v.Value(), v.Selected())
	}
}
