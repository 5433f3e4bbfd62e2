package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adityalohuni/htmlform/internal/dom"
)

func inputOf(t *testing.T, markup string) Input {
	t.Helper()
	el, err := dom.ParseFragment(markup)
	if err != nil {
		t.Fatalf("fragment %q: %v", markup, err)
	}
	return InputFrom(el)
}

func TestDispatchCatalog(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		kind   Kind
		want   []Entry
	}{
		{"checkbox default", `<input type="checkbox" name="agree">`, KindCheckable,
			[]Entry{{Name: "agree", Value: "on"}}},
		{"radio checked", `<input type="RADIO" name="r" value="b" checked>`, KindCheckable,
			[]Entry{{Name: "r", Value: "b", Selected: true}}},
		{"color default", `<input type="color" name="c">`, KindColor,
			[]Entry{{Name: "c", Value: "#000000", Selected: true}}},
		{"range default", `<input type="range" name="v">`, KindRange,
			[]Entry{{Name: "v", Value: "50", Selected: true}}},
		{"range bounds", `<input type="range" name="v" min="10" max="21">`, KindRange,
			[]Entry{{Name: "v", Value: "15", Selected: true}}},
		{"range inverted", `<input type="range" name="v" min="-40" max="-50">`, KindRange,
			[]Entry{{Name: "v", Value: "-40", Selected: true}}},
		{"range bad min", `<input type="range" name="v" min="low" max="10">`, KindRange,
			[]Entry{{Name: "v", Value: "5", Selected: true}}},
		{"range negative floor", `<input type="range" name="v" min="-7" max="-2">`, KindRange,
			[]Entry{{Name: "v", Value: "-5", Selected: true}}},
		{"range extreme bounds", `<input type="range" name="v" min="-9223372036854775808" max="9223372036854775807">`, KindRange,
			[]Entry{{Name: "v", Value: "-1", Selected: true}}},
		{"range near max", `<input type="range" name="v" min="9223372036854775805" max="9223372036854775807">`, KindRange,
			[]Entry{{Name: "v", Value: "9223372036854775806", Selected: true}}},
		{"range explicit", `<input type="range" name="v" value="7">`, KindRange,
			[]Entry{{Name: "v", Value: "7", Selected: true}}},
		{"submit default", `<input type="submit" name="go">`, KindSubmit,
			[]Entry{{Name: "go", Value: "submit"}}},
		{"button input", `<input type="button" name="b">`, KindButtonInput,
			[]Entry{{Name: "b", Value: ""}}},
		{"image named", `<input type="image" name="pic">`, KindImage,
			[]Entry{{Name: "pic.x", Value: "0"}, {Name: "pic.y", Value: "0"}}},
		{"image unnamed", `<input type="image">`, KindImage,
			[]Entry{{Name: "x", Value: "0"}, {Name: "y", Value: "0"}}},
		{"button text", `<button name="b">  Send it </button>`, KindButton,
			[]Entry{{Name: "b", Value: "Send it"}}},
		{"button value", `<button name="b" value="v">Label</button>`, KindButton,
			[]Entry{{Name: "b", Value: "v"}}},
		{"button empty", `<button></button>`, KindButton,
			[]Entry{{Name: "", Value: "Submit Query"}}},
		{"text input", `<input name="q" value="hi">`, KindInput,
			[]Entry{{Name: "q", Value: "hi", Selected: true}}},
		{"unknown type", `<input type="email" name="e">`, KindInput,
			[]Entry{{Name: "e", Value: "", Selected: true}}},
		{"select", `<select name="color"><option value="a">A</option><option selected>  Big
			Red </option></select>`, KindSelect,
			[]Entry{{Name: "color", Value: "a"}, {Name: "color", Value: "Big Red", Selected: true}}},
		{"textarea", `<textarea name="t">hello</textarea>`, KindTextarea,
			[]Entry{{Name: "t", Value: "hello", Selected: true}}},
		{"textarea empty", `<textarea name="t"></textarea>`, KindTextarea,
			[]Entry{{Name: "t", Value: "", Selected: true}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, got := Dispatch(inputOf(t, tc.markup))
			if kind != tc.kind {
				t.Fatalf("kind = %s, want %s", kind, tc.kind)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatchUnknownTag(t *testing.T) {
	kind, entries := Dispatch(Input{Tag: "p"})
	if kind != KindNone || entries != nil {
		t.Fatalf("expected no match, got %s %v", kind, entries)
	}
}

func TestCatalogOrder(t *testing.T) {
	if Match("input", "checkbox") != KindCheckable {
		t.Fatalf("checkbox must not fall through to generic input")
	}
	if Match("input", "reset") != KindButtonInput {
		t.Fatalf("reset routes to the button-input rule")
	}
	if Match("button", "reset") != KindButton {
		t.Fatalf("button element is matched by tag")
	}
	cat := Catalog()
	if cat[0] != KindCheckable || cat[len(cat)-1] != KindFallback {
		t.Fatalf("unexpected catalog order: %v", cat)
	}
	cat[0] = KindNone
	if Catalog()[0] != KindCheckable {
		t.Fatalf("catalog must not be mutable through the copy")
	}
}

func TestFallbackRule(t *testing.T) {
	if !KindFallback.Suitable("select", "") {
		t.Fatalf("fallback should accept form tags")
	}
	got := KindFallback.Parse(Input{Tag: "input", Attrs: map[string]string{"name": "n", "value": "v"}})
	want := []Entry{{Name: "n", Value: "v", Selected: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
	}
}

func TestCategory(t *testing.T) {
	for _, k := range []Kind{KindSubmit, KindImage, KindButton} {
		if k.Category() != CategoryControl {
			t.Fatalf("%s should be a control", k)
		}
	}
	for _, k := range []Kind{KindCheckable, KindButtonInput, KindInput, KindSelect, KindTextarea} {
		if k.Category() != CategoryField {
			t.Fatalf("%s should be a field", k)
		}
	}
}

func TestResolveType(t *testing.T) {
	if got := ResolveType("input", "", false); got != "text" {
		t.Fatalf("bare input = %q", got)
	}
	if got := ResolveType("button", "", true); got != "submit" {
		t.Fatalf("empty button type = %q", got)
	}
	if got := ResolveType("input", " CheckBox ", true); got != "checkbox" {
		t.Fatalf("type should be normalized, got %q", got)
	}
}
