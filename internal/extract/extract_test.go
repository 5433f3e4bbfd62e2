package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityalohuni/htmlform/internal/form"
)

const loginPage = `<!doctype html>
<html><body>
<form name="search" action="/s"><input name="q" value="golang"></form>
<form id="f1" name="login" action="/login" method="post" accept-charset="ISO-8859-1 utf-8">
  <input name="user" value="bob">
  <input type="password" name="pass">
  <input type="checkbox" name="remember">
  <input type="checkbox" name="tos" value="yes" checked>
  <input type="radio" name="plan" value="free" checked>
  <input type="radio" name="plan" value="pro">
  <input type="reset" name="clear">
  <input type="search" name="find">
  <input type="hidden" name="stolen" form="other">
  <select name="color">
    <option value="a">A</option>
    <option selected>  Big   Red </option>
  </select>
  <textarea name="bio">hello</textarea>
  <input type="image" name="pic">
  <button name="go">Sign in</button>
  <input type="submit" name="alt" value="Alt">
</form>
<input name="outside" value="o" form="f1">
<button form="f1" name="late">Later</button>
</body></html>`

func TestParseFormOwnershipAndFolding(t *testing.T) {
	f, err := ParseForm(loginPage, ByID("f1"))
	require.NoError(t, err)

	assert.Equal(t, "login", f.Name)
	assert.Equal(t, "POST", f.Method)
	assert.Equal(t, form.DefaultEnctype, f.Enctype)
	assert.Equal(t, "ISO-8859-1", f.AcceptCharset)

	var names []string
	for _, field := range f.Fields.All() {
		names = append(names, field.Name()+":"+field.Type())
	}
	assert.Equal(t, []string{
		"user:text", "pass:password", "remember:checkbox", "tos:checkbox", "plan:radio",
		"color:select", "bio:textarea", "outside:text",
	}, names)

	var controls []string
	for _, c := range f.Controls.All() {
		controls = append(controls, c.Name()+":"+c.Type())
	}
	assert.Equal(t, []string{"pic.x:image", "pic.y:image", "go:submit", "alt:submit", "late:submit"}, controls)

	plan, ok := f.FieldByName("plan")
	require.True(t, ok)
	require.Equal(t, 2, plan.Len())

	assert.Equal(t, []form.Pair{
		{Name: "user", Value: "bob"},
		{Name: "pass", Value: ""},
		{Name: "tos", Value: "yes"},
		{Name: "plan", Value: "free"},
		{Name: "color", Value: "Big Red"},
		{Name: "bio", Value: "hello"},
		{Name: "outside", Value: "o"},
	}, f.SubmissionPairs())
}

func TestSelectors(t *testing.T) {
	page, err := Load(loginPage)
	require.NoError(t, err)
	require.Equal(t, 2, page.Len())

	first, err := page.Form(First())
	require.NoError(t, err)
	assert.Equal(t, "search", first.Name)

	byName, err := page.FormByName("login")
	require.NoError(t, err)
	assert.Equal(t, "f1", byName.ID)

	byIndex, err := page.FormByIndex(1)
	require.NoError(t, err)
	assert.True(t, byName.Equal(byIndex))

	for _, sel := range []Selector{ByName("nope"), ByID("nope"), ByIndex(2), ByIndex(-1)} {
		_, err := page.Form(sel)
		assert.ErrorIs(t, err, form.ErrNotFound, sel.String())
	}

	_, err = ParseForm("<p>no forms here</p>", First())
	assert.ErrorIs(t, err, form.ErrNotFound)

	all, err := ParseForms(loginPage)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFormWithoutIDIgnoresOwnerAttribute(t *testing.T) {
	f, err := ParseForm(`<form><input name="a"></form><input name="b" form="">`, First())
	require.NoError(t, err)
	assert.Equal(t, 1, f.Fields.Len())
	assert.Equal(t, "GET", f.Method)
	assert.Equal(t, "utf-8", f.AcceptCharset)
}

func TestDefaultsForBareElements(t *testing.T) {
	f, err := ParseForm(`<form id="x">
		<input type="range" name="r">
		<input type="color" name="c">
		<button></button>
		<textarea name="t"></textarea>
	</form>`, ByID("x"))
	require.NoError(t, err)

	r, _ := f.FieldByName("r")
	v, _ := r.Value(0)
	assert.Equal(t, "50", v.Value())

	c, _ := f.FieldByName("c")
	v, _ = c.Value(0)
	assert.Equal(t, "#000000", v.Value())
	assert.True(t, v.Selected())

	b, ok := f.ControlByName("")
	require.True(t, ok)
	assert.Equal(t, "submit", b.Type())
	v, _ = b.Value(0)
	assert.Equal(t, "Submit Query", v.Value())
	assert.False(t, v.Selected())

	ta, _ := f.FieldByName("t")
	v, _ = ta.Value(0)
	assert.Equal(t, "", v.Value())
}

func TestSelectSharingNameMerges(t *testing.T) {
	f, err := ParseForm(`<form>
		<select name="pet"><option>fizz</option></select>
		<select name="pet"><option>buzz</option><option selected>woof</option></select>
	</form>`, First())
	require.NoError(t, err)
	require.Equal(t, 1, f.Fields.Len())
	pet, _ := f.FieldByName("pet")
	var values []string
	for _, v := range pet.Values() {
		values = append(values, v.Value())
	}
	assert.Equal(t, []string{"fizz", "buzz", "woof"}, values)
	assert.Equal(t, []form.Pair{{Name: "pet", Value: "woof"}}, f.SubmissionPairs())
}

func TestSingleElementEntryPoints(t *testing.T) {
	field, err := ParseField(`<input type="checkbox" name="a" checked>`)
	require.NoError(t, err)
	assert.Equal(t, "checkbox", field.Type())
	v, _ := field.Value(0)
	assert.Equal(t, "on", v.Value())
	assert.True(t, v.Selected())

	_, err = ParseField(`<p>nope</p>`)
	assert.ErrorIs(t, err, form.ErrInvalidElement)

	_, err = ParseField(`<input type="submit" name="go">`)
	assert.ErrorIs(t, err, form.ErrInvalidElement)

	control, err := ParseControl(`<input type="image" name="pic">`)
	require.NoError(t, err)
	assert.Equal(t, "pic", control.Name())
	assert.Equal(t, 2, control.Len())

	control, err = ParseControl(`<button name="go" value="1">Go</button>`)
	require.NoError(t, err)
	assert.Equal(t, "submit", control.Type())

	_, err = ParseControl(`<input type="reset">`)
	assert.ErrorIs(t, err, form.ErrUnsupportedControlType)

	_, err = ParseControl(`<select></select>`)
	assert.ErrorIs(t, err, form.ErrInvalidElement)

	_, err = ParseControl("   ")
	assert.ErrorIs(t, err, form.ErrInvalidArgument)
}

func TestSelectorSpec(t *testing.T) {
	idx := 1
	sel, err := SelectorSpec{Index: &idx}.Selector()
	require.NoError(t, err)
	assert.Equal(t, "index=1", sel.String())

	sel, err = SelectorSpec{}.Selector()
	require.NoError(t, err)
	assert.Equal(t, "first", sel.String())

	_, err = SelectorSpec{Name: "a", ID: "b"}.Selector()
	assert.ErrorIs(t, err, form.ErrInvalidArgument)

	neg := -1
	_, err = SelectorSpec{Index: &neg}.Selector()
	assert.ErrorIs(t, err, form.ErrInvalidArgument)
}
