package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<div id="app" class="card open">
  <ul id="list">
    <li class="item">one</li>
    <li class="item done">two</li>
    <li class="item">three</li>
  </ul>
  <input id="name" value="ada" disabled>
  <p id="out" style="color: red; margin: 0">hi</p>
</div>
</body></html>`

func TestQueryAndIdentity(t *testing.T) {
	doc := MustParseHTML(page)

	items, err := doc.QueryAll("li.item")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "two", items[1].Text())

	again, err := doc.QueryAll(".done")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Same(t, items[1], again[0], "one wrapper per node")

	assert.Equal(t, "list", doc.ByID("list").ID())
	assert.Nil(t, doc.ByID("missing"))
	assert.Equal(t, "html", doc.Root().TagName())

	_, err = doc.QueryAll("li[")
	assert.Error(t, err)
}

func TestClasses(t *testing.T) {
	doc := MustParseHTML(page)
	app := doc.ByID("app")

	assert.Equal(t, []string{"card", "open"}, app.Classes())
	app.AddClass("active")
	app.AddClass("active")
	assert.Equal(t, []string{"card", "open", "active"}, app.Classes())

	app.RemoveClass("open")
	assert.False(t, app.HasClass("open"))

	assert.True(t, app.ToggleClass("open"))
	assert.False(t, app.ToggleClass("open"))
}

func TestAttributesAndProperties(t *testing.T) {
	doc := MustParseHTML(page)
	input := doc.ByID("name")

	v, ok := input.Property("value")
	require.True(t, ok)
	assert.Equal(t, "ada", v)

	disabled, _ := input.Property("disabled")
	assert.Equal(t, true, disabled)
	input.SetProperty("disabled", false)
	_, has := input.Attr("disabled")
	assert.False(t, has)

	input.SetProperty("value", "grace")
	v, _ = input.Property("value")
	assert.Equal(t, "grace", v, "set properties shadow the attribute")

	_, ok = input.Property("nothing")
	assert.False(t, ok)
}

func TestTextAndHTML(t *testing.T) {
	doc := MustParseHTML(page)
	out := doc.ByID("out").(*HTMLElement)

	out.SetText("<b>plain</b>")
	assert.Equal(t, "<b>plain</b>", out.Text())
	assert.Equal(t, "&lt;b&gt;plain&lt;/b&gt;", out.HTML())

	require.NoError(t, out.SetHTML("<b>bold</b>"))
	assert.Equal(t, "bold", out.Text())
	require.Len(t, out.Children(), 1)
}

func TestInsert(t *testing.T) {
	doc := MustParseHTML(page)
	list := doc.ByID("list")

	require.NoError(t, list.Insert("start", `<li class="item">zero</li>`))
	require.NoError(t, list.Insert("end", `<li class="item">four</li>`))
	items, err := list.QueryAll("li")
	require.NoError(t, err)
	var texts []string
	for _, li := range items {
		texts = append(texts, li.Text())
	}
	assert.Equal(t, []string{"zero", "one", "two", "three", "four"}, texts)

	require.NoError(t, doc.ByID("out").Insert("after", `<span id="tail">t</span>`))
	assert.Equal(t, "tail", doc.ByID("out").Next().ID())

	assert.Error(t, list.Insert("sideways", "<i></i>"))
}

func TestStyle(t *testing.T) {
	doc := MustParseHTML(page)
	out := doc.ByID("out")

	assert.Equal(t, "red", out.Style("color"))
	out.SetStyle("color", "blue")
	out.SetStyle("display", "none")
	assert.Equal(t, "blue", out.Style("color"))
	style, _ := out.Attr("style")
	assert.Equal(t, "color: blue; margin: 0; display: none", style)
}

func TestNavigation(t *testing.T) {
	doc := MustParseHTML(page)
	items, err := doc.QueryAll("li")
	require.NoError(t, err)

	card, err := items[0].Closest(".card")
	require.NoError(t, err)
	assert.Equal(t, "app", card.ID())

	self, err := items[0].Closest("li")
	require.NoError(t, err)
	assert.Same(t, items[0], self)

	none, err := items[0].Closest("form")
	require.NoError(t, err)
	assert.Nil(t, none)

	assert.Same(t, items[1], items[0].Next())
	assert.Same(t, items[0], items[1].Previous())
	assert.Nil(t, items[0].Previous())
	assert.Equal(t, "list", items[0].Parent().ID())

	ok, err := items[1].Matches(".done")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvents(t *testing.T) {
	doc := MustParseHTML(page)
	ev := NewEvent("click", doc.ByID("app"), map[string]any{"x": 1.0})

	assert.True(t, IsEvent(ev))
	assert.False(t, IsEvent(doc.ByID("app")))
	assert.False(t, IsEvent("click"))

	ev.PreventDefault()
	ev.StopPropagation()
	assert.True(t, ev.DefaultPrevented())
	assert.True(t, ev.PropagationStopped())

	var rec Recorder
	require.NoError(t, rec.Dispatch(ev.Target(), ev))
	require.Len(t, rec.Events, 1)
	assert.Equal(t, "click", rec.Events[0].Type())
}

func TestRender(t *testing.T) {
	doc := MustParseHTML(`<p id="x">a</p>`)
	doc.ByID("x").AddClass("seen")

	var b strings.Builder
	require.NoError(t, doc.Render(&b))
	assert.Contains(t, b.String(), `<p id="x" class="seen">a</p>`)
}
