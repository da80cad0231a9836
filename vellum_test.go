package vellum_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romecore/vellum"
)

// E2E scenarios, zero mocks: each test goes through the public Engine
// surface exactly as a host application would.

func TestE2E_HelloName(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template greet {
Hello, @ctx.name!
}`)
	require.NoError(t, err)

	tmpl, err := lib.GetByIdentifier("greet")
	require.NoError(t, err)

	out, err := engine.RenderText(tmpl, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", out)
}

func TestE2E_IfElseWithFormatting(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template status {
@if ctx.active {
online
} else {
offline
}
}`)
	require.NoError(t, err)
	tmpl, err := lib.GetByIdentifier("status")
	require.NoError(t, err)

	out, err := engine.RenderText(tmpl, map[string]any{"active": true})
	require.NoError(t, err)
	assert.Equal(t, "online", out)

	out, err = engine.RenderText(tmpl, map[string]any{"active": false})
	require.NoError(t, err)
	assert.Equal(t, "offline", out)
}

// TestE2E_GreetingsCalibrationProgram reproduces the worked example
// verbatim, including its bare `else` (no `@` sigil).
func TestE2E_GreetingsCalibrationProgram(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template g { Greetings, @name!
@if age > 18 { You are an adult. } else { You are too young! }
Have a nice day. }`)
	require.NoError(t, err)
	tmpl, err := lib.GetByIdentifier("g")
	require.NoError(t, err)

	out, err := engine.RenderText(tmpl, map[string]any{"name": "Andrew", "age": 20.0})
	require.NoError(t, err)
	assert.Equal(t, "Greetings, Andrew!\nYou are an adult.\nHave a nice day.", out)

	out, err = engine.RenderText(tmpl, map[string]any{"name": "Alice", "age": 15.0})
	require.NoError(t, err)
	assert.Equal(t, "Greetings, Alice!\nYou are too young!\nHave a nice day.", out)
}

func TestE2E_ForeachWithShadowing(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template list { @foreach item in ctx.items { Outer: @item
@let item = 'shadowed'
Inner: @item } }`)
	require.NoError(t, err)
	tmpl, err := lib.GetByIdentifier("list")
	require.NoError(t, err)

	out, err := engine.RenderText(tmpl, map[string]any{"items": []any{"A", "B"}})
	require.NoError(t, err)
	assert.Equal(t, "Outer: A\nInner: shadowed\nOuter: B\nInner: shadowed", out)
}

func TestE2E_MetadataSpecificityRetrieval(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template greeting @metadata { lang: en } {
Hello
}
@template greeting @metadata { lang: en, model: gpt-4 } {
Hello, tuned for gpt-4
}`)
	require.NoError(t, err)

	tmpl, err := lib.GetSingleStrictExact(vellum.Language("en"), vellum.TargetModel("gpt-4"))
	require.NoError(t, err)

	out, err := engine.RenderText(tmpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello, tuned for gpt-4", out)
}

func TestE2E_LanguageFallback(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template msg @metadata { identifier: msg, lang: en } {
Hello
}`)
	require.NoError(t, err)

	tmpl, err := lib.GetSingleWithFallbackExact(vellum.Identifier("msg"), vellum.Language("en-US"))
	require.NoError(t, err)

	out, err := engine.RenderText(tmpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)

	_, err = lib.GetSingleStrictExact(vellum.Identifier("msg"), vellum.Language("en-US"))
	assert.Error(t, err, "strict exact must not fall back across language variants")
}

func TestE2E_NestedRender(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template header {
=== @ctx.title ===
}
@template page {
@render 'header' with ctx
body: @ctx.title
}`)
	require.NoError(t, err)

	tmpl, err := lib.GetByIdentifier("page")
	require.NoError(t, err)

	out, err := engine.RenderText(tmpl, map[string]any{"title": "Report"})
	require.NoError(t, err)
	assert.Equal(t, "=== Report ===\nbody: Report", out)
}

func TestE2E_MessagesRoundtrip(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@messages chat {
@system {
You are a helpful assistant.
}
@user {
@ctx.question
}
}`)
	require.NoError(t, err)

	tmpl, err := lib.GetByIdentifier("chat")
	require.NoError(t, err)
	assert.Equal(t, vellum.TemplateKindMessages, tmpl.Kind)

	msgs, err := engine.RenderMessages(tmpl, map[string]any{"question": "What is Go?"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "You are a helpful assistant.", msgs[0].Text)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "What is Go?", msgs[1].Text)
}

func TestE2E_MessagesForeachExpansion(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@messages convo {
@foreach turn in ctx.turns {
@user {
@turn
}
}
}`)
	require.NoError(t, err)
	tmpl, err := lib.GetByIdentifier("convo")
	require.NoError(t, err)

	msgs, err := engine.RenderMessages(tmpl, map[string]any{"turns": []any{"hi", "there"}})
	require.NoError(t, err)

	want := []vellum.Message{
		{Role: "user", Text: "hi"},
		{Role: "user", Text: "there"},
	}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("unexpected messages (-want +got):\n%s", diff)
	}
}

func TestE2E_RenderIsDeterministic(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template t {
@foreach n in ctx.nums { @n }
}`)
	require.NoError(t, err)
	tmpl, err := lib.GetByIdentifier("t")
	require.NoError(t, err)

	data := map[string]any{"nums": []any{1.0, 2.0, 3.0}}
	first, err := engine.RenderText(tmpl, data)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.RenderText(tmpl, data)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestE2E_VariableNotFoundSuggestsSimilarName(t *testing.T) {
	engine := vellum.New()
	lib, err := engine.Parse(`@template t {
@ctx.nmae
}`)
	require.NoError(t, err)
	tmpl, err := lib.GetByIdentifier("t")
	require.NoError(t, err)

	_, err = engine.RenderText(tmpl, map[string]any{"name": "Ada"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean")
}

func TestE2E_CaseInsensitiveHostProperties(t *testing.T) {
	type Profile struct {
		DisplayName string
	}
	engine := vellum.New(vellum.WithPropertiesToLowerCase())
	lib, err := engine.Parse(`@template t {
@ctx.displayname
}`)
	require.NoError(t, err)
	tmpl, err := lib.GetByIdentifier("t")
	require.NoError(t, err)

	out, err := engine.RenderText(tmpl, Profile{DisplayName: "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "Grace", out)
}
