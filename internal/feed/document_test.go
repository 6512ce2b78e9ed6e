package feed

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/gefilte/internal/filter"
)

// parsedFeed decodes rendered output with real namespace resolution.
type parsedFeed struct {
	XMLName xml.Name      `xml:"http://www.w3.org/2005/Atom feed"`
	Comment string        `xml:",comment"`
	Entries []parsedEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type parsedEntry struct {
	Properties []xmlProperty `xml:"http://schemas.google.com/apps/2006 property"`
}

func parse(t *testing.T, out string) parsedFeed {
	t.Helper()
	var f parsedFeed
	require.NoError(t, xml.Unmarshal([]byte(out), &f))
	return f
}

func render(t *testing.T, d *Document) string {
	t.Helper()
	out, err := d.Render()
	require.NoError(t, err)
	return out
}

func TestNewDocumentRendersEmptyFeed(t *testing.T) {
	d := New()
	out := render(t, d)

	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `<feed xmlns="http://www.w3.org/2005/Atom" xmlns:apps="http://schemas.google.com/apps/2006">`)
	f := parse(t, out)
	assert.Equal(t, " Made by gefilte dev: https://github.com/joshsymonds/gefilte ", f.Comment)
	assert.Empty(t, f.Entries)
	assert.Equal(t, 1, d.Depth())
}

func TestSingleFilterScenario(t *testing.T) {
	d := New()
	err := d.Within(d.Subject("invoice"), func(*filter.Builder) error {
		d.Label("Finance")
		return nil
	})
	require.NoError(t, err)

	out := render(t, d)
	assert.Contains(t, out, `<apps:property name="subject" value="invoice"></apps:property>`)
	f := parse(t, out)
	require.Len(t, f.Entries, 1)
	assert.Equal(t, []xmlProperty{
		{Name: "subject", Value: "invoice"},
		{Name: "label", Value: "Finance"},
	}, f.Entries[0].Properties)
}

func TestNestedScopeScenario(t *testing.T) {
	d := New()
	err := d.Within(d.From("boss@example.com"), func(*filter.Builder) error {
		return d.Within(d.HasNot("urgent"), func(*filter.Builder) error {
			d.SkipInbox()
			return nil
		})
	})
	require.NoError(t, err)

	entries := d.Entries()
	require.Len(t, entries, 1, "outer filter has no actions and is dropped")
	assert.Equal(t, []Property{
		{Name: "from", Value: "boss@example.com"},
		{Name: "doesNotHaveTheWord", Value: "urgent"},
		{Name: "shouldArchive", Value: "true"},
	}, entries[0].Properties)
}

func TestNestedScopeBothEntries(t *testing.T) {
	d := New()
	err := d.Within(d.From("boss@example.com"), func(outer *filter.Builder) error {
		outer.Star()
		return d.Within(d.HasNot("urgent"), func(inner *filter.Builder) error {
			inner.SkipInbox()
			return nil
		})
	})
	require.NoError(t, err)

	entries := d.Entries()
	require.Len(t, entries, 2)
	// inner closes first
	assert.Equal(t, "shouldArchive", entries[0].Properties[2].Name)
	assert.Equal(t, []Property{
		{Name: "from", Value: "boss@example.com"},
		{Name: "shouldStar", Value: "true"},
	}, entries[1].Properties)
}

func TestFilterWithoutActionsProducesNoEntry(t *testing.T) {
	d := New()
	require.NoError(t, d.Add(d.Subject("a").From("b").Has("c")))
	assert.Empty(t, d.Entries())
	assert.NotContains(t, render(t, d), "<entry>")
}

func TestGroupingSameNameConditions(t *testing.T) {
	d := New()
	b := d.Subject("a").From("x").Subject("b").Cc("team")
	b.Label("L").Label("M")
	require.NoError(t, d.Add(b))

	assert.Equal(t, []Property{
		{Name: "subject", Value: "a b"},
		{Name: "from", Value: "x"},
		{Name: "hasTheWord", Value: "cc:(team)"},
		{Name: "label", Value: "L"},
		{Name: "label", Value: "M"},
	}, d.Entries()[0].Properties)
}

func TestRenderIsIdempotent(t *testing.T) {
	d := New()
	b := d.Subject(filter.Exact("weekly digest"))
	b.Delete()
	require.NoError(t, d.Add(b))

	first := render(t, d)
	second := render(t, d)
	assert.Equal(t, first, second)
	assert.Equal(t, `"weekly digest"`, parse(t, first).Entries[0].Properties[0].Value)
}

func TestFinishOutOfOrderFails(t *testing.T) {
	d := New()
	outer := d.Subject("a")
	inner := outer.From("b")
	d.Push(outer)
	d.Push(inner)

	err := d.Finish(outer)
	require.ErrorIs(t, err, filter.ErrStateViolation)

	_, err = d.Render()
	require.ErrorIs(t, err, ErrIncomplete)
	require.ErrorIs(t, err, filter.ErrStateViolation)
}

func TestFinishRootFails(t *testing.T) {
	d := New()
	require.ErrorIs(t, d.Finish(d.Active()), filter.ErrStateViolation)
	assert.Equal(t, 1, d.Depth())
}

func TestFailedScopeBlocksRender(t *testing.T) {
	d := New()
	boom := errors.New("boom")
	err := d.Within(d.Subject("a"), func(b *filter.Builder) error {
		b.Label("never written")
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, d.Depth())
	assert.Empty(t, d.Entries())

	_, err = d.Render()
	require.ErrorIs(t, err, ErrIncomplete)
	require.ErrorIs(t, d.Err(), boom)
}

func TestWithinRejectsForeignBuilder(t *testing.T) {
	d := New()
	other := New()
	err := d.Within(other.Subject("x"), func(*filter.Builder) error { return nil })
	require.ErrorIs(t, err, filter.ErrStateViolation)
}

func TestDelegationTargetsActiveFilter(t *testing.T) {
	d := New()
	var elif *filter.Builder
	err := d.Within(d.Subject("x"), func(*filter.Builder) error {
		d.Label("X")
		var err error
		elif, err = d.Elif(d.From("y"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []filter.Condition{
		{Name: filter.CondSubject, Value: "-x"},
		{Name: filter.CondFrom, Value: "y"},
	}, elif.Conditions())

	require.NoError(t, d.Within(elif, func(*filter.Builder) error {
		d.Label("Y")
		return nil
	}))
	catchAll, err := elif.Else()
	require.NoError(t, err)
	catchAll.Label("Other")
	require.NoError(t, d.Add(catchAll))

	entries := d.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []Property{
		{Name: "subject", Value: "-x"},
		{Name: "from", Value: "-y"},
		{Name: "label", Value: "Other"},
	}, entries[2].Properties)
}

func TestElseOnRootFails(t *testing.T) {
	d := New()
	_, err := d.Else()
	require.ErrorIs(t, err, filter.ErrEmptyConditions)
}

func TestWithGenerator(t *testing.T) {
	d := New(WithGenerator(Generator{Name: "tool", Version: "1.2.3", URL: "https://example.com"}))
	assert.Equal(t, " Made by tool 1.2.3: https://example.com ", parse(t, render(t, d)).Comment)
}

func TestUnrepresentableValuesFailDocument(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"invalid utf8", "bad\xffutf"},
		{"control character", "ctl\x01char"},
		{"noncharacter", "x\uFFFEy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			err := d.Add(d.Subject("report").Has(tt.value).Label("Reports"))
			require.ErrorIs(t, err, ErrInvalidValue)
			assert.Empty(t, d.Entries())

			_, err = d.Render()
			require.ErrorIs(t, err, ErrIncomplete)
			require.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestWhitespaceAndAstralValuesRoundTrip(t *testing.T) {
	d := New()
	require.NoError(t, d.Add(d.Has("tab\there\nnewline 🐟").Label("Fish")))
	f := parse(t, render(t, d))
	require.Len(t, f.Entries, 1)
	assert.Equal(t, "tab\there\nnewline 🐟", f.Entries[0].Properties[0].Value)
}
