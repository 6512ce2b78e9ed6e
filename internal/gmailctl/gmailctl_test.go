package gmailctl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/gefilte/internal/feed"
)

func entry(pairs ...string) feed.Entry {
	var e feed.Entry
	for i := 0; i+1 < len(pairs); i += 2 {
		e.Properties = append(e.Properties, feed.Property{Name: pairs[i], Value: pairs[i+1]})
	}
	return e
}

func TestFromEntries(t *testing.T) {
	entries := []feed.Entry{
		entry("list", "ignored"),
	}
	_, err := FromEntries(entries)
	require.ErrorContains(t, err, `unknown property "list"`)

	entries = []feed.Entry{
		entry(
			"from", "alerts@example.com",
			"hasTheWord", "list:(alerts.example.com)",
			"doesNotHaveTheWord", "urgent",
			"label", "bulk",
			"shouldArchive", "true",
			"shouldNeverSpam", "true",
		),
		entry("subject", "invoice", "label", "Finance", "shouldStar", "true", "shouldAlwaysMarkAsImportant", "true"),
		entry("to", "me@example.com", "shouldTrash", "true", "label", "bulk"),
	}
	export, err := FromEntries(entries)
	require.NoError(t, err)
	require.Len(t, export.Filters, 3)

	first := export.Filters[0]
	assert.Equal(t, "from:alerts@example.com", first.Name)
	assert.Equal(t, FilterCriteria{
		From:         "alerts@example.com",
		Query:        "list:(alerts.example.com)",
		NegatedQuery: "urgent",
	}, first.Criteria)
	assert.Equal(t, []string{LabelID("bulk")}, first.Action.AddLabelIDs)
	assert.Equal(t, []string{LabelInbox, LabelSpam}, first.Action.RemoveLabelIDs)

	second := export.Filters[1]
	assert.Equal(t, []string{LabelID("Finance"), LabelStarred, LabelImportant}, second.Action.AddLabelIDs)
	assert.Empty(t, second.Action.RemoveLabelIDs)

	third := export.Filters[2]
	assert.Equal(t, "to:me@example.com", third.Name)
	assert.Equal(t, []string{LabelTrash, LabelID("bulk")}, third.Action.AddLabelIDs)

	assert.Equal(t, []Label{
		{ID: LabelID("Finance"), Name: "Finance", Type: "user"},
		{ID: LabelID("bulk"), Name: "bulk", Type: "user"},
	}, export.Labels)
}

func TestExportIsDeterministic(t *testing.T) {
	entries := []feed.Entry{entry("subject", "a", "label", "x")}
	a, err := FromEntries(entries)
	require.NoError(t, err)
	b, err := FromEntries(entries)
	require.NoError(t, err)

	ja, err := a.Indented()
	require.NoError(t, err)
	jb, err := b.Indented()
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
	assert.NotEmpty(t, a.Filters[0].ID)
	assert.NotEqual(t, LabelID("a"), LabelID("b"))
}

func TestIdenticalFiltersShareID(t *testing.T) {
	export, err := FromEntries([]feed.Entry{
		entry("from", "x", "shouldStar", "true"),
		entry("from", "x", "shouldStar", "true"),
		entry("from", "x", "shouldTrash", "true"),
	})
	require.NoError(t, err)
	assert.Equal(t, export.Filters[0].ID, export.Filters[1].ID)
	assert.NotEqual(t, export.Filters[0].ID, export.Filters[2].ID)
}

func TestAPIFilters(t *testing.T) {
	export, err := FromEntries([]feed.Entry{
		entry("from", "x@example.com", "doesNotHaveTheWord", "y", "shouldArchive", "true"),
	})
	require.NoError(t, err)

	api := export.APIFilters()
	require.Len(t, api, 1)
	assert.Equal(t, export.Filters[0].ID, api[0].Id)
	assert.Equal(t, "x@example.com", api[0].Criteria.From)
	assert.Equal(t, "y", api[0].Criteria.NegatedQuery)
	assert.Equal(t, []string{LabelInbox}, api[0].Action.RemoveLabelIds)

	raw, err := export.IndentedAPI()
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	criteria, ok := decoded[0]["criteria"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "y", criteria["negatedQuery"])
}

func TestEmptyExport(t *testing.T) {
	export, err := FromEntries(nil)
	require.NoError(t, err)
	raw, err := export.Indented()
	require.NoError(t, err)
	assert.JSONEq(t, `{"filters":[],"labels":[]}`, string(raw))
}
