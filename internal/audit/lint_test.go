package audit

import (
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

func TestRunLintClean(t *testing.T) {
	rep := RunLint([]feed.Entry{
		entry("subject", "invoice", "label", "Finance"),
		entry("from", "boss@example.com", "shouldStar", "true"),
	})
	assert.Equal(t, 2, rep.Total)
	assert.Empty(t, rep.CatchAll)
	assert.Empty(t, rep.Conflicts)
	assert.Empty(t, rep.Duplicates)
	assert.Equal(t, []string{"Finance"}, rep.Labels)
	assert.False(t, rep.ShouldFail([]string{"catch-all", "conflict", "duplicate"}))
	assert.Equal(t, "gefilte lint: 2 filters checked\nno findings\n", rep.HumanSummary())
}

func TestRunLintFindings(t *testing.T) {
	rep := RunLint([]feed.Entry{
		entry("label", "Everything"),
		entry("from", "alerts@example.com", "shouldArchive", "true"),
		entry("from", "alerts@example.com", "shouldStar", "true"),
		entry("subject", "junk", "shouldTrash", "true", "label", "Junk"),
		entry("to", "me", "shouldArchive", "true", "shouldStar", "true"),
		entry("subject", "dup", "label", "D"),
		entry("subject", "dup", "label", "D"),
	})

	require.Len(t, rep.CatchAll, 1)
	assert.Equal(t, "#1 (all mail)", rep.CatchAll[0].Name)

	descriptions := map[string][]string{}
	for _, cf := range rep.Conflicts {
		descriptions[cf.Description] = append(descriptions[cf.Description], cf.Rules...)
	}
	assert.ElementsMatch(t, []string{"#2 from:alerts@example.com", "#3 from:alerts@example.com"},
		descriptions["archive and star rules overlap"])
	assert.Equal(t, []string{"#4 subject:junk"},
		descriptions["trashes messages it also stars, labels or marks important"])
	assert.Equal(t, []string{"#5 to:me"}, descriptions["archives and stars the same messages"])

	require.Len(t, rep.Duplicates, 1)
	assert.Equal(t, []string{"#6 subject:dup", "#7 subject:dup"}, rep.Duplicates[0].Rules)

	assert.Equal(t, []string{"D", "Everything", "Junk"}, rep.Labels)
	assert.True(t, rep.ShouldFail([]string{"duplicate"}))
	assert.True(t, rep.ShouldFail([]string{" CATCH-ALL "}))
	assert.False(t, rep.ShouldFail(nil))

	summary := rep.HumanSummary()
	assert.Contains(t, summary, "catch-all filters:\n  #1 (all mail): no conditions")
	assert.Contains(t, summary, "duplicates:\n  #6 subject:dup, #7 subject:dup\n")
}

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "values", input: "catch-all, Conflict ,duplicate", want: []string{"catch-all", "conflict", "duplicate"}},
		{name: "blanks", input: " , ,", want: nil},
		{name: "repeats", input: "conflict,CONFLICT, conflict", want: []string{"conflict"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFailOn(tt.input))
		})
	}
}
