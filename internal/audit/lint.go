// Package audit lints finalized filter entries before they are imported.
package audit

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/joshsymonds/gefilte/internal/feed"
)

// LintReport captures findings for CI enforcement.
type LintReport struct {
	Total      int           `json:"total"`
	CatchAll   []RuleFinding `json:"catch_all"`
	Conflicts  []Conflict    `json:"conflicts"`
	Duplicates []Conflict    `json:"duplicates"`
	Labels     []string      `json:"labels"`
}

// RuleFinding identifies a problematic rule.
type RuleFinding struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Conflict represents rules whose actions work against each other.
type Conflict struct {
	Rules       []string `json:"rules"`
	Description string   `json:"description"`
}

// RunLint analyses entries in declaration order.
func RunLint(entries []feed.Entry) LintReport {
	rules := compileRules(entries)
	rep := LintReport{Total: len(rules)}
	for _, rule := range rules {
		if rule.Criteria == 0 {
			rep.CatchAll = append(rep.CatchAll, RuleFinding{
				Name:   rule.Name,
				Reason: "no conditions: applies to every incoming message",
			})
		}
		for _, lbl := range rule.Actions.Labels {
			rep.Labels = appendIfMissing(rep.Labels, lbl)
		}
	}
	sort.Strings(rep.Labels)
	rep.Conflicts = append(detectSelfConflicts(rules), detectConflicts(rules)...)
	rep.Duplicates = detectDuplicates(rules)
	return rep
}

// ShouldFail reports whether any of the requested conditions are present.
func (lr LintReport) ShouldFail(failOn []string) bool {
	flags := map[string]bool{
		"catch-all": len(lr.CatchAll) > 0,
		"conflict":  len(lr.Conflicts) > 0,
		"duplicate": len(lr.Duplicates) > 0,
	}
	for _, cond := range failOn {
		cond = strings.TrimSpace(strings.ToLower(cond))
		if cond == "" {
			continue
		}
		if flags[cond] {
			return true
		}
	}
	return false
}

// HumanSummary renders a concise CLI summary.
func (lr LintReport) HumanSummary() string {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "gefilte lint: %d filters checked\n", lr.Total)
	if len(lr.CatchAll) == 0 && len(lr.Conflicts) == 0 && len(lr.Duplicates) == 0 {
		builder.WriteString("no findings\n")
		return builder.String()
	}
	if len(lr.CatchAll) > 0 {
		builder.WriteString("catch-all filters:\n")
		for _, fr := range lr.CatchAll {
			fmt.Fprintf(builder, "  %s: %s\n", fr.Name, fr.Reason)
		}
	}
	if len(lr.Conflicts) > 0 {
		builder.WriteString("conflicts:\n")
		for _, cf := range lr.Conflicts {
			fmt.Fprintf(builder, "  %s: %s\n", strings.Join(cf.Rules, ", "), cf.Description)
		}
	}
	if len(lr.Duplicates) > 0 {
		builder.WriteString("duplicates:\n")
		for _, cf := range lr.Duplicates {
			fmt.Fprintf(builder, "  %s\n", strings.Join(cf.Rules, ", "))
		}
	}
	return builder.String()
}

// ParseFailOn normalizes a comma separated list of finding kinds, dropping
// blanks and repeats.
func ParseFailOn(input string) []string {
	var tokens []string
	for _, part := range strings.Split(input, ",") {
		tok := strings.ToLower(strings.TrimSpace(part))
		if tok != "" && !slices.Contains(tokens, tok) {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
