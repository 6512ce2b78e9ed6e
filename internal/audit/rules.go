package audit

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/joshsymonds/gefilte/internal/feed"
	"github.com/joshsymonds/gefilte/internal/filter"
)

type ruleActions struct {
	Archive   bool
	Star      bool
	Important bool
	Trash     bool
	Labels    []string
}

type compiledRule struct {
	Name      string
	Signature string
	Criteria  int
	Actions   ruleActions
	ActionKey string
}

func compileRules(entries []feed.Entry) []compiledRule {
	compiled := make([]compiledRule, 0, len(entries))
	for i, e := range entries {
		var (
			criteria []string
			actions  []string
			rule     compiledRule
		)
		for _, p := range e.Properties {
			if filter.ConditionName(p.Name).Valid() {
				criteria = append(criteria, p.Name+"="+p.Value)
				continue
			}
			actions = append(actions, p.Name+"="+p.Value)
			switch filter.ActionName(p.Name) {
			case filter.ActArchive:
				rule.Actions.Archive = true
			case filter.ActStar:
				rule.Actions.Star = true
			case filter.ActMarkImportant:
				rule.Actions.Important = true
			case filter.ActTrash:
				rule.Actions.Trash = true
			case filter.ActLabel:
				rule.Actions.Labels = appendIfMissing(rule.Actions.Labels, p.Value)
			}
		}
		sort.Strings(criteria)
		sort.Strings(actions)
		sort.Strings(rule.Actions.Labels)
		rule.Name = fmt.Sprintf("#%d %s", i+1, describeCriteria(e))
		rule.Signature = strings.Join(criteria, "\x00")
		rule.Criteria = len(criteria)
		rule.ActionKey = strings.Join(actions, "\x00")
		compiled = append(compiled, rule)
	}
	return compiled
}

func describeCriteria(e feed.Entry) string {
	parts := make([]string, 0, len(e.Properties))
	for _, p := range e.Properties {
		if !filter.ConditionName(p.Name).Valid() {
			continue
		}
		switch filter.ConditionName(p.Name) {
		case filter.CondHasTheWord:
			parts = append(parts, p.Value)
		case filter.CondDoesNotHaveWord:
			parts = append(parts, "-("+p.Value+")")
		default:
			parts = append(parts, p.Name+":"+p.Value)
		}
	}
	if len(parts) == 0 {
		return "(all mail)"
	}
	return strings.Join(parts, " ")
}

// detectSelfConflicts flags entries whose own actions work against each other.
func detectSelfConflicts(rules []compiledRule) []Conflict {
	var conflicts []Conflict
	for _, rule := range rules {
		a := rule.Actions
		if a.Archive && a.Star {
			conflicts = append(conflicts, Conflict{
				Rules:       []string{rule.Name},
				Description: "archives and stars the same messages",
			})
		}
		if a.Trash && (a.Star || a.Important || len(a.Labels) > 0) {
			conflicts = append(conflicts, Conflict{
				Rules:       []string{rule.Name},
				Description: "trashes messages it also stars, labels or marks important",
			})
		}
	}
	return conflicts
}

// detectConflicts flags entries with identical criteria whose actions
// disagree, e.g. one archives what the other stars.
func detectConflicts(rules []compiledRule) []Conflict {
	bySignature := groupBySignature(rules)
	conflicts := make([]Conflict, 0, len(bySignature))
	for _, group := range bySignature {
		archiveRules, starRules := classifyRules(group)
		if len(archiveRules) == 0 || len(starRules) == 0 {
			continue
		}
		combined := mergeRuleSets(archiveRules, starRules)
		if len(combined) < 2 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Rules:       combined,
			Description: "archive and star rules overlap",
		})
	}
	sort.Slice(conflicts, func(i, j int) bool {
		return strings.Join(conflicts[i].Rules, "|") < strings.Join(conflicts[j].Rules, "|")
	})
	return conflicts
}

// detectDuplicates flags entries identical in both criteria and actions.
func detectDuplicates(rules []compiledRule) []Conflict {
	seen := map[string][]string{}
	var order []string
	for _, rule := range rules {
		key := rule.Signature + "\x01" + rule.ActionKey
		if _, ok := seen[key]; !ok {
			order = append(order, key)
		}
		seen[key] = append(seen[key], rule.Name)
	}
	var dups []Conflict
	for _, key := range order {
		if names := seen[key]; len(names) > 1 {
			dups = append(dups, Conflict{Rules: names, Description: "identical filters"})
		}
	}
	return dups
}

func groupBySignature(rules []compiledRule) map[string][]compiledRule {
	out := make(map[string][]compiledRule)
	for _, rule := range rules {
		out[rule.Signature] = append(out[rule.Signature], rule)
	}
	return out
}

func classifyRules(rules []compiledRule) ([]string, []string) {
	archiveRules := make([]string, 0, len(rules))
	starRules := make([]string, 0, len(rules))
	for _, rule := range rules {
		if rule.Actions.Archive {
			archiveRules = appendIfMissing(archiveRules, rule.Name)
		}
		if rule.Actions.Star {
			starRules = appendIfMissing(starRules, rule.Name)
		}
	}
	return archiveRules, starRules
}

func mergeRuleSets(a, b []string) []string {
	combined := append([]string{}, a...)
	for _, name := range b {
		combined = appendIfMissing(combined, name)
	}
	sort.Strings(combined)
	return combined
}

func appendIfMissing(slice []string, val string) []string {
	if slices.Contains(slice, val) {
		return slice
	}
	return append(slice, val)
}
