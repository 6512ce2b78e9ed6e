// Package gmailctl converts finalized filter entries into the JSON shape
// produced by `gmailctl compile --format=json` and into Gmail API filters.
package gmailctl

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/gmail/v1"

	"github.com/joshsymonds/gefilte/internal/feed"
	"github.com/joshsymonds/gefilte/internal/filter"
)

// System label IDs Gmail uses for built-in actions.
const (
	LabelInbox     = "INBOX"
	LabelSpam      = "SPAM"
	LabelTrash     = "TRASH"
	LabelStarred   = "STARRED"
	LabelImportant = "IMPORTANT"
)

// idSpace namespaces the name-based UUIDs used for label and filter IDs.
var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/joshsymonds/gefilte"))

// Export mirrors the JSON payload produced by `gmailctl compile --format=json`.
type Export struct {
	Filters []Filter `json:"filters"`
	Labels  []Label  `json:"labels"`
}

// Filter represents a single Gmail filter definition.
type Filter struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Criteria FilterCriteria `json:"criteria"`
	Action   FilterAction   `json:"action"`
}

// FilterCriteria captures the Gmail search predicates of one entry.
type FilterCriteria struct {
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Query        string `json:"query,omitempty"`
	NegatedQuery string `json:"negatedQuery,omitempty"`
}

// FilterAction describes the Gmail actions for a filter.
type FilterAction struct {
	AddLabelIDs    []string `json:"addLabelIds,omitempty"`
	RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
}

// Label mirrors Gmail label metadata in the compile output.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// LabelID returns the deterministic ID used for a user label.
func LabelID(name string) string {
	return "Label_" + uuid.NewSHA1(idSpace, []byte("label:"+name)).String()
}

// FromEntries converts entries in order. Labels are listed sorted by name.
func FromEntries(entries []feed.Entry) (Export, error) {
	export := Export{Filters: make([]Filter, 0, len(entries))}
	labels := map[string]struct{}{}
	for i, e := range entries {
		f, err := convertEntry(e)
		if err != nil {
			return Export{}, fmt.Errorf("entry %d: %w", i, err)
		}
		for _, p := range e.Properties {
			if p.Name == string(filter.ActLabel) {
				labels[p.Value] = struct{}{}
			}
		}
		export.Filters = append(export.Filters, f)
	}
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	export.Labels = make([]Label, 0, len(names))
	for _, name := range names {
		export.Labels = append(export.Labels, Label{ID: LabelID(name), Name: name, Type: "user"})
	}
	return export, nil
}

func convertEntry(e feed.Entry) (Filter, error) {
	var f Filter
	for _, p := range e.Properties {
		switch filter.ConditionName(p.Name) {
		case filter.CondFrom:
			f.Criteria.From = p.Value
			continue
		case filter.CondTo:
			f.Criteria.To = p.Value
			continue
		case filter.CondSubject:
			f.Criteria.Subject = p.Value
			continue
		case filter.CondHasTheWord:
			f.Criteria.Query = p.Value
			continue
		case filter.CondDoesNotHaveWord:
			f.Criteria.NegatedQuery = p.Value
			continue
		}
		switch filter.ActionName(p.Name) {
		case filter.ActLabel:
			f.Action.AddLabelIDs = appendIfMissing(f.Action.AddLabelIDs, LabelID(p.Value))
		case filter.ActStar:
			f.Action.AddLabelIDs = appendIfMissing(f.Action.AddLabelIDs, LabelStarred)
		case filter.ActMarkImportant:
			f.Action.AddLabelIDs = appendIfMissing(f.Action.AddLabelIDs, LabelImportant)
		case filter.ActTrash:
			f.Action.AddLabelIDs = appendIfMissing(f.Action.AddLabelIDs, LabelTrash)
		case filter.ActArchive:
			f.Action.RemoveLabelIDs = appendIfMissing(f.Action.RemoveLabelIDs, LabelInbox)
		case filter.ActNeverSpam:
			f.Action.RemoveLabelIDs = appendIfMissing(f.Action.RemoveLabelIDs, LabelSpam)
		default:
			return Filter{}, fmt.Errorf("unknown property %q", p.Name)
		}
	}
	f.Name = describeCriteria(f.Criteria)
	f.ID = uuid.NewSHA1(idSpace, []byte("filter:"+canonical(f))).String()
	return f, nil
}

// canonical is the identity of a filter: identical criteria and actions
// always yield the same ID.
func canonical(f Filter) string {
	parts := []string{
		"from=" + f.Criteria.From,
		"to=" + f.Criteria.To,
		"subject=" + f.Criteria.Subject,
		"query=" + f.Criteria.Query,
		"negated=" + f.Criteria.NegatedQuery,
		"add=" + strings.Join(f.Action.AddLabelIDs, ","),
		"remove=" + strings.Join(f.Action.RemoveLabelIDs, ","),
	}
	return strings.Join(parts, "\x00")
}

func describeCriteria(c FilterCriteria) string {
	if c.From != "" {
		return "from:" + strings.TrimSpace(c.From)
	}
	if c.To != "" {
		return "to:" + strings.TrimSpace(c.To)
	}
	if c.Subject != "" {
		return "subject:" + strings.TrimSpace(c.Subject)
	}
	if c.Query != "" {
		return strings.TrimSpace(c.Query)
	}
	if c.NegatedQuery != "" {
		return "-" + strings.TrimSpace(c.NegatedQuery)
	}
	return "all-mail"
}

// APIFilters converts the export into Gmail API users.settings.filters
// resources.
func (e Export) APIFilters() []*gmail.Filter {
	out := make([]*gmail.Filter, 0, len(e.Filters))
	for _, f := range e.Filters {
		out = append(out, &gmail.Filter{
			Id: f.ID,
			Criteria: &gmail.FilterCriteria{
				From:         f.Criteria.From,
				To:           f.Criteria.To,
				Subject:      f.Criteria.Subject,
				Query:        f.Criteria.Query,
				NegatedQuery: f.Criteria.NegatedQuery,
			},
			Action: &gmail.FilterAction{
				AddLabelIds:    f.Action.AddLabelIDs,
				RemoveLabelIds: f.Action.RemoveLabelIDs,
			},
		})
	}
	return out
}

// Indented encodes the export with two-space indentation.
func (e Export) Indented() ([]byte, error) {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return append(b, '\n'), nil
}

// IndentedAPI encodes APIFilters with two-space indentation.
func (e Export) IndentedAPI() ([]byte, error) {
	b, err := json.MarshalIndent(e.APIFilters(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode api filters: %w", err)
	}
	return append(b, '\n'), nil
}

func appendIfMissing(slice []string, val string) []string {
	if slices.Contains(slice, val) {
		return slice
	}
	return append(slice, val)
}
