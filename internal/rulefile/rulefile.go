// Package rulefile reads filter declarations from YAML and replays them
// through the filter DSL onto a feed.Document.
package rulefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/joshsymonds/gefilte/internal/filter"
)

// File is the top-level rules document.
type File struct {
	Filters []Rule `yaml:"filters"`
}

// Terms is one or more search expressions. A YAML list is OR-combined.
type Terms []string

// UnmarshalYAML accepts either a scalar or a sequence of scalars.
func (t *Terms) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*t = Terms{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*t = Terms(items)
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", value.Line)
	}
}

// Rule is one filter declaration. Conditions are applied in field order,
// after Not and Any.
type Rule struct {
	Name string `yaml:"name"`

	Has     Terms `yaml:"has"`
	HasNot  Terms `yaml:"hasnot"`
	Subject Terms `yaml:"subject"`
	From    Terms `yaml:"from"`
	To      Terms `yaml:"to"`
	Cc      Terms `yaml:"cc"`
	Bcc     Terms `yaml:"bcc"`
	ReplyTo Terms `yaml:"replyto"`
	List    Terms `yaml:"list"`
	Exact   bool  `yaml:"exact"`

	Not *Rule  `yaml:"not"`
	Any []Rule `yaml:"any"`

	Label         Terms `yaml:"label"`
	Star          bool  `yaml:"star"`
	NeverSpam     bool  `yaml:"never_spam"`
	SkipInbox     bool  `yaml:"skip_inbox"`
	MarkImportant bool  `yaml:"mark_important"`
	Delete        bool  `yaml:"delete"`

	Filters []Rule `yaml:"filters"`
	Elif    []Rule `yaml:"elif"`
	Else    *Rule  `yaml:"else"`
}

// Load reads and validates a rules file from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path) // #nosec G304 - path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	rf, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return rf, nil
}

// Parse decodes and validates a rules document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var rf File
	if err := dec.Decode(&rf); err != nil {
		if errors.Is(err, io.EOF) {
			return &rf, nil
		}
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := rf.Validate(); err != nil {
		return nil, err
	}
	return &rf, nil
}

// Validate checks structural constraints across the whole file and reports
// every problem found.
func (f *File) Validate() error {
	var result *multierror.Error
	for i := range f.Filters {
		result = multierror.Append(result, f.Filters[i].validate(fmt.Sprintf("filters[%d]", i))...)
	}
	return result.ErrorOrNil()
}

func (r *Rule) validate(path string) []error {
	var errs []error
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{path}, args...)...))
	}

	for _, name := range r.emptyTerms() {
		addf("%s has an empty term", name)
	}
	if r.Not != nil {
		if n := r.Not.conditionCount(); n != 1 {
			addf("not must declare exactly one condition, got %d", n)
		}
		if r.Not.hasBody() {
			addf("not must not declare actions or nested filters")
		}
		errs = append(errs, r.Not.validate(path+".not")...)
	}
	var anyName filter.ConditionName
	for i := range r.Any {
		sub := &r.Any[i]
		if n := sub.conditionCount(); n != 1 {
			addf("any[%d] must declare exactly one condition, got %d", i, n)
			continue
		}
		if sub.hasBody() {
			addf("any[%d] must not declare actions or nested filters", i)
		}
		errs = append(errs, sub.validate(fmt.Sprintf("%s.any[%d]", path, i))...)
		name := sub.lastProperty()
		switch {
		case name == "":
		case anyName == "":
			anyName = name
		case name != anyName:
			addf("any[%d] serializes as %s, earlier branches as %s", i, name, anyName)
		}
	}
	if len(r.Elif) > 0 || r.Else != nil {
		if r.conditionCount() == 0 {
			addf("elif/else need a condition on the rule itself")
		}
	}
	for i := range r.Elif {
		sub := &r.Elif[i]
		p := fmt.Sprintf("%s.elif[%d]", path, i)
		if n := sub.conditionCount(); n != 1 {
			errs = append(errs, fmt.Errorf("%s: must declare exactly one condition, got %d", p, n))
		}
		if len(sub.Elif) > 0 || sub.Else != nil {
			errs = append(errs, fmt.Errorf("%s: chain elif branches on the parent rule", p))
		}
		errs = append(errs, sub.validate(p)...)
	}
	if r.Else != nil {
		p := path + ".else"
		if n := r.Else.conditionCount(); n != 0 {
			errs = append(errs, fmt.Errorf("%s: must not declare conditions, got %d", p, n))
		}
		errs = append(errs, r.Else.validate(p)...)
	}
	errs = append(errs, r.validateChildren(path)...)
	return errs
}

func (r *Rule) validateChildren(path string) []error {
	var errs []error
	for i := range r.Filters {
		errs = append(errs, r.Filters[i].validate(fmt.Sprintf("%s.filters[%d]", path, i))...)
	}
	return errs
}

// termFields lists condition fields in the order they are applied.
func (r *Rule) termFields() []struct {
	key   string
	terms Terms
} {
	return []struct {
		key   string
		terms Terms
	}{
		{"has", r.Has},
		{"hasnot", r.HasNot},
		{"subject", r.Subject},
		{"from", r.From},
		{"to", r.To},
		{"cc", r.Cc},
		{"bcc", r.Bcc},
		{"replyto", r.ReplyTo},
		{"list", r.List},
	}
}

func (r *Rule) conditionKeys() []string {
	var keys []string
	if r.Not != nil {
		keys = append(keys, "not")
	}
	if len(r.Any) > 0 {
		keys = append(keys, "any")
	}
	for _, f := range r.termFields() {
		if len(f.terms) > 0 {
			keys = append(keys, f.key)
		}
	}
	return keys
}

func (r *Rule) conditionCount() int {
	return len(r.conditionKeys())
}

func (r *Rule) emptyTerms() []string {
	var names []string
	for _, f := range r.termFields() {
		for _, term := range f.terms {
			if strings.TrimSpace(term) == "" {
				names = append(names, f.key)
				break
			}
		}
	}
	for _, l := range r.Label {
		if strings.TrimSpace(l) == "" {
			names = append(names, "label")
			break
		}
	}
	return names
}

func (r *Rule) hasActions() bool {
	return len(r.Label) > 0 || r.Star || r.NeverSpam || r.SkipInbox || r.MarkImportant || r.Delete
}

func (r *Rule) hasBody() bool {
	return r.hasActions() || len(r.Filters) > 0 || len(r.Elif) > 0 || r.Else != nil
}

// lastProperty is the property the rule's final condition serializes under,
// matching the order builder applies them in: not, any, then term fields.
// has, cc, bcc, replyto and list all resolve to hasTheWord.
func (r *Rule) lastProperty() filter.ConditionName {
	fields := r.termFields()
	for i := len(fields) - 1; i >= 0; i-- {
		if len(fields[i].terms) > 0 {
			return conditionFor(fields[i].key)
		}
	}
	if len(r.Any) > 0 {
		return r.Any[0].lastProperty()
	}
	if r.Not != nil {
		return r.Not.lastProperty()
	}
	return ""
}
