package rulefile

import (
	"fmt"

	"github.com/joshsymonds/gefilte/internal/feed"
	"github.com/joshsymonds/gefilte/internal/filter"
)

// Declare replays every rule onto d in file order.
func (f *File) Declare(d *feed.Document) error {
	for i := range f.Filters {
		if err := f.Filters[i].declare(d); err != nil {
			return fmt.Errorf("filters[%d]: %w", i, err)
		}
	}
	return nil
}

func (r *Rule) declare(d *feed.Document) error {
	b, err := r.builder(d)
	if err != nil {
		return r.wrap(err)
	}
	if err := r.scope(d, b); err != nil {
		return r.wrap(err)
	}
	prev := b
	for i := range r.Elif {
		branch, err := r.Elif[i].builder(d)
		if err != nil {
			return r.wrap(fmt.Errorf("elif[%d]: %w", i, err))
		}
		next, err := prev.Elif(branch)
		if err != nil {
			return r.wrap(fmt.Errorf("elif[%d]: %w", i, err))
		}
		if err := r.Elif[i].scope(d, next); err != nil {
			return r.wrap(fmt.Errorf("elif[%d]: %w", i, err))
		}
		prev = next
	}
	if r.Else == nil {
		return nil
	}
	next, err := prev.Else()
	if err != nil {
		return r.wrap(fmt.Errorf("else: %w", err))
	}
	if err := r.Else.scope(d, next); err != nil {
		return r.wrap(fmt.Errorf("else: %w", err))
	}
	return nil
}

func (r *Rule) wrap(err error) error {
	if r.Name == "" {
		return err
	}
	return fmt.Errorf("%s: %w", r.Name, err)
}

// builder derives the rule's filter from the document's active filter.
func (r *Rule) builder(d *feed.Document) (*filter.Builder, error) {
	b := d.Active().Fork()
	if r.Not != nil {
		sub, err := r.Not.builder(d)
		if err != nil {
			return nil, err
		}
		neg, err := filter.Not(sub)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		if b, err = appendLast(b, neg); err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
	}
	if len(r.Any) > 0 {
		ops := make([]filter.Operand, 0, len(r.Any))
		for i := range r.Any {
			sub, err := r.Any[i].builder(d)
			if err != nil {
				return nil, fmt.Errorf("any[%d]: %w", i, err)
			}
			ops = append(ops, sub)
		}
		merged, err := filter.Or(ops...)
		if err != nil {
			return nil, fmt.Errorf("any: %w", err)
		}
		if b, err = appendLast(b, merged); err != nil {
			return nil, fmt.Errorf("any: %w", err)
		}
	}
	for _, f := range r.termFields() {
		if len(f.terms) == 0 {
			continue
		}
		b = applyCondition(b, f.key, r.expression(f.terms))
	}
	return b, nil
}

func appendLast(b *filter.Builder, op filter.Operand) (*filter.Builder, error) {
	ob, ok := op.(*filter.Builder)
	if !ok {
		return nil, fmt.Errorf("%w: expected a builder, got %T", filter.ErrUnsupportedOperand, op)
	}
	last, ok := ob.Last()
	if !ok {
		return nil, filter.ErrEmptyConditions
	}
	return b.Where(last), nil
}

func (r *Rule) expression(terms Terms) string {
	vals := make([]string, 0, len(terms))
	for _, term := range terms {
		if r.Exact {
			term = filter.Exact(term)
		}
		vals = append(vals, term)
	}
	if len(vals) == 1 {
		return vals[0]
	}
	return filter.OrText(vals...)
}

func applyCondition(b *filter.Builder, key, value string) *filter.Builder {
	switch key {
	case "has":
		return b.Has(value)
	case "hasnot":
		return b.HasNot(value)
	case "subject":
		return b.Subject(value)
	case "from":
		return b.From(value)
	case "to":
		return b.To(value)
	case "cc":
		return b.Cc(value)
	case "bcc":
		return b.Bcc(value)
	case "replyto":
		return b.ReplyTo(value)
	case "list":
		return b.List(value)
	default:
		panic("rulefile: unknown condition key " + key)
	}
}

// conditionFor maps a rule key to the property it serializes under.
func conditionFor(key string) filter.ConditionName {
	switch key {
	case "has", "cc", "bcc", "replyto", "list":
		return filter.CondHasTheWord
	case "hasnot":
		return filter.CondDoesNotHaveWord
	case "subject":
		return filter.CondSubject
	case "from":
		return filter.CondFrom
	case "to":
		return filter.CondTo
	default:
		return ""
	}
}

func (r *Rule) applyActions(b *filter.Builder) {
	for _, l := range r.Label {
		b.Label(l)
	}
	if r.Star {
		b.Star()
	}
	if r.NeverSpam {
		b.NeverSpam()
	}
	if r.SkipInbox {
		b.SkipInbox()
	}
	if r.MarkImportant {
		b.MarkImportant()
	}
	if r.Delete {
		b.Delete()
	}
}

// scope opens b, applies the rule's actions, and declares nested rules so
// they inherit b's conditions.
func (r *Rule) scope(d *feed.Document, b *filter.Builder) error {
	return d.Within(b, func(b *filter.Builder) error {
		r.applyActions(b)
		for i := range r.Filters {
			if err := r.Filters[i].declare(d); err != nil {
				return fmt.Errorf("filters[%d]: %w", i, err)
			}
		}
		return nil
	})
}
