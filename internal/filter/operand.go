package filter

import (
	"fmt"
	"strings"
)

// Operand is what Not and Or combine: either a Text search expression or a
// *Builder, in which case its most recently added condition is used.
type Operand interface {
	operand()
}

// Text is a raw search-syntax expression.
type Text string

func (Text) operand()     {}
func (*Builder) operand() {}

// Exact wraps phrase in double quotes so Gmail matches it verbatim.
func Exact(phrase string) string {
	return `"` + phrase + `"`
}

// NotText negates a search term. Negation is textual: NotText(NotText("a"))
// is "--a".
func NotText(term string) string {
	return "-" + term
}

// OrText joins terms into a parenthesized disjunction.
func OrText(terms ...string) string {
	return "(" + strings.Join(terms, " OR ") + ")"
}

// Not negates an operand. For a Text it returns the negated Text. For a
// *Builder it returns a new *Builder, derived from the operand owner's active
// filter, whose final condition is the operand's last condition negated.
func Not(op Operand) (Operand, error) {
	switch v := op.(type) {
	case Text:
		return Text(NotText(string(v))), nil
	case *Builder:
		if v == nil {
			return nil, fmt.Errorf("%w: nil builder", ErrUnsupportedOperand)
		}
		last, ok := v.Last()
		if !ok {
			return nil, fmt.Errorf("not: %w", ErrEmptyConditions)
		}
		return v.base().with(last.Name, NotText(last.Value)), nil
	default:
		return nil, fmt.Errorf("%w: not %T", ErrUnsupportedOperand, op)
	}
}

// Or builds a disjunction. All operands must be of the same kind. Builder
// operands must end in conditions sharing one name; the result carries the
// merged condition under that name.
func Or(ops ...Operand) (Operand, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: or needs at least one operand", ErrUnsupportedOperand)
	}
	switch first := ops[0].(type) {
	case Text:
		terms := make([]string, 0, len(ops))
		for i, op := range ops {
			t, ok := op.(Text)
			if !ok {
				return nil, fmt.Errorf("%w: operand %d is %T, want Text", ErrMismatchedKind, i, op)
			}
			terms = append(terms, string(t))
		}
		return Text(OrText(terms...)), nil
	case *Builder:
		if first == nil {
			return nil, fmt.Errorf("%w: nil builder", ErrUnsupportedOperand)
		}
		var name ConditionName
		terms := make([]string, 0, len(ops))
		for i, op := range ops {
			b, ok := op.(*Builder)
			if !ok {
				return nil, fmt.Errorf("%w: operand %d is %T, want *Builder", ErrMismatchedKind, i, op)
			}
			if b == nil {
				return nil, fmt.Errorf("%w: nil builder", ErrUnsupportedOperand)
			}
			last, ok := b.Last()
			if !ok {
				return nil, fmt.Errorf("or operand %d: %w", i, ErrEmptyConditions)
			}
			if i == 0 {
				name = last.Name
			} else if last.Name != name {
				return nil, fmt.Errorf("%w: %q and %q", ErrMismatchedKind, name, last.Name)
			}
			terms = append(terms, last.Value)
		}
		return first.base().with(name, OrText(terms...)), nil
	default:
		return nil, fmt.Errorf("%w: or %T", ErrUnsupportedOperand, first)
	}
}
