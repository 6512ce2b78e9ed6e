package filter

import "errors"

// All of these signal misuse of the DSL rather than operational failures.
var (
	// ErrStateViolation reports a filter closed out of stack order or a scope
	// opened on a builder with no owning document.
	ErrStateViolation = errors.New("filter stack violation")
	// ErrUnsupportedOperand reports an operand outside {Text, *Builder}.
	ErrUnsupportedOperand = errors.New("unsupported operand")
	// ErrMismatchedKind reports a disjunction over mixed operand kinds or over
	// builders whose trailing conditions have different names.
	ErrMismatchedKind = errors.New("mismatched operand kinds")
	// ErrEmptyConditions reports a combinator applied to a builder with no
	// conditions.
	ErrEmptyConditions = errors.New("builder has no conditions")
)
