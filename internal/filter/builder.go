// Package filter implements the Gmail filter builder: chainable conditions,
// in-place actions, and the negation/disjunction/elif combinators.
package filter

import (
	"errors"
	"fmt"
)

// Stack is the owning document of a builder. Builders are pushed when a
// scope opens and finished or discarded when it closes.
type Stack interface {
	Push(b *Builder)
	Finish(b *Builder) error
	Discard(b *Builder, cause error) error
	Active() *Builder
}

// Declarer is the DSL surface shared by *Builder and the document, which
// forwards every call to its active builder.
type Declarer interface {
	Has(words string) *Builder
	Subject(words string) *Builder
	HasNot(words string) *Builder
	From(words string) *Builder
	To(words string) *Builder
	Cc(words string) *Builder
	Bcc(words string) *Builder
	ReplyTo(words string) *Builder
	List(words string) *Builder
	Where(c Condition) *Builder
	Elif(other *Builder) (*Builder, error)
	Else() (*Builder, error)

	Label(text string) *Builder
	Star() *Builder
	NeverSpam() *Builder
	SkipInbox() *Builder
	MarkImportant() *Builder
	Delete() *Builder
}

// Builder holds one filter under construction. Condition methods return a
// new Builder with an empty action list; action methods append to the
// receiver and return it.
type Builder struct {
	owner      Stack
	conditions []Condition
	actions    []Action
}

var _ Declarer = (*Builder)(nil)

// New returns an empty builder owned by s. A nil owner yields a detached
// builder that cannot open a scope.
func New(s Stack) *Builder {
	return &Builder{owner: s}
}

// Conditions returns a copy of the builder's conditions in declaration order.
func (b *Builder) Conditions() []Condition {
	return append([]Condition(nil), b.conditions...)
}

// Actions returns a copy of the builder's actions in declaration order.
func (b *Builder) Actions() []Action {
	return append([]Action(nil), b.actions...)
}

// Groups returns the conditions collapsed by name, see Groups.
func (b *Builder) Groups() []Condition {
	return Groups(b.conditions)
}

// Last returns the most recently added condition.
func (b *Builder) Last() (Condition, bool) {
	if len(b.conditions) == 0 {
		return Condition{}, false
	}
	return b.conditions[len(b.conditions)-1], true
}

// Owner returns the document the builder belongs to, if any.
func (b *Builder) Owner() Stack {
	return b.owner
}

// Fork returns a builder with the receiver's conditions and no actions.
func (b *Builder) Fork() *Builder {
	return &Builder{owner: b.owner, conditions: b.Conditions()}
}

func (b *Builder) with(name ConditionName, value string) *Builder {
	conds := make([]Condition, 0, len(b.conditions)+1)
	conds = append(conds, b.conditions...)
	conds = append(conds, Condition{Name: name, Value: value})
	return &Builder{owner: b.owner, conditions: conds}
}

// base is what Not and Or derive their result from: the owner's active
// filter, so combinators used inside a scope inherit its conditions.
func (b *Builder) base() *Builder {
	if b.owner != nil {
		if active := b.owner.Active(); active != nil {
			return active
		}
	}
	return &Builder{owner: b.owner}
}

// Has matches messages containing words anywhere.
func (b *Builder) Has(words string) *Builder { return b.with(CondHasTheWord, words) }

// Subject matches words in the subject line.
func (b *Builder) Subject(words string) *Builder { return b.with(CondSubject, words) }

// HasNot excludes messages containing words.
func (b *Builder) HasNot(words string) *Builder { return b.with(CondDoesNotHaveWord, words) }

// From matches the sender.
func (b *Builder) From(words string) *Builder { return b.with(CondFrom, words) }

// To matches the recipient.
func (b *Builder) To(words string) *Builder { return b.with(CondTo, words) }

// Cc matches carbon-copied recipients via the cc: search operator.
func (b *Builder) Cc(words string) *Builder { return b.Has("cc:(" + words + ")") }

// Bcc matches blind-copied recipients via the bcc: search operator.
func (b *Builder) Bcc(words string) *Builder { return b.Has("bcc:(" + words + ")") }

// ReplyTo matches the Reply-To header via the replyto: search operator.
func (b *Builder) ReplyTo(words string) *Builder { return b.Has("replyto:(" + words + ")") }

// List matches mailing-list mail via the list: search operator.
func (b *Builder) List(words string) *Builder { return b.Has("list:(" + words + ")") }

// Where appends an arbitrary condition. Names outside the vocabulary are
// serialized as given; callers validate with ConditionName.Valid.
func (b *Builder) Where(c Condition) *Builder {
	return b.with(c.Name, c.Value)
}

// Elif chains a mutually exclusive branch: the receiver's last condition is
// negated and other's last condition is appended.
func (b *Builder) Elif(other *Builder) (*Builder, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: elif of nil builder", ErrUnsupportedOperand)
	}
	last, ok := b.Last()
	if !ok {
		return nil, fmt.Errorf("elif: %w", ErrEmptyConditions)
	}
	next, ok := other.Last()
	if !ok {
		return nil, fmt.Errorf("elif branch: %w", ErrEmptyConditions)
	}
	conds := make([]Condition, 0, len(b.conditions)+1)
	conds = append(conds, b.conditions[:len(b.conditions)-1]...)
	conds = append(conds, Condition{Name: last.Name, Value: NotText(last.Value)}, next)
	return &Builder{owner: b.owner, conditions: conds}, nil
}

// Else returns the catch-all branch: the receiver with its last condition
// negated.
func (b *Builder) Else() (*Builder, error) {
	last, ok := b.Last()
	if !ok {
		return nil, fmt.Errorf("else: %w", ErrEmptyConditions)
	}
	conds := make([]Condition, 0, len(b.conditions))
	conds = append(conds, b.conditions[:len(b.conditions)-1]...)
	conds = append(conds, Condition{Name: last.Name, Value: NotText(last.Value)})
	return &Builder{owner: b.owner, conditions: conds}, nil
}

func (b *Builder) addAction(name ActionName, value string) *Builder {
	b.actions = append(b.actions, Action{Name: name, Value: value})
	return b
}

// Label applies the label text. Calling it twice applies both labels.
func (b *Builder) Label(text string) *Builder { return b.addAction(ActLabel, text) }

// Star stars matching messages.
func (b *Builder) Star() *Builder { return b.addAction(ActStar, flagValue) }

// NeverSpam keeps matching messages out of spam.
func (b *Builder) NeverSpam() *Builder { return b.addAction(ActNeverSpam, flagValue) }

// SkipInbox archives matching messages.
func (b *Builder) SkipInbox() *Builder { return b.addAction(ActArchive, flagValue) }

// MarkImportant always marks matching messages as important.
func (b *Builder) MarkImportant() *Builder { return b.addAction(ActMarkImportant, flagValue) }

// Delete moves matching messages to the trash.
func (b *Builder) Delete() *Builder { return b.addAction(ActTrash, flagValue) }

// errScopePanicked is recorded on the owner when fn panics inside Within.
var errScopePanicked = errors.New("scope panicked")

// Within opens a scope: b becomes the owner's active filter while fn runs.
// When fn returns nil, b is finished (serialized if it has actions). When fn
// returns an error or panics, b is discarded and the owner is marked failed.
func (b *Builder) Within(fn func(b *Builder) error) (err error) {
	if b.owner == nil {
		return fmt.Errorf("%w: builder has no owning document", ErrStateViolation)
	}
	b.owner.Push(b)
	closed := false
	defer func() {
		if closed {
			return
		}
		cause := err
		if cause == nil {
			cause = errScopePanicked
		}
		if derr := b.owner.Discard(b, cause); derr != nil {
			err = errors.Join(err, derr)
		}
	}()
	if err = fn(b); err != nil {
		return err
	}
	closed = true
	return b.owner.Finish(b)
}
