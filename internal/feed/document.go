// Package feed owns the stack of filters under construction and the Atom
// document finalized filters are written to.
package feed

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joshsymonds/gefilte/internal/filter"
)

// ErrIncomplete is returned by Render when a scope failed or a filter was
// closed out of order. No partial document is produced.
var ErrIncomplete = errors.New("filter document incomplete")

// ErrInvalidValue is returned when a property value cannot be written as XML
// without altering it: invalid UTF-8 or a character outside the XML Char set.
var ErrInvalidValue = errors.New("value not representable in XML")

// Generator identifies the tool in the document's provenance comment.
type Generator struct {
	Name    string
	Version string
	URL     string
}

// DefaultGenerator describes this module.
func DefaultGenerator() Generator {
	return Generator{Name: "gefilte", Version: "dev", URL: "https://github.com/joshsymonds/gefilte"}
}

func (g Generator) comment() string {
	return fmt.Sprintf(" Made by %s %s: %s ", g.Name, g.Version, g.URL)
}

// Property is one apps:property of an entry.
type Property struct {
	Name  string
	Value string
}

// Entry is one finalized filter: condition groups first, then actions.
type Entry struct {
	Properties []Property
}

// Option customizes a Document.
type Option func(*Document)

// WithGenerator overrides the provenance comment.
func WithGenerator(g Generator) Option {
	return func(d *Document) { d.gen = g }
}

// WithLogger sets the logger used for finalize/drop events.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// Document is the filter collection. It is not safe for concurrent use.
type Document struct {
	gen     Generator
	logger  *slog.Logger
	stack   []*filter.Builder
	entries []Entry
	err     error
}

var (
	_ filter.Stack    = (*Document)(nil)
	_ filter.Declarer = (*Document)(nil)
)

// New returns a document whose stack holds one empty root filter.
func New(opts ...Option) *Document {
	d := &Document{
		gen:    DefaultGenerator(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.stack = []*filter.Builder{filter.New(d)}
	return d
}

// Active returns the filter at the top of the stack.
func (d *Document) Active() *filter.Builder {
	return d.stack[len(d.stack)-1]
}

// Depth reports how many filters are open, including the root.
func (d *Document) Depth() int {
	return len(d.stack)
}

// Push makes b the active filter.
func (d *Document) Push(b *filter.Builder) {
	d.stack = append(d.stack, b)
}

// Finish closes b, which must be the active filter, and appends its entry
// when it has at least one action. A value that XML cannot carry verbatim
// fails the document.
func (d *Document) Finish(b *filter.Builder) error {
	if err := d.pop(b); err != nil {
		return err
	}
	actions := b.Actions()
	if len(actions) == 0 {
		d.logger.Debug("filter dropped: no actions", slog.Int("conditions", len(b.Conditions())))
		return nil
	}
	entry := entryFor(b.Groups(), actions)
	for _, p := range entry.Properties {
		if err := checkText(p.Value); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrInvalidValue, p.Name, err)
			d.fail(err)
			return err
		}
	}
	d.entries = append(d.entries, entry)
	d.logger.Debug(
		"filter finalized",
		slog.Int("entry", len(d.entries)),
		slog.Int("conditions", len(b.Conditions())),
		slog.Int("actions", len(actions)),
	)
	return nil
}

// Discard closes b without writing an entry and marks the document failed.
func (d *Document) Discard(b *filter.Builder, cause error) error {
	d.fail(cause)
	d.logger.Debug("filter discarded", slog.Any("cause", cause))
	return d.pop(b)
}

func (d *Document) pop(b *filter.Builder) error {
	if len(d.stack) < 2 || d.Active() != b {
		err := fmt.Errorf("%w: closed filter is not the active one (depth %d)", filter.ErrStateViolation, len(d.stack))
		d.fail(err)
		return err
	}
	d.stack = d.stack[:len(d.stack)-1]
	return nil
}

func (d *Document) fail(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

// Err returns the first failure recorded on the document.
func (d *Document) Err() error {
	return d.err
}

// Within runs fn with b as the active filter, see filter.Builder.Within.
// b must belong to d.
func (d *Document) Within(b *filter.Builder, fn func(b *filter.Builder) error) error {
	if b.Owner() != filter.Stack(d) {
		return fmt.Errorf("%w: builder belongs to another document", filter.ErrStateViolation)
	}
	return b.Within(fn)
}

// Add declares b as a complete filter: it is pushed and finished at once.
func (d *Document) Add(b *filter.Builder) error {
	return d.Within(b, func(*filter.Builder) error { return nil })
}

// Entries returns the finalized entries in declaration order.
func (d *Document) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	for i, e := range d.entries {
		out[i] = Entry{Properties: append([]Property(nil), e.Properties...)}
	}
	return out
}

// Render serializes the whole document. Repeated calls without new entries
// produce identical output.
func (d *Document) Render() (string, error) {
	b, err := d.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Bytes is Render without the string conversion.
func (d *Document) Bytes() ([]byte, error) {
	if d.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncomplete, d.err)
	}
	return marshalFeed(d.tree())
}

func entryFor(groups []filter.Condition, actions []filter.Action) Entry {
	props := make([]Property, 0, len(groups)+len(actions))
	for _, c := range groups {
		props = append(props, Property{Name: string(c.Name), Value: c.Value})
	}
	for _, a := range actions {
		props = append(props, Property{Name: string(a.Name), Value: a.Value})
	}
	return Entry{Properties: props}
}

// The Declarer methods forward to the active filter so top-level
// declarations read the same as scoped ones.

func (d *Document) Has(words string) *filter.Builder     { return d.Active().Has(words) }
func (d *Document) Subject(words string) *filter.Builder { return d.Active().Subject(words) }
func (d *Document) HasNot(words string) *filter.Builder  { return d.Active().HasNot(words) }
func (d *Document) From(words string) *filter.Builder    { return d.Active().From(words) }
func (d *Document) To(words string) *filter.Builder      { return d.Active().To(words) }
func (d *Document) Cc(words string) *filter.Builder      { return d.Active().Cc(words) }
func (d *Document) Bcc(words string) *filter.Builder     { return d.Active().Bcc(words) }
func (d *Document) ReplyTo(words string) *filter.Builder { return d.Active().ReplyTo(words) }
func (d *Document) List(words string) *filter.Builder    { return d.Active().List(words) }

func (d *Document) Where(c filter.Condition) *filter.Builder { return d.Active().Where(c) }

func (d *Document) Elif(other *filter.Builder) (*filter.Builder, error) {
	return d.Active().Elif(other)
}

func (d *Document) Else() (*filter.Builder, error) { return d.Active().Else() }

func (d *Document) Label(text string) *filter.Builder { return d.Active().Label(text) }
func (d *Document) Star() *filter.Builder             { return d.Active().Star() }
func (d *Document) NeverSpam() *filter.Builder        { return d.Active().NeverSpam() }
func (d *Document) SkipInbox() *filter.Builder        { return d.Active().SkipInbox() }
func (d *Document) MarkImportant() *filter.Builder    { return d.Active().MarkImportant() }
func (d *Document) Delete() *filter.Builder           { return d.Active().Delete() }
