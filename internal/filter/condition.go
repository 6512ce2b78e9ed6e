package filter

import "strings"

// ConditionName is the Gmail property name a condition serializes under.
type ConditionName string

const (
	CondHasTheWord      ConditionName = "hasTheWord"
	CondDoesNotHaveWord ConditionName = "doesNotHaveTheWord"
	CondSubject         ConditionName = "subject"
	CondFrom            ConditionName = "from"
	CondTo              ConditionName = "to"
)

// Valid reports whether n belongs to the condition vocabulary.
func (n ConditionName) Valid() bool {
	switch n {
	case CondHasTheWord, CondDoesNotHaveWord, CondSubject, CondFrom, CondTo:
		return true
	default:
		return false
	}
}

// Condition is one search predicate. Value uses Gmail search syntax.
type Condition struct {
	Name  ConditionName
	Value string
}

// ActionName is the Gmail property name an action serializes under.
type ActionName string

const (
	ActLabel         ActionName = "label"
	ActStar          ActionName = "shouldStar"
	ActNeverSpam     ActionName = "shouldNeverSpam"
	ActArchive       ActionName = "shouldArchive"
	ActMarkImportant ActionName = "shouldAlwaysMarkAsImportant"
	ActTrash         ActionName = "shouldTrash"
)

// Action is one effect applied to matching messages.
type Action struct {
	Name  ActionName
	Value string
}

const flagValue = "true"

// Groups collapses conditions sharing a name into one condition whose value
// joins their values with a single space. Names keep first-seen order.
func Groups(conds []Condition) []Condition {
	order := make([]ConditionName, 0, len(conds))
	values := make(map[ConditionName][]string, len(conds))
	for _, c := range conds {
		if _, ok := values[c.Name]; !ok {
			order = append(order, c.Name)
		}
		values[c.Name] = append(values[c.Name], c.Value)
	}
	out := make([]Condition, 0, len(order))
	for _, name := range order {
		out = append(out, Condition{Name: name, Value: strings.Join(values[name], " ")})
	}
	return out
}
