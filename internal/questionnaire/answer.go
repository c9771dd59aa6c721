package questionnaire

// Answer is the current value of one step. The concrete type depends on the
// step's cardinality: SingleAnswer, MultiAnswer or ExclusiveAnswer.
//
// Answers are immutable values. Every mutation produces a new Answer.
type Answer interface {
	// Values returns the selected option values in selection order
	Values() []string
	// Answered reports whether the answer holds at least one value
	Answered() bool

	cardinality() Cardinality
}

// SingleAnswer holds at most one selected value
type SingleAnswer struct {
	value string
}

// Unanswered returns an empty single answer
func Unanswered() SingleAnswer {
	return SingleAnswer{}
}

// Selected returns a single answer holding value
func Selected(value string) SingleAnswer {
	return SingleAnswer{value: value}
}

// Value returns the selected value and whether one is set
func (a SingleAnswer) Value() (string, bool) {
	return a.value, a.value != ""
}

func (a SingleAnswer) Values() []string {
	if a.value == "" {
		return nil
	}
	return []string{a.value}
}

func (a SingleAnswer) Answered() bool           { return a.value != "" }
func (a SingleAnswer) cardinality() Cardinality { return CardinalitySingle }

// MultiAnswer is an ordered set of values. It may be empty.
type MultiAnswer struct {
	values []string
}

// NewMultiAnswer builds a multi answer, dropping duplicates
func NewMultiAnswer(values ...string) MultiAnswer {
	var out []string
	for _, v := range values {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return MultiAnswer{values: out}
}

// Contains reports whether value is selected
func (a MultiAnswer) Contains(value string) bool {
	return contains(a.values, value)
}

func (a MultiAnswer) with(value string) MultiAnswer {
	if a.Contains(value) {
		return a
	}
	return MultiAnswer{values: append(cloneValues(a.values), value)}
}

func (a MultiAnswer) without(value string) MultiAnswer {
	return MultiAnswer{values: remove(a.values, value)}
}

func (a MultiAnswer) Values() []string {
	return cloneValues(a.values)
}

func (a MultiAnswer) Answered() bool           { return len(a.values) > 0 }
func (a MultiAnswer) cardinality() Cardinality { return CardinalityMulti }

// ExclusiveState is the state of an ExclusiveAnswer
type ExclusiveState int

const (
	// NoneSelected means only the none option is selected
	NoneSelected ExclusiveState = iota
	// OthersSelected means one or more non-none options are selected
	OthersSelected
)

func (s ExclusiveState) String() string {
	if s == OthersSelected {
		return "others_selected"
	}
	return "none_selected"
}

// ExclusiveAnswer is the answer of a MULTI_WITH_NONE step. It is either
// exactly {none} or a non-empty set of non-none values. The constructors
// are the only way to build one, so an empty set or none mixed with other
// values cannot be represented.
type ExclusiveAnswer struct {
	none   string
	others []string
}

// NoneAnswer returns the {none} state
func NoneAnswer(none string) ExclusiveAnswer {
	return ExclusiveAnswer{none: none}
}

// OthersAnswer returns the OthersSelected state with the given values.
// The none value and duplicates are dropped; if nothing remains the
// answer falls back to {none}.
func OthersAnswer(none string, values ...string) ExclusiveAnswer {
	var others []string
	for _, v := range values {
		if v == none || contains(others, v) {
			continue
		}
		others = append(others, v)
	}
	return ExclusiveAnswer{none: none, others: others}
}

// State returns which of the two states the answer is in
func (a ExclusiveAnswer) State() ExclusiveState {
	if len(a.others) == 0 {
		return NoneSelected
	}
	return OthersSelected
}

// None returns the sentinel value of the answer
func (a ExclusiveAnswer) None() string {
	return a.none
}

// Contains reports whether value is selected
func (a ExclusiveAnswer) Contains(value string) bool {
	if a.State() == NoneSelected {
		return value == a.none
	}
	return contains(a.others, value)
}

func (a ExclusiveAnswer) Values() []string {
	if a.State() == NoneSelected {
		return []string{a.none}
	}
	return cloneValues(a.others)
}

// Answered is always true: the set is never empty
func (a ExclusiveAnswer) Answered() bool           { return true }
func (a ExclusiveAnswer) cardinality() Cardinality { return CardinalityMultiWithNone }

// AnswerStore maps every step key to its current answer. The zero value is
// not usable; create stores with NewAnswerStore.
type AnswerStore struct {
	answers map[string]Answer
}

// NewAnswerStore creates a store with the default answer for every step of
// the catalog: SINGLE steps unanswered (or their Default), MULTI steps empty
// and MULTI_WITH_NONE steps {none}.
func NewAnswerStore(c *Catalog) AnswerStore {
	answers := make(map[string]Answer, c.Len())
	for _, step := range c.steps {
		answers[step.Key] = defaultAnswer(step)
	}
	return AnswerStore{answers: answers}
}

func defaultAnswer(step Step) Answer {
	switch step.Cardinality {
	case CardinalityMulti:
		return MultiAnswer{}
	case CardinalityMultiWithNone:
		return NoneAnswer(step.NoneValue)
	default:
		if step.Default != "" {
			return Selected(step.Default)
		}
		return Unanswered()
	}
}

// Get returns the answer of a step, or nil for an unknown key
func (s AnswerStore) Get(key string) Answer {
	return s.answers[key]
}

// Single returns the value of a SINGLE step and whether it is answered
func (s AnswerStore) Single(key string) (string, bool) {
	a, ok := s.answers[key].(SingleAnswer)
	if !ok {
		return "", false
	}
	return a.Value()
}

// Values returns the selected values of any step
func (s AnswerStore) Values(key string) []string {
	a, ok := s.answers[key]
	if !ok || a == nil {
		return nil
	}
	return a.Values()
}

// Snapshot returns all answers as plain value lists keyed by step
func (s AnswerStore) Snapshot() map[string][]string {
	out := make(map[string][]string, len(s.answers))
	for key, a := range s.answers {
		values := a.Values()
		if values == nil {
			values = []string{}
		}
		out[key] = values
	}
	return out
}

// set returns a copy of the store with key replaced
func (s AnswerStore) set(key string, a Answer) AnswerStore {
	answers := make(map[string]Answer, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	answers[key] = a
	return AnswerStore{answers: answers}
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func remove(values []string, v string) []string {
	var out []string
	for _, x := range values {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func cloneValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
