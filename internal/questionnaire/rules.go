package questionnaire

import (
	"fmt"
)

// Toggle is one user action on an option of the displayed step
type Toggle struct {
	Value    string
	Selected bool
}

// DerivedRule recomputes answers after the Trigger step is mutated. Derive
// receives the store after the mutation and returns the store to keep.
type DerivedRule struct {
	Name    string
	Trigger string
	Derive  func(store AnswerStore) AnswerStore
}

// FeverTemperatureRule resets fever_temp to "unknown" whenever the main
// symptom is something other than fever. A reading is only meaningful
// for a fever complaint.
func FeverTemperatureRule() DerivedRule {
	return DerivedRule{
		Name:    "fever_temp_requires_fever",
		Trigger: KeyMainSymptom,
		Derive: func(store AnswerStore) AnswerStore {
			if symptom, _ := store.Single(KeyMainSymptom); symptom == SymptomFever {
				return store
			}
			if current, _ := store.Single(KeyFeverTemp); current == FeverTempUnknown {
				return store
			}
			return store.set(KeyFeverTemp, Selected(FeverTempUnknown))
		},
	}
}

// Engine applies the mutation, enablement and submission rules of a catalog
type Engine struct {
	catalog *Catalog
	derived map[string][]DerivedRule
	order   []DerivedRule
}

// NewEngine creates an engine over the catalog with the given derived rules
func NewEngine(catalog *Catalog, rules ...DerivedRule) (*Engine, error) {
	e := &Engine{
		catalog: catalog,
		derived: make(map[string][]DerivedRule),
	}
	for _, rule := range rules {
		if rule.Derive == nil {
			return nil, fmt.Errorf("derived rule %q has no derive function", rule.Name)
		}
		if _, ok := catalog.Lookup(rule.Trigger); !ok {
			return nil, fmt.Errorf("derived rule %q: %w: %s", rule.Name, ErrUnknownStep, rule.Trigger)
		}
		e.derived[rule.Trigger] = append(e.derived[rule.Trigger], rule)
		e.order = append(e.order, rule)
	}
	return e, nil
}

// DefaultEngine returns the engine for the reference triage catalog
func DefaultEngine() *Engine {
	e, err := NewEngine(DefaultCatalog(), FeverTemperatureRule())
	if err != nil {
		panic("default engine is invalid: " + err.Error())
	}
	return e
}

// Catalog returns the engine's step catalog
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// NewAnswers returns a store holding the default answers of the catalog
func (e *Engine) NewAnswers() AnswerStore {
	return NewAnswerStore(e.catalog)
}

// Toggle applies one option toggle on step to prev and returns the next
// store, with the derived rules triggered by step applied afterwards.
// prev is not modified.
func (e *Engine) Toggle(step Step, t Toggle, prev AnswerStore) (AnswerStore, error) {
	if _, ok := e.catalog.Lookup(step.Key); !ok {
		return prev, fmt.Errorf("%w: %s", ErrUnknownStep, step.Key)
	}
	if !step.HasOption(t.Value) {
		return prev, fmt.Errorf("%w: %q on step %s", ErrUnknownOption, t.Value, step.Key)
	}

	next := prev.set(step.Key, mutate(step, t, prev.Get(step.Key)))

	for _, rule := range e.derived[step.Key] {
		next = rule.Derive(next)
	}

	return next, nil
}

// Normalize applies every derived rule once, in registration order
func (e *Engine) Normalize(store AnswerStore) AnswerStore {
	for _, rule := range e.order {
		store = rule.Derive(store)
	}
	return store
}

func mutate(step Step, t Toggle, current Answer) Answer {
	switch step.Cardinality {
	case CardinalityMulti:
		set, _ := current.(MultiAnswer)
		if t.Selected {
			return set.with(t.Value)
		}
		return set.without(t.Value)

	case CardinalityMultiWithNone:
		set, ok := current.(ExclusiveAnswer)
		if !ok {
			set = NoneAnswer(step.NoneValue)
		}
		return toggleExclusive(set, t)

	default:
		// radio semantics: the toggled value always wins
		return Selected(t.Value)
	}
}

// toggleExclusive is the two-state machine of a MULTI_WITH_NONE answer
func toggleExclusive(a ExclusiveAnswer, t Toggle) ExclusiveAnswer {
	if t.Value == a.none {
		if !t.Selected && a.State() == OthersSelected {
			// none is not selected, so there is nothing to deselect
			return a
		}
		// selecting none clears the others; deselecting it is refused
		return NoneAnswer(a.none)
	}

	switch a.State() {
	case NoneSelected:
		if t.Selected {
			return OthersAnswer(a.none, t.Value)
		}
		return a
	default:
		if t.Selected {
			return OthersAnswer(a.none, append(a.Values(), t.Value)...)
		}
		// an empty remainder falls back to {none}
		return OthersAnswer(a.none, remove(a.others, t.Value)...)
	}
}
