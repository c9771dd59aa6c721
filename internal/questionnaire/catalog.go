// Package questionnaire implements the triage questionnaire engine: the step
// catalog, the answer store, the navigation cursor and the rules that decide
// how answers evolve and when the user may move forward.
//
// The package has no transport or storage dependencies. Callers own a Session
// per user and drive it one discrete action at a time.
package questionnaire

import (
	"fmt"
)

// Cardinality describes the shape of the answer a step accepts
type Cardinality int

const (
	// CardinalitySingle accepts exactly one option (radio semantics)
	CardinalitySingle Cardinality = iota
	// CardinalityMulti accepts any subset of options, including none at all
	CardinalityMulti
	// CardinalityMultiWithNone accepts a non-empty subset with an exclusive "none" option
	CardinalityMultiWithNone
)

// String returns the wire name of the cardinality
func (c Cardinality) String() string {
	switch c {
	case CardinalitySingle:
		return "single"
	case CardinalityMulti:
		return "multi"
	case CardinalityMultiWithNone:
		return "multi_with_none"
	default:
		return fmt.Sprintf("cardinality(%d)", int(c))
	}
}

// Step keys of the reference catalog
const (
	KeyAgeGroup    = "age_group"
	KeyMainSymptom = "main_symptom"
	KeySeverity    = "severity"
	KeyRedFlags    = "red_flags"
	KeyFeverTemp   = "fever_temp"
	KeyDuration    = "duration"
	KeyRiskFactors = "risk_factors"
)

// Sentinel option values referenced by the rules
const (
	SymptomFever     = "fever"
	FeverTempUnknown = "none_or_unknown"
	RiskFactorNone   = "none"
)

// Option is one selectable answer of a step
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Step is one question of the catalog
type Step struct {
	Key         string
	Title       string
	Help        string
	Cardinality Cardinality
	Options     []Option

	// NoneValue is the exclusive option of a MULTI_WITH_NONE step, or the
	// "unknown" option a derived rule may force on a SINGLE step.
	NoneValue string

	// Default is the initial value of a SINGLE step. Empty means unanswered.
	Default string
}

// HasOption reports whether value is one of the step's options
func (s Step) HasOption(value string) bool {
	for _, opt := range s.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// LabelOf returns the label of an option, or the value itself when unknown
func (s Step) LabelOf(value string) string {
	for _, opt := range s.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

func (s Step) validate() error {
	if s.Key == "" {
		return fmt.Errorf("step key is required")
	}
	if len(s.Options) == 0 {
		return fmt.Errorf("step %s: options must not be empty", s.Key)
	}

	seen := make(map[string]struct{}, len(s.Options))
	for _, opt := range s.Options {
		if opt.Value == "" {
			return fmt.Errorf("step %s: option value must not be empty", s.Key)
		}
		if _, dup := seen[opt.Value]; dup {
			return fmt.Errorf("step %s: duplicate option value %q", s.Key, opt.Value)
		}
		seen[opt.Value] = struct{}{}
	}

	switch s.Cardinality {
	case CardinalitySingle:
		if s.Default != "" && !s.HasOption(s.Default) {
			return fmt.Errorf("step %s: default %q is not an option", s.Key, s.Default)
		}
	case CardinalityMulti:
	case CardinalityMultiWithNone:
		if s.NoneValue == "" || !s.HasOption(s.NoneValue) {
			return fmt.Errorf("step %s: none value %q is not an option", s.Key, s.NoneValue)
		}
	default:
		return fmt.Errorf("step %s: unknown cardinality %s", s.Key, s.Cardinality)
	}

	if s.NoneValue != "" && !s.HasOption(s.NoneValue) {
		return fmt.Errorf("step %s: none value %q is not an option", s.Key, s.NoneValue)
	}

	return nil
}

// Catalog is the ordered, immutable list of steps of a questionnaire
type Catalog struct {
	steps []Step
	index map[string]int
}

// NewCatalog validates the steps and builds a catalog from them
func NewCatalog(steps []Step) (*Catalog, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one step")
	}

	c := &Catalog{
		steps: make([]Step, len(steps)),
		index: make(map[string]int, len(steps)),
	}

	for i, step := range steps {
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
		if _, dup := c.index[step.Key]; dup {
			return nil, fmt.Errorf("invalid catalog: duplicate step key %q", step.Key)
		}

		step.Options = append([]Option(nil), step.Options...)
		c.steps[i] = step
		c.index[step.Key] = i
	}

	for _, required := range []string{KeyMainSymptom, KeyFeverTemp} {
		if _, ok := c.index[required]; !ok {
			return nil, fmt.Errorf("invalid catalog: step %q is required", required)
		}
	}

	return c, nil
}

// StepAt returns the step at index i. The index must be in range.
func (c *Catalog) StepAt(i int) Step {
	return c.steps[i]
}

// Len returns the number of steps
func (c *Catalog) Len() int {
	return len(c.steps)
}

// Lookup returns the step with the given key
func (c *Catalog) Lookup(key string) (Step, bool) {
	i, ok := c.index[key]
	if !ok {
		return Step{}, false
	}
	return c.steps[i], true
}

// Steps returns a copy of all steps in order
func (c *Catalog) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// DefaultCatalog returns the seven-step triage catalog
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultSteps())
	if err != nil {
		panic("default catalog is invalid: " + err.Error())
	}
	return c
}

func defaultSteps() []Step {
	return []Step{
		{
			Key:         KeyAgeGroup,
			Title:       "Age group",
			Help:        "Choose the age group. (Used for more conservative guidance in young children and older adults.)",
			Cardinality: CardinalitySingle,
			Options: []Option{
				{Value: "under_2", Label: "Under 2 years"},
				{Value: "2_to_12", Label: "2–12 years"},
				{Value: "13_to_64", Label: "13–64 years"},
				{Value: "65_plus", Label: "65+ years"},
			},
		},
		{
			Key:         KeyMainSymptom,
			Title:       "Main symptom",
			Help:        "Pick the main symptom that best matches what is happening now.",
			Cardinality: CardinalitySingle,
			Options: []Option{
				{Value: "chest_pain", Label: "Chest pain"},
				{Value: "breathing_trouble", Label: "Breathing trouble"},
				{Value: "abdominal_pain", Label: "Abdominal pain"},
				{Value: SymptomFever, Label: "Fever"},
				{Value: "headache", Label: "Headache"},
				{Value: "vomiting_diarrhea", Label: "Vomiting / diarrhea"},
				{Value: "sore_throat_cough", Label: "Sore throat / cough"},
				{Value: "rash", Label: "Rash"},
			},
		},
		{
			Key:         KeySeverity,
			Title:       "Severity right now",
			Help:        "How severe does it feel right now?",
			Cardinality: CardinalitySingle,
			Options: []Option{
				{Value: "mild", Label: "Mild (annoying but manageable)"},
				{Value: "moderate", Label: "Moderate (noticeable impact on daily activities)"},
				{Value: "severe", Label: "Severe (hard to function or very concerning)"},
			},
		},
		{
			Key:         KeyRedFlags,
			Title:       "Red flags (select any that apply)",
			Help:        "These may indicate a higher risk situation. If any apply, the guidance becomes more urgent.",
			Cardinality: CardinalityMulti,
			Options: []Option{
				{Value: "fainting_or_unresponsive", Label: "Fainting or unresponsive"},
				{Value: "severe_shortness_of_breath", Label: "Severe shortness of breath"},
				{Value: "blue_lips_face", Label: "Blue lips/face"},
				{Value: "new_confusion", Label: "New confusion"},
				{Value: "signs_of_stroke", Label: "Possible stroke signs (face/arm/speech)"},
				{Value: "uncontrolled_bleeding", Label: "Uncontrolled bleeding"},
				{Value: "seizure", Label: "Seizure"},
				{Value: "severe_allergic_reaction", Label: "Severe allergic reaction (swelling + breathing trouble)"},
			},
		},
		{
			Key:         KeyFeverTemp,
			Title:       "Fever temperature (if you have a reading)",
			Help:        "If fever is not your main symptom, you can keep this as 'Unknown/none'.",
			Cardinality: CardinalitySingle,
			NoneValue:   FeverTempUnknown,
			Default:     FeverTempUnknown,
			Options: []Option{
				{Value: FeverTempUnknown, Label: "Unknown / none"},
				{Value: "below_38", Label: "Below 38°C"},
				{Value: "38_to_39_4", Label: "38°C to 39.4°C"},
				{Value: "39_5_or_more", Label: "39.5°C or more"},
			},
		},
		{
			Key:         KeyDuration,
			Title:       "Duration",
			Help:        "How long has this been going on?",
			Cardinality: CardinalitySingle,
			Options: []Option{
				{Value: "less_24h", Label: "Less than 24 hours"},
				{Value: "1_to_3_days", Label: "1–3 days"},
				{Value: "more_3_days", Label: "More than 3 days"},
			},
		},
		{
			Key:         KeyRiskFactors,
			Title:       "High-risk conditions (select any that apply)",
			Help:        "These can make it safer to seek care earlier.",
			Cardinality: CardinalityMultiWithNone,
			NoneValue:   RiskFactorNone,
			Options: []Option{
				{Value: RiskFactorNone, Label: "None of these"},
				{Value: "pregnant", Label: "Pregnant"},
				{Value: "immunocompromised", Label: "Immunocompromised"},
				{Value: "serious_heart_lung_disease", Label: "Serious heart/lung disease"},
				{Value: "diabetes_kidney_disease", Label: "Diabetes/kidney disease"},
				{Value: "infant_under_3_months", Label: "Infant under 3 months"},
			},
		},
	}
}
