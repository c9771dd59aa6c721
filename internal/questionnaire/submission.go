package questionnaire

import (
	"github.com/vcscsvcscs/carepath/pkg/model"
)

// RequiredKeys are the SINGLE steps that must be answered before submission
var RequiredKeys = []string{KeyAgeGroup, KeyMainSymptom, KeySeverity, KeyDuration}

// Assemble builds the classification payload from store. It fails with a
// *ValidationError naming every unanswered required step, and re-applies the
// derived rules before reading the answers.
func (e *Engine) Assemble(store AnswerStore) (model.TriageRequest, error) {
	var missing []string
	for _, key := range RequiredKeys {
		if _, ok := store.Single(key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return model.TriageRequest{}, &ValidationError{Keys: missing}
	}

	store = e.Normalize(store)

	ageGroup, _ := store.Single(KeyAgeGroup)
	mainSymptom, _ := store.Single(KeyMainSymptom)
	severity, _ := store.Single(KeySeverity)
	duration, _ := store.Single(KeyDuration)

	feverTemp, ok := store.Single(KeyFeverTemp)
	if !ok {
		feverTemp = FeverTempUnknown
	}

	redFlags := store.Values(KeyRedFlags)
	if redFlags == nil {
		redFlags = []string{}
	}

	riskFactors := store.Values(KeyRiskFactors)
	if len(riskFactors) == 0 {
		riskFactors = []string{RiskFactorNone}
	}

	return model.TriageRequest{
		AgeGroup:    ageGroup,
		MainSymptom: mainSymptom,
		Severity:    severity,
		RedFlags:    redFlags,
		FeverTemp:   feverTemp,
		Duration:    duration,
		RiskFactors: riskFactors,
	}, nil
}
