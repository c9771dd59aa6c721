package questionnaire

// alwaysEnabled lists steps that may be left at their default
var alwaysEnabled = map[string]bool{
	KeyRedFlags:  true,
	KeyFeverTemp: true,
}

// CanAdvance reports whether the user may move past step with the given answers.
// It only gates forward navigation and submission, never going back.
func (e *Engine) CanAdvance(step Step, store AnswerStore) bool {
	if alwaysEnabled[step.Key] {
		return true
	}

	switch step.Cardinality {
	case CardinalityMulti:
		// an empty selection is a valid answer
		return true
	case CardinalityMultiWithNone:
		a := store.Get(step.Key)
		return a != nil && a.Answered()
	default:
		_, answered := store.Single(step.Key)
		return answered
	}
}
