package questionnaire

import (
	"fmt"

	"github.com/vcscsvcscs/carepath/pkg/model"
)

// Session is one traversal of the catalog: an answer store and a cursor owned
// by a single user. It is not safe for concurrent use; callers serialize
// actions on a session.
type Session struct {
	engine  *Engine
	cursor  Cursor
	answers AnswerStore
}

// NewSession starts a session on the first step with default answers
func NewSession(engine *Engine) *Session {
	return &Session{
		engine:  engine,
		cursor:  NewCursor(engine.catalog.Len()),
		answers: engine.NewAnswers(),
	}
}

// Engine returns the engine the session runs on
func (s *Session) Engine() *Engine {
	return s.engine
}

// CurrentStep returns the displayed step
func (s *Session) CurrentStep() Step {
	return s.engine.catalog.StepAt(s.cursor.Index())
}

// Cursor returns a copy of the navigation cursor
func (s *Session) Cursor() Cursor {
	return s.cursor
}

// Answers returns the current answer store
func (s *Session) Answers() AnswerStore {
	return s.answers
}

// Toggle applies a toggle to the displayed step
func (s *Session) Toggle(value string, selected bool) error {
	next, err := s.engine.Toggle(s.CurrentStep(), Toggle{Value: value, Selected: selected}, s.answers)
	if err != nil {
		return err
	}
	s.answers = next
	return nil
}

// CanAdvance reports whether the displayed step allows moving forward
func (s *Session) CanAdvance() bool {
	return s.engine.CanAdvance(s.CurrentStep(), s.answers)
}

// Advance moves to the next step. It returns ErrStepIncomplete when the
// displayed step is not answered, and false without error on the last step.
func (s *Session) Advance() (bool, error) {
	if s.cursor.AtLast() {
		return false, nil
	}
	if !s.CanAdvance() {
		return false, fmt.Errorf("%w: %s", ErrStepIncomplete, s.CurrentStep().Key)
	}
	return s.cursor.Advance(), nil
}

// Retreat moves to the previous step; a no-op on the first step
func (s *Session) Retreat() bool {
	return s.cursor.Retreat()
}

// Restart discards all answers and returns to the first step
func (s *Session) Restart() {
	s.cursor.Reset()
	s.answers = s.engine.NewAnswers()
}

// Submission validates the answers and builds the payload. On success the
// normalized answers are kept so the session reflects what was sent.
func (s *Session) Submission() (model.TriageRequest, error) {
	payload, err := s.engine.Assemble(s.answers)
	if err != nil {
		return model.TriageRequest{}, err
	}
	s.answers = s.engine.Normalize(s.answers)
	return payload, nil
}
