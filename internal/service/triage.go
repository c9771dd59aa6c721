package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/carepath/internal/azure"
	"github.com/vcscsvcscs/carepath/internal/classifier"
	"github.com/vcscsvcscs/carepath/internal/pdf"
	"github.com/vcscsvcscs/carepath/internal/questionnaire"
	"github.com/vcscsvcscs/carepath/pkg/model"
	"go.uber.org/zap"
)

var (
	// ErrSubmissionInProgress rejects a second submit, forward navigation or a
	// restart while the classification call of a session is pending
	ErrSubmissionInProgress = errors.New("submission already in progress")
	// ErrNoResult is returned when a session has not been classified yet
	ErrNoResult = errors.New("session has no result")
)

// AuditRecorder receives the audit trail of questionnaire sessions
type AuditRecorder interface {
	LogSessionStarted(ctx context.Context, sessionID string) error
	LogSessionRestarted(ctx context.Context, sessionID string) error
	LogSessionsExpired(ctx context.Context, sessionIDs []string) error
	LogSubmission(ctx context.Context, sessionID, submissionID string, payload interface{}, category string) error
}

// OptionView is one option of a step with its selection state
type OptionView struct {
	Value    string
	Label    string
	Selected bool
}

// StepView is a step as presented to the user
type StepView struct {
	Key         string
	Title       string
	Help        string
	Cardinality string
	Options     []OptionView
}

// SessionView is a snapshot of a session for display
type SessionView struct {
	ID              string
	Status          model.SessionStatus
	Step            StepView
	StepIndex       int
	StepCount       int
	StepLabel       string
	ProgressPercent int
	// CanAdvance gates the forward action, which is submission on the last step
	CanAdvance      bool
	CanRetreat      bool
	IsLastStep      bool
	Submitting      bool
	Answers         map[string][]string
	Result          *ResultView
	StartedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// TriageService runs questionnaire sessions and submits them for classification
type TriageService struct {
	engine     *questionnaire.Engine
	classifier classifier.Client
	sessions   *SessionStore
	presenter  Presenter
	auditor    AuditRecorder
	archive    azure.BlobStorage
	pdfGen     *pdf.PDFGenerator
	logger     *zap.Logger

	uploads sync.WaitGroup
}

// NewTriageService creates a new TriageService. auditor and archive are
// optional.
func NewTriageService(
	engine *questionnaire.Engine,
	client classifier.Client,
	sessions *SessionStore,
	presenter Presenter,
	auditor AuditRecorder,
	archive azure.BlobStorage,
	pdfGen *pdf.PDFGenerator,
	logger *zap.Logger,
) *TriageService {
	return &TriageService{
		engine:     engine,
		classifier: client,
		sessions:   sessions,
		presenter:  presenter,
		auditor:    auditor,
		archive:    archive,
		pdfGen:     pdfGen,
		logger:     logger,
	}
}

// Engine returns the questionnaire engine sessions run on
func (s *TriageService) Engine() *questionnaire.Engine {
	return s.engine
}

// Steps returns the catalog with no selections
func (s *TriageService) Steps() []StepView {
	steps := s.engine.Catalog().Steps()
	views := make([]StepView, 0, len(steps))
	for _, step := range steps {
		views = append(views, stepView(step, nil))
	}
	return views
}

// StartSession creates a new session on the first step
func (s *TriageService) StartSession(ctx context.Context) (*SessionView, error) {
	ts := s.sessions.create(questionnaire.NewSession(s.engine))

	s.logger.Info("questionnaire session started", zap.String("session_id", ts.id))
	s.audit(func() error { return s.auditor.LogSessionStarted(ctx, ts.id) })

	ts.mu.Lock()
	defer ts.mu.Unlock()
	return s.view(ts), nil
}

// GetSession returns the current state of a session
func (s *TriageService) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	ts, err := s.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	return s.view(ts), nil
}

// Toggle applies a selection event to the displayed step
func (s *TriageService) Toggle(ctx context.Context, sessionID, value string, selected bool) (*SessionView, error) {
	ts, err := s.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	step := ts.q.CurrentStep()
	if err := ts.q.Toggle(value, selected); err != nil {
		s.logger.Warn("toggle rejected",
			zap.String("session_id", sessionID),
			zap.String("step_key", step.Key),
			zap.String("value", value),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to toggle %s: %w", step.Key, err)
	}
	s.touch(ts)

	s.logger.Debug("answer toggled",
		zap.String("session_id", sessionID),
		zap.String("step_key", step.Key),
		zap.String("value", value),
		zap.Bool("selected", selected),
	)

	return s.view(ts), nil
}

// Advance moves to the next step
func (s *TriageService) Advance(ctx context.Context, sessionID string) (*SessionView, error) {
	ts, err := s.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.submitting {
		return nil, ErrSubmissionInProgress
	}

	moved, err := ts.q.Advance()
	if err != nil {
		s.logger.Debug("advance blocked",
			zap.String("session_id", sessionID),
			zap.String("step_key", ts.q.CurrentStep().Key),
		)
		return nil, err
	}
	if moved {
		s.touch(ts)
	}

	return s.view(ts), nil
}

// Retreat moves to the previous step
func (s *TriageService) Retreat(ctx context.Context, sessionID string) (*SessionView, error) {
	ts, err := s.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.q.Retreat() {
		s.touch(ts)
	}

	return s.view(ts), nil
}

// Restart discards all answers and the last result
func (s *TriageService) Restart(ctx context.Context, sessionID string) (*SessionView, error) {
	ts, err := s.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	if ts.submitting {
		ts.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}

	ts.q.Restart()
	ts.status = model.SessionStatusActive
	ts.submitted = nil
	ts.result = nil
	ts.archivePath = ""
	ts.completedAt = nil
	s.touch(ts)
	view := s.view(ts)
	ts.mu.Unlock()

	s.logger.Info("questionnaire session restarted", zap.String("session_id", sessionID))
	s.audit(func() error { return s.auditor.LogSessionRestarted(ctx, sessionID) })

	return view, nil
}

// Submit validates the answers and sends them for classification. Missing
// answers fail with *questionnaire.ValidationError before any network call;
// classification failures leave the session as it was.
func (s *TriageService) Submit(ctx context.Context, sessionID string) (*ResultView, error) {
	ts, err := s.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	if ts.submitting {
		ts.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}

	payload, err := ts.q.Submission()
	if err != nil {
		ts.mu.Unlock()
		s.logger.Info("submission rejected",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, err
	}
	ts.submitting = true
	ts.mu.Unlock()

	resolved := false
	defer func() {
		if !resolved {
			ts.mu.Lock()
			ts.submitting = false
			ts.mu.Unlock()
		}
	}()

	s.logger.Info("submitting questionnaire",
		zap.String("session_id", sessionID),
		zap.String("main_symptom", payload.MainSymptom),
		zap.String("severity", payload.Severity),
	)

	// a disconnecting caller does not abandon a submission already sent
	result, err := s.classifier.Classify(context.WithoutCancel(ctx), payload)
	resolved = true

	ts.mu.Lock()
	ts.submitting = false
	if err != nil {
		ts.mu.Unlock()
		s.logger.Error("classification failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to classify session %s: %w", sessionID, err)
	}

	now := s.sessions.now().UTC()
	ts.submitted = &payload
	ts.result = result
	ts.archivePath = ""
	ts.status = model.SessionStatusCompleted
	ts.completedAt = &now
	s.touch(ts)
	summary := s.summary(ts)
	ts.mu.Unlock()

	s.logger.Info("questionnaire classified",
		zap.String("session_id", sessionID),
		zap.String("category", result.Category),
		zap.Int("reasons", len(result.Reasons)),
	)

	submissionID := uuid.New().String()
	s.audit(func() error {
		return s.auditor.LogSubmission(context.WithoutCancel(ctx), sessionID, submissionID, payload, result.Category)
	})

	if s.archive != nil {
		s.uploads.Add(1)
		go func() {
			defer s.uploads.Done()
			s.archiveResult(context.Background(), ts, result, summary)
		}()
	}

	return s.presenter.Result(result), nil
}

// ResultPDF renders the last classification of a session as a PDF. An
// archived copy is preferred when one exists.
func (s *TriageService) ResultPDF(ctx context.Context, sessionID string) ([]byte, error) {
	ts, err := s.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	if ts.result == nil {
		ts.mu.Unlock()
		return nil, ErrNoResult
	}
	archivePath := ts.archivePath
	summary := s.summary(ts)
	ts.mu.Unlock()

	if archivePath != "" && s.archive != nil {
		data, err := s.archive.DownloadPDF(ctx, archivePath)
		if err == nil {
			return data, nil
		}
		s.logger.Warn("archived result unavailable, rendering a new one",
			zap.String("session_id", sessionID),
			zap.String("blob_name", archivePath),
			zap.Error(err),
		)
	}

	data, err := s.pdfGen.Generate(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to render result: %w", err)
	}
	return data, nil
}

// History returns the trimmed classification history
func (s *TriageService) History(ctx context.Context) ([]HistoryEntry, error) {
	history, err := s.classifier.History(ctx)
	if err != nil {
		s.logger.Error("failed to load triage history", zap.Error(err))
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	entries := s.presenter.History(history)

	s.logger.Info("triage history loaded",
		zap.Int("received", len(history.Items)),
		zap.Int("presented", len(entries)),
	)

	return entries, nil
}

// ExpireSessions sweeps idle sessions and records them in the audit trail
func (s *TriageService) ExpireSessions(ctx context.Context) int {
	removed := s.sessions.Sweep()
	s.recordExpired(ctx, removed)
	return len(removed)
}

// StartJanitor sweeps idle sessions every interval until ctx is done
func (s *TriageService) StartJanitor(ctx context.Context, interval time.Duration) {
	s.sessions.StartJanitor(ctx, interval, func(removed []string) {
		s.recordExpired(ctx, removed)
	})
}

// Wait blocks until pending archive uploads finish
func (s *TriageService) Wait() {
	s.uploads.Wait()
}

func (s *TriageService) recordExpired(ctx context.Context, removed []string) {
	if len(removed) == 0 {
		return
	}
	s.audit(func() error { return s.auditor.LogSessionsExpired(context.WithoutCancel(ctx), removed) })
}

func (s *TriageService) archiveResult(ctx context.Context, ts *trackedSession, result *model.TriageResult, summary *pdf.SummaryData) {
	data, err := s.pdfGen.Generate(summary)
	if err != nil {
		s.logger.Error("failed to render result for archive",
			zap.String("session_id", ts.id),
			zap.Error(err),
		)
		return
	}

	classifiedAt := result.Timestamp.Time
	if classifiedAt.IsZero() {
		classifiedAt = s.sessions.now()
	}

	path, err := s.archive.UploadPDF(ctx, azure.ResultBlobName(ts.id, classifiedAt), data)
	if err != nil {
		s.logger.Error("failed to archive result",
			zap.String("session_id", ts.id),
			zap.Error(err),
		)
		return
	}

	ts.mu.Lock()
	// a later submit or restart replaces the result this upload belongs to
	if ts.result == result {
		ts.archivePath = path
	}
	ts.mu.Unlock()

	s.logger.Info("result archived",
		zap.String("session_id", ts.id),
		zap.String("blob_name", path),
	)
}

// audit runs fn when an auditor is configured. Failures are logged only.
func (s *TriageService) audit(fn func() error) {
	if s.auditor == nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.Warn("audit trail write failed", zap.Error(err))
	}
}

// touch records a state change. Caller holds ts.mu.
func (s *TriageService) touch(ts *trackedSession) {
	ts.updatedAt = s.sessions.now().UTC()
}

// view snapshots ts. Caller holds ts.mu.
func (s *TriageService) view(ts *trackedSession) *SessionView {
	cursor := ts.q.Cursor()
	answers := ts.q.Answers()
	step := ts.q.CurrentStep()

	return &SessionView{
		ID:              ts.id,
		Status:          ts.status,
		Step:            stepView(step, answers.Values(step.Key)),
		StepIndex:       cursor.Index(),
		StepCount:       cursor.Len(),
		StepLabel:       fmt.Sprintf("Step %d/%d", cursor.Index()+1, cursor.Len()),
		ProgressPercent: cursor.ProgressPercent(),
		CanAdvance:      !ts.submitting && ts.q.CanAdvance(),
		CanRetreat:      !cursor.AtFirst(),
		IsLastStep:      cursor.AtLast(),
		Submitting:      ts.submitting,
		Answers:         answers.Snapshot(),
		Result:          s.presenter.Result(ts.result),
		StartedAt:       ts.startedAt,
		UpdatedAt:       ts.updatedAt,
		CompletedAt:     ts.completedAt,
	}
}

// summary builds the PDF data for the last result. Caller holds ts.mu.
func (s *TriageService) summary(ts *trackedSession) *pdf.SummaryData {
	if ts.result == nil {
		return nil
	}

	data := &pdf.SummaryData{
		SessionID:    ts.id,
		Category:     ts.result.Category,
		Tone:         string(ToneOf(ts.result.Category)),
		Reasons:      copyStrings(ts.result.Reasons, -1),
		Disclaimer:   ts.result.Disclaimer,
		Version:      ts.result.Version,
		ClassifiedAt: ts.result.Timestamp.Time,
	}

	if ts.submitted != nil {
		data.Answers = answerLines(s.engine.Catalog(), *ts.submitted)
	}

	return data
}

// answerLines labels a submitted payload in catalog order
func answerLines(catalog *questionnaire.Catalog, payload model.TriageRequest) []pdf.AnswerLine {
	values := map[string][]string{
		questionnaire.KeyAgeGroup:    {payload.AgeGroup},
		questionnaire.KeyMainSymptom: {payload.MainSymptom},
		questionnaire.KeySeverity:    {payload.Severity},
		questionnaire.KeyRedFlags:    payload.RedFlags,
		questionnaire.KeyFeverTemp:   {payload.FeverTemp},
		questionnaire.KeyDuration:    {payload.Duration},
		questionnaire.KeyRiskFactors: payload.RiskFactors,
	}

	lines := make([]pdf.AnswerLine, 0, catalog.Len())
	for _, step := range catalog.Steps() {
		raw, ok := values[step.Key]
		if !ok {
			continue
		}
		labels := make([]string, 0, len(raw))
		for _, v := range raw {
			labels = append(labels, step.LabelOf(v))
		}
		lines = append(lines, pdf.AnswerLine{Question: step.Title, Answers: labels})
	}
	return lines
}

func stepView(step questionnaire.Step, selected []string) StepView {
	options := make([]OptionView, 0, len(step.Options))
	for _, o := range step.Options {
		options = append(options, OptionView{
			Value:    o.Value,
			Label:    o.Label,
			Selected: containsValue(selected, o.Value),
		})
	}
	return StepView{
		Key:         step.Key,
		Title:       step.Title,
		Help:        step.Help,
		Cardinality: step.Cardinality.String(),
		Options:     options,
	}
}

func containsValue(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
