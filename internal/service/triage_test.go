package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/carepath/internal/azure"
	"github.com/vcscsvcscs/carepath/internal/classifier"
	"github.com/vcscsvcscs/carepath/internal/pdf"
	"github.com/vcscsvcscs/carepath/internal/questionnaire"
	"github.com/vcscsvcscs/carepath/pkg/model"
	"go.uber.org/zap"
)

// MockAuditRecorder is a mock implementation of AuditRecorder
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) LogSessionStarted(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockAuditRecorder) LogSessionRestarted(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockAuditRecorder) LogSessionsExpired(ctx context.Context, sessionIDs []string) error {
	args := m.Called(ctx, sessionIDs)
	return args.Error(0)
}

func (m *MockAuditRecorder) LogSubmission(ctx context.Context, sessionID, submissionID string, payload interface{}, category string) error {
	args := m.Called(ctx, sessionID, submissionID, payload, category)
	return args.Error(0)
}

type fixture struct {
	svc      *TriageService
	client   *classifier.MockClient
	auditor  *MockAuditRecorder
	archive  *azure.MockBlobStorageClient
	sessions *SessionStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		client:   classifier.NewMockClient(logger),
		auditor:  new(MockAuditRecorder),
		archive:  azure.NewMockBlobStorageClient(logger),
		sessions: NewSessionStore(30*time.Minute, logger),
	}
	f.auditor.On("LogSessionStarted", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.auditor.On("LogSessionRestarted", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.auditor.On("LogSubmission", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	f.svc = NewTriageService(
		questionnaire.DefaultEngine(),
		f.client,
		f.sessions,
		NewPresenter(10, 2),
		f.auditor,
		f.archive,
		pdf.NewPDFGenerator(logger),
		logger,
	)
	return f
}

// answerAll walks the session to the last step answering the given keys
func answerAll(t *testing.T, svc *TriageService, id string, answers map[string][]string) *SessionView {
	t.Helper()
	ctx := context.Background()

	view, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	for {
		for _, v := range answers[view.Step.Key] {
			view, err = svc.Toggle(ctx, id, v, true)
			require.NoError(t, err)
		}
		if view.IsLastStep {
			return view
		}
		view, err = svc.Advance(ctx, id)
		require.NoError(t, err)
	}
}

var feverAnswers = map[string][]string{
	questionnaire.KeyAgeGroup:    {"13_to_64"},
	questionnaire.KeyMainSymptom: {"fever"},
	questionnaire.KeySeverity:    {"moderate"},
	questionnaire.KeyFeverTemp:   {"39_5_or_more"},
	questionnaire.KeyDuration:    {"1_to_3_days"},
}

func TestTriageService_StartSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, model.SessionStatusActive, view.Status)
	assert.Equal(t, questionnaire.KeyAgeGroup, view.Step.Key)
	assert.Equal(t, "single", view.Step.Cardinality)
	assert.Equal(t, "Step 1/7", view.StepLabel)
	assert.Equal(t, 0, view.ProgressPercent)
	assert.False(t, view.CanAdvance)
	assert.False(t, view.CanRetreat)
	assert.Nil(t, view.Result)
	assert.Equal(t, []string{"none"}, view.Answers[questionnaire.KeyRiskFactors])

	f.auditor.AssertCalled(t, "LogSessionStarted", ctx, view.ID)
}

func TestTriageService_UnknownSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Toggle(ctx, "missing", "x", true)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Submit(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.ResultPDF(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTriageService_ToggleMarksSelectedOptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.svc.StartSession(ctx)

	view, err := f.svc.Toggle(ctx, view.ID, "under_2", true)
	require.NoError(t, err)

	selected := map[string]bool{}
	for _, o := range view.Step.Options {
		selected[o.Value] = o.Selected
	}
	assert.True(t, selected["under_2"])
	assert.False(t, selected["65_plus"])
	assert.True(t, view.CanAdvance)

	_, err = f.svc.Toggle(ctx, view.ID, "ancient", true)
	assert.ErrorIs(t, err, questionnaire.ErrUnknownOption)
}

func TestTriageService_AdvanceBlockedOnUnansweredStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.svc.StartSession(ctx)

	_, err := f.svc.Advance(ctx, view.ID)
	assert.ErrorIs(t, err, questionnaire.ErrStepIncomplete)

	view, err = f.svc.Retreat(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.StepIndex)
}

func TestTriageService_SubmitMissingAnswersMakesNoCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.svc.StartSession(ctx)

	_, err := f.svc.Submit(ctx, view.ID)
	require.Error(t, err)

	var verr *questionnaire.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, questionnaire.RequiredKeys, verr.Keys)
	assert.Equal(t, 0, f.client.RequestCount())

	after, err := f.svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusActive, after.Status)
	assert.Equal(t, view.Answers, after.Answers)
}

func TestTriageService_SubmitFeverCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.ClassifyFunc = func(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error) {
		return &model.TriageResult{
			Category:   "Urgent today",
			Reasons:    []string{"Very high fever", "Moderate symptoms", "Recent onset"},
			Disclaimer: "Not medical advice.",
			Version:    "0.1.0",
			Timestamp:  model.Instant{Time: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		}, nil
	}

	view, _ := f.svc.StartSession(ctx)
	answerAll(t, f.svc, view.ID, feverAnswers)

	result, err := f.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, "Urgent today", result.Category)
	assert.Equal(t, ToneUrgent, result.Tone)
	assert.Len(t, result.Reasons, 3, "a single result keeps all reasons")
	assert.Equal(t, "Not medical advice.", result.Disclaimer)

	require.Len(t, f.client.Requests, 1)
	assert.Equal(t, model.TriageRequest{
		AgeGroup:    "13_to_64",
		MainSymptom: "fever",
		Severity:    "moderate",
		RedFlags:    []string{},
		FeverTemp:   "39_5_or_more",
		Duration:    "1_to_3_days",
		RiskFactors: []string{"none"},
	}, f.client.Requests[0])

	after, err := f.svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, after.Status)
	assert.NotNil(t, after.CompletedAt)
	require.NotNil(t, after.Result)
	assert.Equal(t, "Urgent today", after.Result.Category)

	f.auditor.AssertCalled(t, "LogSubmission", mock.Anything, view.ID, mock.AnythingOfType("string"), f.client.Requests[0], "Urgent today")

	assert.Equal(t, []string{"results/" + view.ID + "/20260301T100000Z.pdf"}, f.archive.ListBlobs())
}

func TestTriageService_SubmitOverridesStaleFeverReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.svc.StartSession(ctx)
	answerAll(t, f.svc, view.ID, feverAnswers)

	// back to main_symptom, switch to headache
	for view.Step.Key != questionnaire.KeyMainSymptom {
		var err error
		view, err = f.svc.Retreat(ctx, view.ID)
		require.NoError(t, err)
	}
	view, err := f.svc.Toggle(ctx, view.ID, "headache", true)
	require.NoError(t, err)
	assert.Equal(t, []string{questionnaire.FeverTempUnknown}, view.Answers[questionnaire.KeyFeverTemp])

	_, err = f.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	f.svc.Wait()

	require.Len(t, f.client.Requests, 1)
	assert.Equal(t, "headache", f.client.Requests[0].MainSymptom)
	assert.Equal(t, questionnaire.FeverTempUnknown, f.client.Requests[0].FeverTemp)
}

func TestTriageService_TransportErrorLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.ClassifyFunc = func(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error) {
		return nil, &classifier.TransportError{Op: "classify", StatusCode: 500, Body: "boom"}
	}

	view, _ := f.svc.StartSession(ctx)
	before := answerAll(t, f.svc, view.ID, feverAnswers)

	_, err := f.svc.Submit(ctx, view.ID)
	var terr *classifier.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "boom", terr.Body)

	after, err := f.svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusActive, after.Status)
	assert.False(t, after.Submitting)
	assert.Nil(t, after.Result)
	assert.Equal(t, before.Answers, after.Answers)
	assert.Equal(t, before.StepIndex, after.StepIndex)
	f.auditor.AssertNotCalled(t, "LogSubmission", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	_, err = f.svc.ResultPDF(ctx, view.ID)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestTriageService_OneSubmissionInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	release := make(chan struct{})
	f.client.ClassifyFunc = func(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error) {
		<-release
		return &model.TriageResult{Category: "Self-care / monitor", Reasons: []string{}}, nil
	}

	view, _ := f.svc.StartSession(ctx)
	answerAll(t, f.svc, view.ID, feverAnswers)

	var (
		wg        sync.WaitGroup
		result    *ResultView
		submitErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, submitErr = f.svc.Submit(ctx, view.ID)
	}()

	require.Eventually(t, func() bool { return f.client.RequestCount() == 1 }, time.Second, 5*time.Millisecond)

	pending, err := f.svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.True(t, pending.Submitting)
	assert.False(t, pending.CanAdvance)

	_, err = f.svc.Submit(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	_, err = f.svc.Advance(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	_, err = f.svc.Restart(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	// toggles and going back stay available
	_, err = f.svc.Toggle(ctx, view.ID, "pregnant", true)
	assert.NoError(t, err)
	_, err = f.svc.Retreat(ctx, view.ID)
	assert.NoError(t, err)

	close(release)
	wg.Wait()
	f.svc.Wait()

	require.NoError(t, submitErr)
	assert.Equal(t, ToneSelfCare, result.Tone)
	assert.Equal(t, 1, f.client.RequestCount())
	assert.Equal(t, []string{"none"}, f.client.Requests[0].RiskFactors, "payload is fixed when the call starts")
}

func TestTriageService_LastStepAllowsSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.svc.StartSession(ctx)

	view = answerAll(t, f.svc, view.ID, feverAnswers)

	assert.Equal(t, questionnaire.KeyRiskFactors, view.Step.Key)
	assert.True(t, view.IsLastStep)
	assert.True(t, view.CanAdvance, "the forward action on the last step is submission")

	// advancing past the end is a no-op
	same, err := f.svc.Advance(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.StepIndex, same.StepIndex)
	assert.True(t, same.CanAdvance)

	_, err = f.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	f.svc.Wait()
}

func TestTriageService_PanickingClassifierReleasesSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.ClassifyFunc = func(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error) {
		panic("classifier exploded")
	}

	view, _ := f.svc.StartSession(ctx)
	answerAll(t, f.svc, view.ID, feverAnswers)

	assert.Panics(t, func() {
		_, _ = f.svc.Submit(ctx, view.ID)
	})

	after, err := f.svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.False(t, after.Submitting)
	assert.True(t, after.CanAdvance)
	assert.Equal(t, model.SessionStatusActive, after.Status)

	f.client.ClassifyFunc = nil
	result, err := f.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Category)
	f.svc.Wait()
}

func TestTriageService_RestartClearsResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.svc.StartSession(ctx)
	answerAll(t, f.svc, view.ID, feverAnswers)
	_, err := f.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	f.svc.Wait()

	view, err = f.svc.Restart(ctx, view.ID)
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusActive, view.Status)
	assert.Equal(t, 0, view.StepIndex)
	assert.Nil(t, view.Result)
	assert.Nil(t, view.CompletedAt)
	assert.Equal(t, []string{}, view.Answers[questionnaire.KeyAgeGroup])
	f.auditor.AssertCalled(t, "LogSessionRestarted", ctx, view.ID)

	_, err = f.svc.ResultPDF(ctx, view.ID)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestTriageService_ResultPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.svc.StartSession(ctx)
	answerAll(t, f.svc, view.ID, feverAnswers)
	_, err := f.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	f.svc.Wait()

	// served from the archive
	blobs := f.archive.ListBlobs()
	require.Len(t, blobs, 1)
	f.archive.Storage[blobs[0]] = []byte("%PDF-archived")

	data, err := f.svc.ResultPDF(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-archived"), data)

	// rendered again when the archive copy is gone
	f.archive.Clear()
	data, err = f.svc.ResultPDF(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestTriageService_ArchiveFailureDoesNotFailSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.archive.UploadErr = errors.New("storage down")

	view, _ := f.svc.StartSession(ctx)
	answerAll(t, f.svc, view.ID, feverAnswers)

	_, err := f.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	f.svc.Wait()

	data, err := f.svc.ResultPDF(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestTriageService_AuditFailureIsNotFatal(t *testing.T) {
	logger := zap.NewNop()
	auditor := new(MockAuditRecorder)
	auditor.On("LogSessionStarted", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := NewTriageService(questionnaire.DefaultEngine(), classifier.NewMockClient(logger),
		NewSessionStore(time.Minute, logger), NewPresenter(10, 2), auditor, nil, pdf.NewPDFGenerator(logger), logger)

	view, err := svc.StartSession(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	auditor.AssertExpectations(t)
}

func TestTriageService_History(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		f.client.Items = append(f.client.Items, model.HistoryItem{
			Category: "Emergency now",
			Reasons:  []string{"a", "b", "c"},
		})
	}

	entries, err := f.svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 10)
	for _, e := range entries {
		assert.Equal(t, []string{"a", "b"}, e.Reasons)
		assert.Equal(t, ToneEmergency, e.Tone)
	}

	f.client.HistoryErr = &classifier.TransportError{Op: "history", StatusCode: 503, Body: "down"}
	_, err = f.svc.History(ctx)
	var terr *classifier.TransportError
	assert.True(t, errors.As(err, &terr))
}

func TestTriageService_Steps(t *testing.T) {
	f := newFixture(t)

	steps := f.svc.Steps()
	require.Len(t, steps, 7)
	assert.Equal(t, "multi_with_none", steps[6].Cardinality)
	for _, o := range steps[6].Options {
		assert.False(t, o.Selected)
	}
}

func TestTriageService_ExpireSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.sessions.now = func() time.Time { return now }

	view, _ := f.svc.StartSession(ctx)
	f.auditor.On("LogSessionsExpired", mock.Anything, []string{view.ID}).Return(nil).Once()

	now = now.Add(31 * time.Minute)
	assert.Equal(t, 1, f.svc.ExpireSessions(ctx))
	assert.Equal(t, 0, f.svc.ExpireSessions(ctx))

	_, err := f.svc.GetSession(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	f.auditor.AssertExpectations(t)
}
