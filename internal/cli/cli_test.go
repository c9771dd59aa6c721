package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/carepath/internal/classifier"
	"github.com/vcscsvcscs/carepath/internal/questionnaire"
	"github.com/vcscsvcscs/carepath/pkg/model"
	"go.uber.org/zap"
)

func init() {
	color.NoColor = true
}

// useMockClient routes the commands to an in-memory classifier
func useMockClient(t *testing.T) *classifier.MockClient {
	t.Helper()
	mock := classifier.NewMockClient(zap.NewNop())

	original := newClient
	newClient = func(baseURL string, timeout time.Duration, logger *zap.Logger) (classifier.Client, error) {
		return mock, nil
	}
	t.Cleanup(func() { newClient = original })

	return mock
}

func walk(input string) (model.TriageRequest, string, error) {
	var out bytes.Buffer
	w := newWalkthrough(questionnaire.NewSession(questionnaire.DefaultEngine()), strings.NewReader(input), &out)
	payload, err := w.run()
	return payload, out.String(), err
}

func TestWalkthrough_FeverCase(t *testing.T) {
	payload, out, err := walk("3\nfever\n2\n\n4\n2\n\n")
	require.NoError(t, err)

	assert.Equal(t, model.TriageRequest{
		AgeGroup:    "13_to_64",
		MainSymptom: "fever",
		Severity:    "moderate",
		RedFlags:    []string{},
		FeverTemp:   "39_5_or_more",
		Duration:    "1_to_3_days",
		RiskFactors: []string{"none"},
	}, payload)
	assert.Contains(t, out, "Step 1/7: ")
	assert.Contains(t, out, "Step 7/7: ")
}

func TestWalkthrough_MultiSelect(t *testing.T) {
	payload, _, err := walk("1\nheadache\nmild\n7, 5\n\n1\n2,3\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"seizure", "signs_of_stroke"}, payload.RedFlags)
	assert.Equal(t, []string{"pregnant", "immunocompromised"}, payload.RiskFactors)
	assert.Equal(t, "none_or_unknown", payload.FeverTemp)
}

func TestWalkthrough_RequiresAnswer(t *testing.T) {
	_, out, err := walk("\n9\n1,2\n")

	assert.ErrorIs(t, err, ErrInputClosed)
	assert.Contains(t, out, "Please choose an option")
	assert.Contains(t, out, "no option 9, choose 1-4")
	assert.Contains(t, out, "choose exactly one option")
}

func TestWalkthrough_BackAndRestart(t *testing.T) {
	_, out, err := walk("b\n2\nb\nr\nq\n")

	assert.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, out, "Already at the first step")
	assert.Contains(t, out, "Answers cleared")
	assert.Contains(t, out, "Step 2/7")
}

func TestWalkthrough_FeverTempResetWhenSymptomChanges(t *testing.T) {
	// pick fever, record a temperature, go back to change the symptom
	payload, _, err := walk("3\nfever\n1\n\n3\nb\nb\nb\nb\nrash\n\n\n\n1\n\n")
	require.NoError(t, err)

	assert.Equal(t, "rash", payload.MainSymptom)
	assert.Equal(t, "none_or_unknown", payload.FeverTemp)
}

func TestParseSelection(t *testing.T) {
	step, ok := questionnaire.DefaultCatalog().Lookup(questionnaire.KeyRiskFactors)
	require.True(t, ok)

	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"1", []string{"none"}, false},
		{"2,3", []string{"pregnant", "immunocompromised"}, false},
		{"2 2 pregnant", []string{"pregnant"}, false},
		{"pregnant, 3", []string{"pregnant", "immunocompromised"}, false},
		{"0", nil, true},
		{"smoker", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSelection(tt.input, step)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAskCommand(t *testing.T) {
	mock := useMockClient(t)
	mock.ClassifyFunc = func(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error) {
		return &model.TriageResult{
			Category:   "Urgent today",
			Reasons:    []string{"High fever", "Moderate severity", "Lasting 1-3 days"},
			Disclaimer: "Not a diagnosis",
		}, nil
	}

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"ask", "--classifier-url", "http://classifier.test"})
	cmd.SetIn(strings.NewReader("3\nfever\n2\n\n4\n2\n\n"))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	require.NoError(t, cmd.Execute())

	assert.Equal(t, 1, mock.RequestCount())
	assert.Contains(t, out.String(), "Urgent today")
	assert.Contains(t, out.String(), "  - Lasting 1-3 days")
	assert.Contains(t, out.String(), "Not a diagnosis")
}

func TestAskCommand_ClassifierFailure(t *testing.T) {
	mock := useMockClient(t)
	mock.ClassifyFunc = func(ctx context.Context, req model.TriageRequest) (*model.TriageResult, error) {
		return nil, &classifier.TransportError{Op: "classify", StatusCode: 503, Body: "maintenance"}
	}

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"ask", "--classifier-url", "http://classifier.test"})
	cmd.SetIn(strings.NewReader("3\nfever\n2\n\n4\n2\n\n"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()

	var transportErr *classifier.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "maintenance", transportErr.Body)
}

func TestAskCommand_RequiresURL(t *testing.T) {
	t.Setenv("CLASSIFIER_URL", "")
	useMockClient(t)

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"ask"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifier URL is required")
}

func TestHistoryCommand(t *testing.T) {
	mock := useMockClient(t)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		mock.Items = append(mock.Items, model.HistoryItem{
			Category:  "Emergency now",
			Reasons:   []string{"first", "second", "third"},
			Timestamp: model.Instant{Time: ts},
		})
	}

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"history", "--classifier-url", "http://classifier.test", "--limit", "3"})
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())

	assert.Equal(t, 3, strings.Count(out.String(), "Emergency now"))
	assert.Equal(t, 3, strings.Count(out.String(), "- second"))
	assert.NotContains(t, out.String(), "third")
}

func TestHistoryCommand_Empty(t *testing.T) {
	useMockClient(t)

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"history", "--classifier-url", "http://classifier.test"})
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No classifications yet")
}
