package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPDFGenerator_Generate_Success(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	data := &SummaryData{
		SessionID:    "3f1b5c2e-8d4a-4a1e-9c77-0b2f5d6e7a81",
		Category:     "See a clinician soon (24–72h)",
		Tone:         "soon",
		Reasons:      []string{"Fever 38–39.4°C", "Symptoms for 4–7 days"},
		Disclaimer:   "Not medical advice.",
		Version:      "0.1.0",
		ClassifiedAt: time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC),
		Answers: []AnswerLine{
			{Question: "Age group", Answers: []string{"13–64"}},
			{Question: "Red flags", Answers: nil},
			{Question: "Risk factors", Answers: []string{"Pregnant", "Immunocompromised"}},
		},
	}

	// Act
	pdfBytes, err := generator.Generate(data)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content")

	// PDF files start with %PDF
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestPDFGenerator_Generate_MinimalData(t *testing.T) {
	generator := NewPDFGenerator(zap.NewNop())

	pdfBytes, err := generator.Generate(&SummaryData{
		Category: "Self-care / monitor",
		Tone:     "unknown-tone",
	})

	assert.NoError(t, err)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content even with empty data")
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestPDFGenerator_Generate_RequiresCategory(t *testing.T) {
	generator := NewPDFGenerator(zap.NewNop())

	_, err := generator.Generate(nil)
	assert.Error(t, err)

	_, err = generator.Generate(&SummaryData{Reasons: []string{"x"}})
	assert.Error(t, err)
}
