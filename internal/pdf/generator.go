package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

// PDFGenerator renders printable triage result summaries
type PDFGenerator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
		now:    time.Now,
	}
}

// AnswerLine is one answered question as shown to the user
type AnswerLine struct {
	Question string
	Answers  []string
}

// SummaryData contains all data needed for a result summary
type SummaryData struct {
	SessionID    string
	Category     string
	Tone         string
	Reasons      []string
	Disclaimer   string
	Version      string
	ClassifiedAt time.Time
	Answers      []AnswerLine
}

// toneColors maps a tone to the RGB accent used for the category banner
var toneColors = map[string][3]int{
	"emergency": {255, 77, 77},
	"urgent":    {255, 176, 32},
	"soon":      {76, 141, 255},
	"self_care": {57, 217, 138},
}

// Generate creates a PDF summary from the provided data
func (g *PDFGenerator) Generate(data *SummaryData) ([]byte, error) {
	if data == nil || data.Category == "" {
		return nil, fmt.Errorf("summary requires a category")
	}

	g.logger.Info("generating result PDF",
		zap.String("session_id", data.SessionID),
		zap.String("category", data.Category),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// core fonts are cp1252; labels carry en dashes and degree signs
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	g.addTitle(pdf, tr, data)
	g.addCategory(pdf, tr, data)
	g.addReasons(pdf, tr, data.Reasons)
	g.addAnswers(pdf, tr, data.Answers)
	g.addDisclaimer(pdf, tr, data.Disclaimer)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("result PDF generated successfully",
		zap.String("session_id", data.SessionID),
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, tr func(string) string, data *SummaryData) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "CarePath Triage Summary", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	if data.SessionID != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Session: %s", data.SessionID), "", 1, "L", false, 0, "")
	}
	if !data.ClassifiedAt.IsZero() {
		pdf.CellFormat(0, 6, fmt.Sprintf("Classified: %s UTC", data.ClassifiedAt.UTC().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	}
	if data.Version != "" {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Rules version: %s", data.Version)), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", g.now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

func (g *PDFGenerator) addCategory(pdf *gofpdf.Fpdf, tr func(string) string, data *SummaryData) {
	rgb, ok := toneColors[data.Tone]
	if !ok {
		rgb = [3]int{200, 200, 200}
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.SetDrawColor(rgb[0], rgb[1], rgb[2])
	pdf.SetLineWidth(1)
	pdf.CellFormat(0, 14, tr(data.Category), "1", 1, "C", false, 0, "")
	pdf.SetLineWidth(0.2)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Ln(8)
}

func (g *PDFGenerator) addReasons(pdf *gofpdf.Fpdf, tr func(string) string, reasons []string) {
	g.addSectionHeader(pdf, "Why this recommendation")

	if len(reasons) == 0 {
		pdf.CellFormat(0, 8, "No specific reasons were given.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, reason := range reasons {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("  - %s", reason)), "", "L", false)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addAnswers(pdf *gofpdf.Fpdf, tr func(string) string, answers []AnswerLine) {
	g.addSectionHeader(pdf, "Your answers")

	if len(answers) == 0 {
		pdf.CellFormat(0, 8, "No answers recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, line := range answers {
		pdf.SetFont("Arial", "B", 10)
		pdf.MultiCell(0, 6, tr(line.Question), "", "L", false)
		pdf.SetFont("Arial", "", 10)

		value := "-"
		if len(line.Answers) > 0 {
			value = strings.Join(line.Answers, ", ")
		}
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("  %s", value)), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(3)
}

func (g *PDFGenerator) addDisclaimer(pdf *gofpdf.Fpdf, tr func(string) string, disclaimer string) {
	if disclaimer == "" {
		return
	}
	pdf.SetFont("Arial", "I", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(0, 5, tr(disclaimer), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
}
