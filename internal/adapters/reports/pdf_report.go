package reports

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/signintech/gopdf"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

const (
	fontFamily   = "DejaVu"
	pageLeft     = 40.0
	contentWidth = 515.0
	pageBottom   = 800.0
)

// DefaultFontPaths are tried in order when no font path is configured
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
}

// PDFReportRenderer renders the clinician report as an A4 PDF
type PDFReportRenderer struct {
	font []byte
}

// NewPDFReportRenderer loads the TrueType font used for every report.
// An empty path tries DefaultFontPaths.
func NewPDFReportRenderer(fontPath string) (*PDFReportRenderer, error) {
	paths := DefaultFontPaths
	if fontPath != "" {
		paths = append([]string{fontPath}, DefaultFontPaths...)
	}

	var lastErr error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err == nil {
			return &PDFReportRenderer{font: data}, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to load report font: %w", lastErr)
}

var _ providers.ReportRenderer = (*PDFReportRenderer)(nil)

// ContentType returns the MIME type of rendered reports
func (r *PDFReportRenderer) ContentType() string {
	return "application/pdf"
}

// RenderReport lays out the header, both scale summaries and the item table
func (r *PDFReportRenderer) RenderReport(_ context.Context, report *entities.AssessmentReport) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(pageLeft, 40, pageLeft, 40)
	if err := pdf.AddTTFFontData(fontFamily, r.font); err != nil {
		return nil, fmt.Errorf("failed to register report font: %w", err)
	}
	pdf.AddPage()

	w := &pageWriter{pdf: pdf}
	w.line(18, "Functional Assessment Report")
	w.gap(10)
	w.line(10, "Session: "+report.SessionID)
	if report.PatientID != "" {
		w.line(10, "Patient: "+report.PatientID)
	}
	w.line(10, "Started: "+report.StartedAt.Format("2006-01-02 15:04 MST"))
	if report.CompletedAt != nil {
		w.line(10, "Completed: "+report.CompletedAt.Format("2006-01-02 15:04 MST"))
	} else {
		w.line(10, fmt.Sprintf("Status: in progress (%s phase)", report.Phase))
	}
	w.line(10, "Generated: "+report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	w.gap(12)

	if s := report.Scores; s != nil {
		w.line(14, "Scores")
		w.scale("Lawton IADL", s.IADL)
		w.scale("Barthel ADL", s.ADL)
		w.line(10, fmt.Sprintf("Overall confidence %.0f%%, %d low-confidence answers, %d needed clarification",
			s.OverallConfidence*100, s.LowConfidenceResponses, s.ClarificationsNeeded))
		w.gap(12)
	}

	w.line(14, "Responses")
	if len(report.Items) == 0 {
		w.line(10, "No responses recorded.")
	}
	for _, item := range report.Items {
		w.gap(4)
		w.wrapped(11, fmt.Sprintf("%s %d. %s", item.AssessmentType, item.Sequence, item.Question))
		w.wrapped(10, fmt.Sprintf("Answer: \"%s\"", item.Answer))
		scored := fmt.Sprintf("Score %d of %d", item.Score, item.MaxScore)
		if item.OptionText != "" {
			scored += " (" + item.OptionText + ")"
		}
		scored += fmt.Sprintf(", confidence %.0f%%", item.Confidence*100)
		if item.Clarified {
			scored += ", clarified"
		}
		w.wrapped(10, scored)
	}

	if w.err != nil {
		return nil, fmt.Errorf("failed to lay out report: %w", w.err)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// pageWriter flows lines down the page and keeps the first layout error
type pageWriter struct {
	pdf *gopdf.GoPdf
	err error
}

func (w *pageWriter) setFont(size float64) {
	if w.err == nil {
		w.err = w.pdf.SetFont(fontFamily, "", size)
	}
}

func (w *pageWriter) line(size float64, text string) {
	if w.err != nil {
		return
	}
	if w.pdf.GetY()+size*1.4 > pageBottom {
		w.pdf.AddPage()
	}
	w.setFont(size)
	w.pdf.SetX(pageLeft)
	if w.err == nil {
		w.err = w.pdf.Cell(nil, text)
	}
	w.pdf.Br(size * 1.4)
}

func (w *pageWriter) wrapped(size float64, text string) {
	w.setFont(size)
	if w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(strings.TrimSpace(text), contentWidth)
	if err != nil {
		// SplitText rejects empty input; nothing to draw.
		return
	}
	for _, l := range lines {
		w.line(size, l)
	}
}

func (w *pageWriter) scale(name string, s entities.ScaleScore) {
	band := strings.ReplaceAll(string(s.Interpretation), "_", " ")
	w.line(11, fmt.Sprintf("%s: %d of %d (%.1f%%), %s, %d answered", name, s.Total, s.MaxScore, s.Percentage, band, s.ResponseCount))
}

func (w *pageWriter) gap(h float64) {
	w.pdf.Br(h)
}
