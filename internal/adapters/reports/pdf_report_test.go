package reports_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/reports"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

func newRenderer(t *testing.T) *reports.PDFReportRenderer {
	t.Helper()
	renderer, err := reports.NewPDFReportRenderer("")
	if err != nil {
		t.Skipf("no report font available: %v", err)
	}
	return renderer
}

func TestPDFReportRenderer_RendersPDF(t *testing.T) {
	renderer := newRenderer(t)
	completed := time.Date(2026, 3, 1, 9, 40, 0, 0, time.UTC)

	items := make([]entities.ReportItem, 0, 40)
	for i := 1; i <= 40; i++ {
		items = append(items, entities.ReportItem{
			QuestionCode:   "ITEM",
			AssessmentType: entities.AssessmentTypeADL,
			Sequence:       i,
			Question:       strings.Repeat("How do you manage this everyday activity? ", 4),
			Answer:         "Mostly by myself, my son helps on bad days",
			Score:          5,
			MaxScore:       10,
			OptionText:     "Needs some help",
			Confidence:     0.75,
			Clarified:      i%3 == 0,
		})
	}

	data, err := renderer.RenderReport(context.Background(), &entities.AssessmentReport{
		SessionID:   "s1",
		PatientID:   "p1",
		Phase:       entities.PhaseComplete,
		StartedAt:   completed.Add(-40 * time.Minute),
		CompletedAt: &completed,
		GeneratedAt: completed,
		Scores: &entities.AssessmentScores{
			IADL: entities.ScaleScore{Total: 6, MaxScore: 8, Percentage: 75, Interpretation: entities.BandMildImpairment},
			ADL:  entities.ScaleScore{Total: 60, MaxScore: 100, Percentage: 60, Interpretation: entities.BandModerateImpairment},
		},
		Items: items,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Equal(t, "application/pdf", renderer.ContentType())
}

func TestPDFReportRenderer_EmptyReport(t *testing.T) {
	renderer := newRenderer(t)

	data, err := renderer.RenderReport(context.Background(), &entities.AssessmentReport{
		SessionID: "s1",
		Phase:     entities.PhaseWelcome,
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestNewPDFReportRenderer_MissingFont(t *testing.T) {
	original := reports.DefaultFontPaths
	reports.DefaultFontPaths = nil
	defer func() { reports.DefaultFontPaths = original }()

	_, err := reports.NewPDFReportRenderer("/nonexistent/font.ttf")
	assert.Error(t, err)
}
