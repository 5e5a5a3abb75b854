package providers

import (
	"context"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// ReportRenderer turns an assessment report into a downloadable document
type ReportRenderer interface {
	RenderReport(ctx context.Context, report *entities.AssessmentReport) ([]byte, error)
	ContentType() string
}
