package providers

import (
	"context"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// ResponseInterpreter maps a free-text answer onto a question's clinical scale.
// Implementations never return an error: transport and parse failures are
// reported through entities.InterpretationFailed / InterpretationUnavailable.
type ResponseInterpreter interface {
	InterpretResponse(ctx context.Context, question *entities.Question, answer string) entities.InterpretationResult
}
