package openai

import (
	"context"
	"fmt"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

// Interpreter maps free-text answers to clinical scores with a chat model.
type Interpreter struct {
	client *Client
}

var _ providers.ResponseInterpreter = (*Interpreter)(nil)

// NewInterpreter creates a model-backed response interpreter
func NewInterpreter(client *Client) *Interpreter {
	return &Interpreter{client: client}
}

// InterpretResponse asks the model for a structured interpretation
func (i *Interpreter) InterpretResponse(ctx context.Context, question *entities.Question, answer string) entities.InterpretationResult {
	text, err := i.client.complete(ctx, interpretationSystemPrompt, buildInterpretationUserPrompt(question, answer))
	if err != nil {
		reason := fmt.Sprintf("openai request failed: %v", err)
		if isTransient(err) {
			return entities.InterpretationUnavailable(reason)
		}
		return entities.InterpretationFailed(reason)
	}

	interp, err := parseInterpretationPayload([]byte(text))
	if err != nil {
		return entities.InterpretationFailed(err.Error())
	}
	return entities.InterpretationOk(interp)
}
