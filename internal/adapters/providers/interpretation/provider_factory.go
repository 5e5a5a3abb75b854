package interpretation

import (
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

// InterpreterConfig selects the response interpreter
type InterpreterConfig struct {
	// Model is the language-model interpreter, used when non-nil
	Model providers.ResponseInterpreter
}

// NewResponseInterpreter returns the model interpreter when one is configured.
// Otherwise it returns the keyword interpreter for local development.
func NewResponseInterpreter(cfg InterpreterConfig) providers.ResponseInterpreter {
	if cfg.Model == nil {
		return NewKeywordInterpreter()
	}
	return cfg.Model
}
