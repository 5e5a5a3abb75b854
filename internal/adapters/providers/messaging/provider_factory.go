package messaging

import (
	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

// RendererConfig configures message rendering
type RendererConfig struct {
	// Model renders messages with a language model when set and enabled
	Model   providers.MessageRenderer
	Enabled bool
	Logger  zerolog.Logger
}

// NewMessageRenderer returns the template renderer, or a model renderer that
// falls back to templates when it fails.
func NewMessageRenderer(cfg RendererConfig) providers.MessageRenderer {
	templates := NewTemplateRenderer()
	if !cfg.Enabled || cfg.Model == nil {
		return templates
	}
	return NewFallbackRenderer(cfg.Model, templates, cfg.Logger)
}
