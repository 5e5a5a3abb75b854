package messaging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

// FallbackRenderer tries a primary renderer and falls back on error or empty output.
type FallbackRenderer struct {
	primary  providers.MessageRenderer
	fallback providers.MessageRenderer
	logger   zerolog.Logger
}

// NewFallbackRenderer creates a renderer chain
func NewFallbackRenderer(primary, fallback providers.MessageRenderer, logger zerolog.Logger) *FallbackRenderer {
	return &FallbackRenderer{primary: primary, fallback: fallback, logger: logger}
}

func (r *FallbackRenderer) RenderMessage(ctx context.Context, kind providers.MessageKind, mc providers.MessageContext) (string, error) {
	if r.primary == nil {
		return r.fallback.RenderMessage(ctx, kind, mc)
	}

	text, err := r.primary.RenderMessage(ctx, kind, mc)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if r.fallback == nil {
		return text, err
	}

	r.logger.Warn().Err(err).Str("kind", string(kind)).Msg("primary renderer failed, using fallback")
	return r.fallback.RenderMessage(ctx, kind, mc)
}
