package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

// Renderer writes assistant messages with a chat model.
type Renderer struct {
	client *Client
}

var _ providers.MessageRenderer = (*Renderer)(nil)

// NewRenderer creates a model-backed message renderer
func NewRenderer(client *Client) *Renderer {
	return &Renderer{client: client}
}

// RenderMessage generates the message text for kind
func (r *Renderer) RenderMessage(ctx context.Context, kind providers.MessageKind, mc providers.MessageContext) (string, error) {
	text, err := r.client.complete(ctx, messageSystemPrompt, buildMessageUserPrompt(kind, mc))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("openai returned an empty message")
	}
	return text, nil
}
