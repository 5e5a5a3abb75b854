// Package bootstrap assembles the conversation engine from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/catalog"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/providers/interpretation"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/providers/messaging"
	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
	"github.com/zatekoja/functional-assessment/backend/pkg/config"
)

// LoadCatalog resolves the question catalog. An explicit catalog file wins,
// then the question store, then the built-in Lawton and Barthel items.
func LoadCatalog(ctx context.Context, cfg *config.Config, store repositories.QuestionRepository, logger zerolog.Logger) (*services.QuestionCatalog, error) {
	if cfg.Assessment.CatalogPath != "" {
		adapter, err := catalog.NewYAMLQuestionAdapterFromFile(cfg.Assessment.CatalogPath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.Assessment.CatalogPath).Msg("Question catalog loaded from file")
		return services.LoadQuestionCatalog(ctx, adapter)
	}

	if store != nil {
		questions, err := services.LoadQuestionCatalog(ctx, store)
		if err == nil {
			logger.Info().Int("questions", questions.TotalQuestions()).Msg("Question catalog loaded from store")
			return questions, nil
		}
		logger.Warn().Err(err).Msg("Question store unusable, using built-in catalog")
	}

	adapter, err := catalog.NewStandardQuestionAdapter()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
	}
	return services.LoadQuestionCatalog(ctx, adapter)
}

// Interpreter returns the OpenAI interpreter when an API key is configured
// and the keyword interpreter otherwise.
func Interpreter(cfg *config.Config, logger zerolog.Logger) providers.ResponseInterpreter {
	client := openAIClient(cfg, logger)
	if client == nil {
		logger.Warn().Msg("OPENAI_API_KEY is not set; using keyword interpreter")
		return interpretation.NewResponseInterpreter(interpretation.InterpreterConfig{})
	}
	return interpretation.NewResponseInterpreter(interpretation.InterpreterConfig{
		Model: openai.NewInterpreter(client),
	})
}

// Renderer returns the message renderer. Model phrasing is only used when
// enabled and an API key is configured; templates back it up either way.
func Renderer(cfg *config.Config, logger zerolog.Logger) providers.MessageRenderer {
	rc := messaging.RendererConfig{Enabled: cfg.Assessment.LLMMessages, Logger: logger}
	if cfg.Assessment.LLMMessages {
		if client := openAIClient(cfg, logger); client != nil {
			rc.Model = openai.NewRenderer(client)
		}
	}
	return messaging.NewMessageRenderer(rc)
}

// Orchestrator wires the interpreter and renderer into a conversation
// orchestrator. metrics may be nil.
func Orchestrator(cfg *config.Config, questions *services.QuestionCatalog, metrics *observability.Metrics, logger zerolog.Logger) *services.ConversationOrchestrator {
	interpreter := services.NewInterpretationService(Interpreter(cfg, logger), services.InterpretationConfig{
		Timeout:  cfg.Assessment.InterpreterTimeout,
		Attempts: cfg.Assessment.InterpreterRetries + 1,
	})
	interpreter.SetLogger(logger)

	orchestrator := services.NewConversationOrchestrator(questions, interpreter, Renderer(cfg, logger), services.OrchestratorConfig{
		MaxErrors:              cfg.Assessment.MaxErrors,
		ClarificationThreshold: cfg.Assessment.ClarificationThreshold,
	})
	orchestrator.SetLogger(logger)

	if metrics != nil {
		interpreter.SetMetrics(metrics)
		orchestrator.SetMetrics(metrics)
	}
	return orchestrator
}

func openAIClient(cfg *config.Config, logger zerolog.Logger) *openai.Client {
	if cfg.OpenAI.APIKey == "" {
		return nil
	}
	client, err := openai.NewClient(&cfg.OpenAI)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize OpenAI client")
		return nil
	}
	return client
}
