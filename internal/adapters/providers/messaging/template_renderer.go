package messaging

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

const genericClarification = "Could you tell me a little more about how you manage this activity day to day?"

var messageTemplates = map[providers.MessageKind]string{
	providers.MessageKindWelcome: `Hello, and thank you for taking the time to talk with me today.

I'll be asking you {{.TotalQuestions}} questions about everyday activities. The first part covers things like shopping, cooking and managing money. The second part covers basic self-care such as bathing, dressing and moving around. There are no right or wrong answers, so please describe things in your own words.

Your answers help your care team understand what support might be useful. Are you ready to begin?`,

	providers.MessageKindConsentReminder: `Whenever you're ready to begin the assessment, just say "yes" or "I'm ready".`,

	providers.MessageKindQuestion: `{{if .Sensitive}}I'd like to gently ask about {{.Topic}}.{{else}}Now I'd like to ask you about {{.Topic}}.{{end}} (Question {{.QuestionNumber}} of {{.TotalQuestions}})

{{.Text}}
{{if .Description}}
{{.Description}}
{{end}}
Please tell me about your current situation in your own words.`,

	providers.MessageKindClarification: `I'd like to understand your situation a bit better. {{.ClarificationQuestion}}`,

	providers.MessageKindTransition: `Thank you, that completes the questions about {{phaseSummary .Phase}}. You're doing great.

Next I'll ask about {{phaseSummary .NextPhase}}.`,

	providers.MessageKindCompletion: `We've completed your functional assessment. Thank you for sharing so much about your daily activities.
{{with .Scores}}
Instrumental activities (Lawton IADL): {{.IADL.Total}} of {{.IADL.MaxScore}}, {{band .IADL.Interpretation}}.
Basic activities (Barthel ADL): {{.ADL.Total}} of {{.ADL.MaxScore}}, {{band .ADL.Interpretation}}.
{{end}}
Your care team will review these results with you.`,

	providers.MessageKindError: `I'm sorry, I ran into a technical problem while processing that. {{if .Topic}}Could you tell me again about {{.Topic}}?{{else}}Could you please repeat your last reply?{{end}}`,
}

// sensitiveDomains get a gentler question lead-in
var sensitiveDomains = map[string]bool{
	"bowels":  true,
	"bladder": true,
	"toilet":  true,
	"bathing": true,
}

type templateData struct {
	providers.MessageContext
	Topic       string
	Text        string
	Description string
	Sensitive   bool
}

// TemplateRenderer renders assistant messages from fixed templates. It needs
// no external service and is the fallback for model-backed renderers.
type TemplateRenderer struct {
	templates map[providers.MessageKind]*template.Template
}

// NewTemplateRenderer parses the built-in templates
func NewTemplateRenderer() *TemplateRenderer {
	funcs := template.FuncMap{
		"phaseSummary": phaseSummary,
		"band": func(b entities.InterpretationBand) string {
			return strings.ReplaceAll(string(b), "_", " ")
		},
	}

	r := &TemplateRenderer{templates: make(map[providers.MessageKind]*template.Template, len(messageTemplates))}
	for kind, text := range messageTemplates {
		r.templates[kind] = template.Must(template.New(string(kind)).Funcs(funcs).Parse(text))
	}
	return r
}

// RenderMessage renders one message kind
func (r *TemplateRenderer) RenderMessage(_ context.Context, kind providers.MessageKind, mc providers.MessageContext) (string, error) {
	tmpl, ok := r.templates[kind]
	if !ok {
		return "", fmt.Errorf("no template for message kind %q", kind)
	}

	data := templateData{MessageContext: mc}
	if q := mc.Question; q != nil {
		data.Topic = q.TopicName()
		data.Text = q.Text
		data.Description = q.Description
		data.Sensitive = sensitiveDomains[strings.ToLower(q.Domain)]
	}
	if kind == providers.MessageKindClarification && strings.TrimSpace(mc.ClarificationQuestion) == "" {
		data.ClarificationQuestion = genericClarification
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s message: %w", kind, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func phaseSummary(p entities.Phase) string {
	switch p {
	case entities.PhaseIADL:
		return "everyday tasks like shopping, cooking and managing money"
	case entities.PhaseADL:
		return "basic self-care such as bathing, dressing and moving around"
	}
	return "the rest of the assessment"
}
