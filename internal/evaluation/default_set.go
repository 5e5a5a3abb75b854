package evaluation

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed labeled_answers.yaml
var defaultLabeledAnswers []byte

// DefaultLabeledAnswers returns the built-in labeled answer set
func DefaultLabeledAnswers() ([]LabeledAnswer, error) {
	var cases []LabeledAnswer
	if err := yaml.Unmarshal(defaultLabeledAnswers, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse built-in labeled answers: %w", err)
	}
	return cases, nil
}
