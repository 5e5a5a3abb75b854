package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadLabeledAnswers reads a labeled answer set. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON.
func LoadLabeledAnswers(path string) ([]LabeledAnswer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labeled answers file: %w", err)
	}

	var cases []LabeledAnswer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cases)
	default:
		err = json.Unmarshal(data, &cases)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse labeled answers: %w", err)
	}

	return cases, nil
}

var validDifficulties = map[string]bool{
	"":       true,
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// ValidateLabeledAnswers checks that every case has the required fields.
// Catalog checks live in Guardrails.CheckCases.
func ValidateLabeledAnswers(cases []LabeledAnswer) error {
	if len(cases) == 0 {
		return fmt.Errorf("labeled answer set is empty")
	}

	seen := make(map[string]struct{}, len(cases))
	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("case at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("case at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}

		if c.QuestionCode == "" {
			return fmt.Errorf("case %q: missing question_code", c.ID)
		}
		if strings.TrimSpace(c.Answer) == "" {
			return fmt.Errorf("case %q: missing answer text", c.ID)
		}
		if !validDifficulties[c.Difficulty] {
			return fmt.Errorf("case %q: invalid difficulty %q (must be easy/medium/hard)", c.ID, c.Difficulty)
		}
	}

	return nil
}
