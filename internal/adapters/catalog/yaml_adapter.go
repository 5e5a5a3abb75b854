package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

//go:embed standard_catalog.yaml
var standardCatalog []byte

type catalogFile struct {
	Version   int                  `yaml:"version"`
	Questions []*entities.Question `yaml:"questions"`
}

// YAMLQuestionAdapter serves catalog questions parsed from a YAML document
type YAMLQuestionAdapter struct {
	byType map[entities.AssessmentType][]*entities.Question
	byCode map[string]*entities.Question
}

// NewStandardQuestionAdapter loads the built-in Lawton IADL and Barthel ADL catalog
func NewStandardQuestionAdapter() (*YAMLQuestionAdapter, error) {
	return NewYAMLQuestionAdapter(standardCatalog)
}

// NewYAMLQuestionAdapterFromFile loads a catalog from disk
func NewYAMLQuestionAdapterFromFile(path string) (*YAMLQuestionAdapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return NewYAMLQuestionAdapter(data)
}

// NewYAMLQuestionAdapter parses and validates a catalog document
func NewYAMLQuestionAdapter(data []byte) (*YAMLQuestionAdapter, error) {
	questions, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}

	adapter := &YAMLQuestionAdapter{
		byType: make(map[entities.AssessmentType][]*entities.Question),
		byCode: make(map[string]*entities.Question, len(questions)),
	}
	for _, q := range questions {
		adapter.byType[q.AssessmentType] = append(adapter.byType[q.AssessmentType], q)
		adapter.byCode[q.Code] = q
	}
	return adapter, nil
}

// ParseCatalog decodes a catalog document and returns its questions ordered
// by scale then sequence, with answers ordered by option order.
func ParseCatalog(data []byte) ([]*entities.Question, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(doc.Questions) == 0 {
		return nil, fmt.Errorf("catalog contains no questions")
	}

	codes := make(map[string]struct{}, len(doc.Questions))
	sequences := make(map[string]struct{}, len(doc.Questions))
	for i, q := range doc.Questions {
		if q == nil || q.Code == "" {
			return nil, fmt.Errorf("question at index %d: missing code", i)
		}
		if _, dup := codes[q.Code]; dup {
			return nil, fmt.Errorf("question %q: duplicate code", q.Code)
		}
		codes[q.Code] = struct{}{}

		if !q.AssessmentType.IsValid() {
			return nil, fmt.Errorf("question %q: invalid assessment_type %q", q.Code, q.AssessmentType)
		}
		if q.Sequence < 1 {
			return nil, fmt.Errorf("question %q: sequence must be 1-based, got %d", q.Code, q.Sequence)
		}
		seqKey := fmt.Sprintf("%s/%d", q.AssessmentType, q.Sequence)
		if _, dup := sequences[seqKey]; dup {
			return nil, fmt.Errorf("question %q: duplicate sequence %d in %s", q.Code, q.Sequence, q.AssessmentType)
		}
		sequences[seqKey] = struct{}{}

		if q.Text == "" {
			return nil, fmt.Errorf("question %q: missing text", q.Code)
		}
		if len(q.Answers) == 0 {
			return nil, fmt.Errorf("question %q: no answer options", q.Code)
		}
		sort.SliceStable(q.Answers, func(a, b int) bool { return q.Answers[a].Order < q.Answers[b].Order })
	}

	sort.SliceStable(doc.Questions, func(a, b int) bool {
		qa, qb := doc.Questions[a], doc.Questions[b]
		if qa.AssessmentType != qb.AssessmentType {
			return qa.AssessmentType == entities.AssessmentTypeIADL
		}
		return qa.Sequence < qb.Sequence
	})

	return doc.Questions, nil
}

// ListByType returns copies of one scale's questions ordered by sequence
func (a *YAMLQuestionAdapter) ListByType(ctx context.Context, assessmentType entities.AssessmentType) ([]*entities.Question, error) {
	src := a.byType[assessmentType]
	out := make([]*entities.Question, len(src))
	for i, q := range src {
		out[i] = copyQuestion(q)
	}
	return out, nil
}

// GetByCode retrieves a copy of a question by code
func (a *YAMLQuestionAdapter) GetByCode(ctx context.Context, code string) (*entities.Question, error) {
	q, ok := a.byCode[code]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("question %s not found", code))
	}
	return copyQuestion(q), nil
}

// All returns every question in catalog order
func (a *YAMLQuestionAdapter) All() []*entities.Question {
	out := make([]*entities.Question, 0, len(a.byCode))
	for _, t := range []entities.AssessmentType{entities.AssessmentTypeIADL, entities.AssessmentTypeADL} {
		for _, q := range a.byType[t] {
			out = append(out, copyQuestion(q))
		}
	}
	return out
}

func copyQuestion(q *entities.Question) *entities.Question {
	c := *q
	c.Answers = append([]entities.AnswerOption(nil), q.Answers...)
	return &c
}
