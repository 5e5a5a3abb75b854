package interpretation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// level is the coarse independence level a phrase signals
type level int

const (
	levelNone level = iota
	levelDependent
	levelPartial
	levelIndependent
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}\s']`)

var (
	independentPhrases = []string{
		"by myself", "on my own", "myself", "independent", "independently", "no help",
		"without help", "no problem", "no problems", "no trouble", "fine", "easily",
		"completely", "all of it", "always do",
	}
	partialPhrases = []string{
		"some help", "a little help", "bit of help", "with help", "help me", "helps me",
		"need help", "needs help", "sometimes", "occasionally", "with a walker", "walker",
		"cane", "stick", "supervision", "reminder", "remind me", "small amounts",
		"minor", "partly", "some of",
	}
	dependentPhrases = []string{
		"can't", "cannot", "can not", "unable", "not able", "never", "does it for me",
		"do it for me", "does everything", "do everything for me", "completely dependent",
		"dependent", "bedridden", "bed bound", "catheter", "wheelchair",
	}
	negatedIndependent = []string{
		"not by myself", "not on my own", "can't do it myself", "cannot do it myself",
	}
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "at": {}, "be": {}, "for": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "the": {},
	"to": {}, "with": {}, "without": {}, "do": {}, "does": {}, "am": {}, "are": {},
}

// KeywordInterpreter maps answers onto a question's options using phrase
// lists and word overlap with the option texts. It needs no network access
// and gives a reproducible baseline for development and evaluation.
type KeywordInterpreter struct {
	clarifyBelow float64
}

// NewKeywordInterpreter creates a keyword interpreter
func NewKeywordInterpreter() *KeywordInterpreter {
	return &KeywordInterpreter{clarifyBelow: 0.5}
}

// InterpretResponse scores answer against question
func (k *KeywordInterpreter) InterpretResponse(_ context.Context, question *entities.Question, answer string) entities.InterpretationResult {
	if question == nil || len(question.Answers) == 0 {
		return entities.InterpretationFailed("question has no answer options")
	}

	text := normalize(answer)
	if text == "" {
		return entities.InterpretationOk(k.unclear(question, "empty answer"))
	}

	signal := detectLevel(text)
	option, overlap := bestOverlap(question.Answers, text)

	var interp entities.ScoreInterpretation
	switch {
	case signal == levelNone && overlap >= 0.34:
		interp = entities.ScoreInterpretation{
			InterpretedScore: option.ClinicalScore,
			Confidence:       round2(0.55 + 0.4*overlap),
			Reasoning:        fmt.Sprintf("Answer closely matches the option %q", option.Text),
		}
	case signal == levelNone:
		return entities.InterpretationOk(k.unclear(question, "no recognizable description of independence"))
	default:
		score := scoreForLevel(question, signal)
		confidence := 0.8
		if overlap >= 0.34 && option.ClinicalScore == score {
			confidence = 0.9
		}
		interp = entities.ScoreInterpretation{
			InterpretedScore: score,
			Confidence:       confidence,
			Reasoning:        fmt.Sprintf("Answer describes %s performance", levelName(signal)),
		}
	}

	if interp.Confidence < k.clarifyBelow {
		interp.NeedsClarification = true
		interp.ClarificationQuestion = clarificationFor(question)
	}
	return entities.InterpretationOk(interp)
}

func (k *KeywordInterpreter) unclear(question *entities.Question, why string) entities.ScoreInterpretation {
	return entities.ScoreInterpretation{
		InterpretedScore:      question.MinScore(),
		Confidence:            0.3,
		Reasoning:             "Unable to determine level of independence: " + why,
		NeedsClarification:    true,
		ClarificationQuestion: clarificationFor(question),
	}
}

func detectLevel(text string) level {
	padded := " " + text + " "
	has := func(phrases []string) bool {
		for _, p := range phrases {
			if strings.Contains(padded, " "+p+" ") {
				return true
			}
		}
		return false
	}

	dependent := has(dependentPhrases) || has(negatedIndependent)
	partial := has(partialPhrases)
	independent := has(independentPhrases) && !has(negatedIndependent)

	switch {
	case partial:
		return levelPartial
	case dependent && independent:
		return levelPartial
	case dependent:
		return levelDependent
	case independent:
		return levelIndependent
	}
	return levelNone
}

// scoreForLevel picks the option score matching a level. Binary items have
// no partial option, so partial help scores as not independent.
func scoreForLevel(question *entities.Question, l level) int {
	scores := distinctScores(question.Answers)
	switch l {
	case levelIndependent:
		return scores[len(scores)-1]
	case levelPartial:
		if len(scores) > 2 {
			return scores[(len(scores)-1)/2]
		}
	}
	return scores[0]
}

func distinctScores(options []entities.AnswerOption) []int {
	seen := make(map[int]struct{}, len(options))
	scores := make([]int, 0, len(options))
	for _, o := range options {
		if _, ok := seen[o.ClinicalScore]; ok {
			continue
		}
		seen[o.ClinicalScore] = struct{}{}
		scores = append(scores, o.ClinicalScore)
	}
	sort.Ints(scores)
	return scores
}

// bestOverlap returns the option whose content words best cover the answer
func bestOverlap(options []entities.AnswerOption, text string) (entities.AnswerOption, float64) {
	answerWords := contentWords(text)
	best := options[0]
	bestScore := 0.0
	if len(answerWords) == 0 {
		return best, 0
	}

	for _, o := range options {
		optionWords := contentWords(normalize(o.Text))
		if len(optionWords) == 0 {
			continue
		}
		shared := 0
		for w := range optionWords {
			if _, ok := answerWords[w]; ok {
				shared++
			}
		}
		score := float64(shared) / float64(len(optionWords))
		if score > bestScore {
			best, bestScore = o, score
		}
	}
	return best, bestScore
}

func contentWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		if _, stop := stopWords[w]; stop || len(w) < 3 {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "’", "'")
	s = nonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func clarificationFor(q *entities.Question) string {
	return fmt.Sprintf("When it comes to %s, do you manage it completely on your own, with some help, or does someone else do it for you?", q.TopicName())
}

func levelName(l level) string {
	switch l {
	case levelIndependent:
		return "independent"
	case levelPartial:
		return "partially assisted"
	case levelDependent:
		return "dependent"
	}
	return "unknown"
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
