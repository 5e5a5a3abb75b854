package evaluation

import "math"

// Accuracy returns the fraction of results whose predicted score matches exactly.
// Returns 0.0 for an empty set.
func Accuracy(results []EvalResult) float64 {
	return rate(results, EvalResult.Correct)
}

// MeanAbsoluteError averages |predicted - expected| over the results.
// Returns 0.0 for an empty set.
func MeanAbsoluteError(results []EvalResult) float64 {
	if len(results) == 0 {
		return 0.0
	}
	total := 0.0
	for _, r := range results {
		total += math.Abs(float64(r.Predicted - r.Expected))
	}
	return total / float64(len(results))
}

// FallbackRate returns the fraction of answers that fell back to the
// conservative interpretation.
func FallbackRate(results []EvalResult) float64 {
	return rate(results, func(r EvalResult) bool { return r.Fallback })
}

// ClarificationRate returns the fraction of answers the interpreter could not
// score without a follow-up.
func ClarificationRate(results []EvalResult) float64 {
	return rate(results, func(r EvalResult) bool { return r.NeedsClarification })
}

func rate(results []EvalResult, pred func(EvalResult) bool) float64 {
	if len(results) == 0 {
		return 0.0
	}
	hits := 0
	for _, r := range results {
		if pred(r) {
			hits++
		}
	}
	return float64(hits) / float64(len(results))
}
