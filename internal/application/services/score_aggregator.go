package services

import (
	"math"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// bandThreshold maps a minimum raw total onto a clinical band
type bandThreshold struct {
	min  int
	band entities.InterpretationBand
}

var (
	iadlBands = []bandThreshold{
		{7, entities.BandIndependent},
		{5, entities.BandMildImpairment},
		{3, entities.BandModerateImpairment},
	}
	adlBands = []bandThreshold{
		{90, entities.BandIndependent},
		{70, entities.BandMildImpairment},
		{40, entities.BandModerateImpairment},
	}
)

// ScoreAggregator derives scale totals and bands from accepted responses.
// Aggregate holds no state between calls.
type ScoreAggregator struct {
	iadlMax int
	adlMax  int
}

// NewScoreAggregator creates an aggregator using the catalog's scale maxima
func NewScoreAggregator(catalog *QuestionCatalog) *ScoreAggregator {
	return &ScoreAggregator{
		iadlMax: catalog.MaxScore(entities.AssessmentTypeIADL),
		adlMax:  catalog.MaxScore(entities.AssessmentTypeADL),
	}
}

// Aggregate computes per-scale totals from responses
func (a *ScoreAggregator) Aggregate(responses []entities.AssessmentResponse) *entities.AssessmentScores {
	var iadl, adl []entities.AssessmentResponse
	scores := &entities.AssessmentScores{}
	confidenceSum := 0.0

	for _, r := range responses {
		switch r.AssessmentType {
		case entities.AssessmentTypeIADL:
			iadl = append(iadl, r)
		case entities.AssessmentTypeADL:
			adl = append(adl, r)
		default:
			continue
		}
		confidenceSum += r.Confidence
		if r.Confidence < entities.LowConfidenceThreshold {
			scores.LowConfidenceResponses++
		}
		if r.Clarified {
			scores.ClarificationsNeeded++
		}
	}

	scores.IADL = scaleScore(entities.AssessmentTypeIADL, iadl, a.iadlMax)
	scores.ADL = scaleScore(entities.AssessmentTypeADL, adl, a.adlMax)
	if n := len(iadl) + len(adl); n > 0 {
		scores.OverallConfidence = round2(confidenceSum / float64(n))
	}

	return scores
}

// BandFor returns the clinical band of a raw scale total
func BandFor(assessmentType entities.AssessmentType, total int) entities.InterpretationBand {
	for _, t := range thresholdsFor(assessmentType) {
		if total >= t.min {
			return t.band
		}
	}
	return entities.BandSevereImpairment
}

// BandCutoff is the lowest raw total that earns a band
type BandCutoff struct {
	Band     entities.InterpretationBand `json:"band"`
	MinTotal int                         `json:"min_total"`
}

// BandCutoffs lists a scale's bands from most to least independent
func BandCutoffs(assessmentType entities.AssessmentType) []BandCutoff {
	thresholds := thresholdsFor(assessmentType)
	out := make([]BandCutoff, 0, len(thresholds)+1)
	for _, t := range thresholds {
		out = append(out, BandCutoff{Band: t.band, MinTotal: t.min})
	}
	return append(out, BandCutoff{Band: entities.BandSevereImpairment, MinTotal: 0})
}

func thresholdsFor(assessmentType entities.AssessmentType) []bandThreshold {
	if assessmentType == entities.AssessmentTypeADL {
		return adlBands
	}
	return iadlBands
}

func scaleScore(kind entities.AssessmentType, responses []entities.AssessmentResponse, maxScore int) entities.ScaleScore {
	s := entities.ScaleScore{
		AssessmentType: kind,
		MaxScore:       maxScore,
		ResponseCount:  len(responses),
	}

	confidence := 0.0
	for _, r := range responses {
		s.Total += r.InterpretedScore
		confidence += r.Confidence
	}
	if len(responses) > 0 {
		s.ConfidenceAverage = round2(confidence / float64(len(responses)))
	}
	if maxScore > 0 {
		s.Percentage = round2(float64(s.Total) / float64(maxScore) * 100)
	}
	s.Interpretation = BandFor(kind, s.Total)

	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
