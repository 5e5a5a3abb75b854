package entities

// InterpretationBand is the clinical reading of a scale total
type InterpretationBand string

const (
	BandIndependent        InterpretationBand = "independent"
	BandMildImpairment     InterpretationBand = "mild_impairment"
	BandModerateImpairment InterpretationBand = "moderate_impairment"
	BandSevereImpairment   InterpretationBand = "severe_impairment"
)

// LowConfidenceThreshold marks responses worth a clinician's second look
const LowConfidenceThreshold = 0.7

// ScaleScore is the aggregate for one scale
type ScaleScore struct {
	AssessmentType    AssessmentType     `json:"assessment_type"`
	Total             int                `json:"total"`
	MaxScore          int                `json:"max_score"`
	Percentage        float64            `json:"percentage"`
	ConfidenceAverage float64            `json:"confidence_average"`
	ResponseCount     int                `json:"response_count"`
	Interpretation    InterpretationBand `json:"interpretation"`
}

// AssessmentScores is the aggregate over both scales
type AssessmentScores struct {
	IADL                   ScaleScore `json:"iadl"`
	ADL                    ScaleScore `json:"adl"`
	OverallConfidence      float64    `json:"overall_confidence"`
	LowConfidenceResponses int        `json:"low_confidence_responses"`
	ClarificationsNeeded   int        `json:"clarifications_needed"`
}
