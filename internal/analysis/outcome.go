package analysis

import (
	"encoding/json"
	"time"
)

type Sentiment string

const (
	Positive Sentiment = "Positive"
	Neutral  Sentiment = "Neutral"
	Negative Sentiment = "Negative"
	Critical Sentiment = "Critical"
)

const (
	EmptySummary     = "No feedback to analyze."
	FailedPrefix     = "Analysis failed: "
	ModelUsedNone    = "none"
	ModelUsedError   = "error"
	creditsExhausted = "AI Analysis Credits Exhausted. Every provider is currently at its limit; please try again later."
)

type Theme struct {
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	Sentiment  Sentiment `json:"sentiment"`
	Count      int       `json:"count"`
	Summary    string    `json:"summary"`
	Evidence   []string  `json:"evidence"`
}

// Attempt records one provider/model call made by the chain.
type Attempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Kind     string        `json:"kind,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Outcome is what the chain produces for one upload. A failed outcome has
// Error set and is still a value, never a Go error.
type Outcome struct {
	Themes           []Theme
	AgileRisks       json.RawMessage
	ExecutiveSummary string
	ConfidenceScore  float64
	ProcessingTime   time.Duration
	ModelUsed        string
	FeedbackCount    int
	FeedbackAnalyzed int
	Error            string
	Attempts         []Attempt
}

func (o *Outcome) Failed() bool { return o.Error != "" }

func emptyOutcome() *Outcome {
	return &Outcome{
		Themes:           []Theme{},
		ExecutiveSummary: EmptySummary,
		ModelUsed:        ModelUsedNone,
	}
}

// FailedOutcome builds the error-shaped outcome for diagnostic msg.
func FailedOutcome(msg string) *Outcome {
	return &Outcome{
		Themes:           []Theme{},
		ExecutiveSummary: FailedPrefix + msg,
		ModelUsed:        ModelUsedError,
		Error:            msg,
	}
}

func meanConfidence(themes []Theme) float64 {
	if len(themes) == 0 {
		return 0
	}
	var sum float64
	for _, t := range themes {
		sum += t.Confidence
	}
	return sum / float64(len(themes))
}
