package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type rawAnalysis struct {
	Themes           *[]rawTheme     `json:"themes"`
	ExecutiveSummary *string         `json:"executive_summary"`
	AgileRisks       json.RawMessage `json:"agile_risks"`
}

type rawTheme struct {
	Name       string          `json:"name"`
	Confidence json.Number     `json:"confidence"`
	Sentiment  string          `json:"sentiment"`
	Count      json.Number     `json:"count"`
	Summary    string          `json:"summary"`
	Evidence   json.RawMessage `json:"evidence"`
}

type parsedAnalysis struct {
	Themes           []Theme
	ExecutiveSummary string
	AgileRisks       json.RawMessage
}

// parseAnalysis accepts a model response only if it carries a themes array
// (possibly empty) and an executive_summary string. Field values are
// normalized rather than rejected.
func parseAnalysis(text string) (*parsedAnalysis, error) {
	body := stripCodeFence(text)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var raw rawAnalysis
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Themes == nil {
		return nil, fmt.Errorf("%w: missing themes array", ErrMalformedResponse)
	}
	if raw.ExecutiveSummary == nil {
		return nil, fmt.Errorf("%w: missing executive_summary", ErrMalformedResponse)
	}

	out := &parsedAnalysis{
		Themes:           make([]Theme, 0, len(*raw.Themes)),
		ExecutiveSummary: strings.TrimSpace(*raw.ExecutiveSummary),
	}
	for _, rt := range *raw.Themes {
		out.Themes = append(out.Themes, Theme{
			Name:       strings.TrimSpace(rt.Name),
			Confidence: clamp(numberOr(rt.Confidence, 0), 0, 100),
			Sentiment:  normalizeSentiment(rt.Sentiment),
			Count:      int(clamp(numberOr(rt.Count, 0), 0, 1<<31-1)),
			Summary:    strings.TrimSpace(rt.Summary),
			Evidence:   evidence(rt.Evidence),
		})
	}

	risks := bytes.TrimSpace(raw.AgileRisks)
	if len(risks) > 0 && !bytes.Equal(risks, []byte("null")) && json.Valid(risks) {
		out.AgileRisks = json.RawMessage(risks)
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalizeSentiment(s string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return Positive
	case "negative":
		return Negative
	case "critical":
		return Critical
	default:
		return Neutral
	}
}

func numberOr(n json.Number, def float64) float64 {
	if n == "" {
		return def
	}
	f, err := n.Float64()
	if err != nil {
		return def
	}
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// evidence tolerates a single string where a list was requested.
func evidence(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, q := range list {
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, q)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		out = append(out, strings.TrimSpace(single))
	}
	return out
}
