package analysis

import (
	"fmt"
	"strings"
)

const (
	promptTemperature = 0.3
	promptMaxTokens   = 2000
)

const systemPrompt = `You are an expert product feedback analyst. Extract key themes, sentiment, and insights.

Return valid JSON with this structure:
{
  "themes": [
    {
      "name": "Theme name",
      "confidence": 85,
      "sentiment": "Critical",
      "count": 12,
      "summary": "Brief description",
      "evidence": ["quote 1", "quote 2", "quote 3"]
    }
  ],
  "executive_summary": "Overall analysis...",
  "agile_risks": {
    "pattern": "Optional delivery risk pattern you observed",
    "severity": "Low | Medium | High",
    "description": "Why the pattern matters",
    "signals": ["quote or observation"]
  }
}

Sentiment must be: Positive, Neutral, Negative, or Critical.
Omit "agile_risks" when no delivery risk is visible.`

// BuildPrompt renders texts as a numbered list inside the analysis request.
func BuildPrompt(texts []string) Prompt {
	var list strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&list, "%d. %s\n", i+1, t)
	}

	user := fmt.Sprintf(`Analyze these %d customer feedback items and extract:
1. The top 3-5 most important themes
2. A confidence score (0-100) for each theme
3. A sentiment for each theme
4. An estimated count of items per theme
5. 3-5 evidence quotes taken from the feedback
6. A 2-3 sentence executive summary

Feedback:
%s
Return ONLY the JSON object.`, len(texts), list.String())

	return Prompt{
		System:      systemPrompt,
		User:        user,
		Temperature: promptTemperature,
		MaxTokens:   promptMaxTokens,
	}
}
