package services

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"talentrank/internal/models"
)

// rawSampleLimit caps how much of a bad model response is kept for
// diagnostics.
const rawSampleLimit = 200

// ParseError means no usable JSON array could be recovered from the model
// output. The caller may re-ask the model with the same prompt.
type ParseError struct {
	Reason string
	Sample string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (raw output: %q)", e.Reason, e.Sample)
}

// ValidationError means the array parsed but some entries referenced
// candidate ids outside the batch. The offending entries are dropped and the
// survivors returned alongside this error.
type ValidationError struct {
	Dropped []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("response referenced %d unknown candidate id(s): %s",
		len(e.Dropped), strings.Join(e.Dropped, ", "))
}

// ResponseParser extracts scored candidates from raw model output, tolerating
// the formatting noise LLMs produce: surrounding prose, markdown fences,
// trailing commas.
type ResponseParser struct{}

func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

type rawScoredCandidate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights"`
}

// ParseScoredCandidates validates raw model output against the batch it was
// produced for. Scores outside [0,100] are clamped, missing highlights
// default to an empty list. Entries with ids not in the batch are dropped;
// when any were dropped the survivors come back with a *ValidationError.
func (rp *ResponseParser) ParseScoredCandidates(raw string, batch []models.Candidate) ([]models.ScoredCandidate, error) {
	jsonStr := extractJSONArray(raw)
	if jsonStr == "" {
		return nil, &ParseError{Reason: "no JSON array found in model output", Sample: truncateSample(raw)}
	}

	var entries []rawScoredCandidate
	if err := json.Unmarshal([]byte(stripTrailingCommas(jsonStr)), &entries); err != nil {
		return nil, &ParseError{
			Reason: fmt.Sprintf("failed to unmarshal JSON array: %v", err),
			Sample: truncateSample(raw),
		}
	}

	names := make(map[string]string, len(batch))
	for _, c := range batch {
		names[c.ID] = c.Name
	}

	var scored []models.ScoredCandidate
	var dropped []string
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		batchName, ok := names[entry.ID]
		if !ok {
			dropped = append(dropped, entry.ID)
			continue
		}

		name := entry.Name
		if name == "" {
			name = batchName
		}
		highlights := entry.Highlights
		if highlights == nil {
			highlights = []string{}
		}

		scored = append(scored, models.ScoredCandidate{
			ID:         entry.ID,
			Name:       name,
			Score:      clampScore(entry.Score),
			Highlights: highlights,
		})
	}

	if len(scored) == 0 {
		return nil, &ParseError{Reason: "no valid scored candidates in model output", Sample: truncateSample(raw)}
	}

	if len(dropped) > 0 {
		return scored, &ValidationError{Dropped: dropped}
	}

	return scored, nil
}

// extractJSONArray strips markdown fences and locates the outermost JSON
// array in text that may carry leading or trailing prose.
func extractJSONArray(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

var trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)

func stripTrailingCommas(jsonStr string) string {
	return trailingCommaRe.ReplaceAllString(jsonStr, "$1")
}

func clampScore(score float64) int {
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func truncateSample(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= rawSampleLimit {
		return raw
	}
	return raw[:rawSampleLimit] + "..."
}
