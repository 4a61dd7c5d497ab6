package models

// Candidate is one profile from the preprocessed candidate pool. The loader
// that produces these (CSV parsing, normalization, deduplication) lives
// outside this service; records arrive ready to score.
type Candidate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	JobTitle    string `json:"jobTitle,omitempty"`
	Headline    string `json:"headline,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Educations  string `json:"educations,omitempty"`
	Experiences string `json:"experiences,omitempty"`
	Skills      string `json:"skills,omitempty"`
}

// ScoredCandidate is the model's verdict for a single candidate.
type ScoredCandidate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Score      int      `json:"score"`
	Highlights []string `json:"highlights"`
}

// ScoringResult aggregates every scored candidate across all batches plus one
// human-readable error string per failed batch. A candidate missing from
// ScoredCandidates means its batch failed and Errors says why.
type ScoringResult struct {
	ScoredCandidates []ScoredCandidate `json:"scored_candidates"`
	Errors           []string          `json:"errors"`
}
