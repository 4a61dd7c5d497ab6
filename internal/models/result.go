package models

// ScoreRequest is the payload accepted by POST /api/v1/score. The boundary
// validates it (description non-empty and at most 200 chars, provider one of
// openai/gemini, candidates non-empty) before a task is created.
type ScoreRequest struct {
	JobDescription string      `json:"job_description" validate:"required,max=200"`
	Candidates     []Candidate `json:"candidates" validate:"required"`
	ModelProvider  string      `json:"model_provider"`
}

type ScoreResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TaskStatusResponse is the polling snapshot returned by GET /api/v1/score/:id.
type TaskStatusResponse struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Message      string         `json:"message,omitempty"`
	Result       *ScoringResult `json:"result,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}
