package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"talentrank/internal/models"
)

// PromptBuilder assembles scoring prompts. It is pure: the same job
// description and batch always produce the same prompt.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

const systemInstruction = `You are an expert recruitment assistant. Your task is to evaluate candidate profiles based on a provided job description.
Score each candidate on a scale of 0 to 100, where 100 represents a perfect match.
Provide a concise list of 2-3 bullet points as 'highlights', explaining the key reasons for the score, focusing on the candidate's alignment with the job description's requirements (skills, experience, qualifications).
Format your response STRICTLY as a JSON list, where each element is a JSON object containing 'id', 'name', 'score', and 'highlights' for each candidate provided. Do not include any introductory text, closing remarks, or markdown formatting outside the JSON structure.`

type fewShotExample struct {
	jobDescription string
	candidates     []models.Candidate
	scored         []models.ScoredCandidate
}

var fewShotExamples = []fewShotExample{
	{
		jobDescription: "Software Engineer - Backend (Python, Django, AWS)",
		candidates: []models.Candidate{
			{
				ID:      "c1",
				Name:    "Jane Doe",
				Summary: "Experienced Python developer with 5 years in backend systems. Proficient in Django and Flask. Deployed applications on AWS.",
				Skills:  "Python, Django, Flask, AWS, PostgreSQL",
			},
			{
				ID:      "c2",
				Name:    "John Smith",
				Summary: "Frontend developer focused on React and Vue. Some experience with Node.js.",
				Skills:  "JavaScript, React, Vue, HTML, CSS",
			},
		},
		scored: []models.ScoredCandidate{
			{
				ID:    "c1",
				Name:  "Jane Doe",
				Score: 90,
				Highlights: []string{
					"Strong Python and Django experience directly relevant to the role.",
					"Proven experience with AWS deployment.",
					"Backend focus aligns well with job requirements.",
				},
			},
			{
				ID:    "c2",
				Name:  "John Smith",
				Score: 30,
				Highlights: []string{
					"Primary experience is in frontend technologies (React, Vue).",
					"Lacks required backend Python/Django skills.",
					"No mention of AWS experience.",
				},
			},
		},
	},
}

// BuildScoringPrompt produces the full prompt for one batch: system
// instruction, few-shot examples, the job description and the serialized
// candidate profiles.
func (pb *PromptBuilder) BuildScoringPrompt(jobDescription string, batch []models.Candidate) string {
	var sb strings.Builder

	sb.WriteString(systemInstruction)
	sb.WriteString("\n\n")

	for _, example := range fewShotExamples {
		sb.WriteString("EXAMPLE INPUT:\n")
		sb.WriteString(pb.buildUserSection(example.jobDescription, example.candidates))
		sb.WriteString("\n\nEXAMPLE OUTPUT:\n")
		sb.WriteString(formatScoredCandidates(example.scored))
		sb.WriteString("\n\n")
	}

	sb.WriteString(pb.buildUserSection(jobDescription, batch))

	return sb.String()
}

func (pb *PromptBuilder) buildUserSection(jobDescription string, candidates []models.Candidate) string {
	return fmt.Sprintf(`Job Description:
---
%s
---

Candidate Profiles (Format: JSON list):
---
%s
---

Evaluate the candidates based on the job description and provide the results STRICTLY in the specified JSON format list:
[
    {
        "id": "candidate_id",
        "name": "candidate_name",
        "score": <0-100>,
        "highlights": ["bullet point 1", "bullet point 2", ...]
    },
    ...
]`, jobDescription, formatCandidates(candidates))
}

// formatCandidates serializes the batch with only the fields relevant to
// scoring.
func formatCandidates(candidates []models.Candidate) string {
	b, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func formatScoredCandidates(scored []models.ScoredCandidate) string {
	b, err := json.MarshalIndent(scored, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
