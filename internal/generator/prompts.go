package generator

import (
	"fmt"
	"strings"
)

func SystemPrompt() string {
	return `You are a question author for a university quiz-building tool. You write
clear, pedagogically sound quiz questions grounded strictly in the course
material provided. You respond with a single JSON object and nothing else.`
}

// BuildBatchPrompt assembles one user prompt for an objective's whole
// batch: the (type, count) requests, the retrieved context chunks, and
// the course/approach framing.
func BuildBatchPrompt(req BatchRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Learning objective:\n%s\n\n", req.ObjectiveText)

	if req.CourseContext != "" {
		fmt.Fprintf(&b, "Course context: %s\n\n", req.CourseContext)
	}
	if req.Guidance != "" {
		fmt.Fprintf(&b, "Pedagogical guidance: %s\n\n", req.Guidance)
	}
	if req.Difficulty != "" {
		fmt.Fprintf(&b, "Target difficulty: %s\n\n", req.Difficulty)
	}

	b.WriteString("Generate exactly the following questions:\n")
	for _, r := range req.Requests {
		fmt.Fprintf(&b, "- %d %s question(s)\n", r.Count, r.Type)
	}
	b.WriteString("\n")

	if len(req.Context) > 0 {
		b.WriteString("Base every question on the following course material excerpts:\n\n")
		for i, chunk := range req.Context {
			fmt.Fprintf(&b, "[%d] %s\n\n", i+1, chunk.Text)
		}
	} else {
		b.WriteString("No course material excerpts are available; rely on the objective and course context alone.\n\n")
	}

	b.WriteString(responseFormat)
	return b.String()
}

const responseFormat = `Respond with JSON of this exact shape:
{
  "questions": [
    {"type": "multiple-choice", "difficulty": "medium", "question": "...", "options": ["...", "...", "...", "..."], "correct_answer": 0, "explanation": "..."},
    {"type": "true-false", "statement": "...", "answer": true, "explanation": "..."},
    {"type": "flashcard", "front": "...", "back": "..."},
    {"type": "summary", "prompt": "...", "key_points": ["...", "..."]},
    {"type": "discussion", "prompt": "..."},
    {"type": "matching", "pairs": [{"left": "...", "right": "..."}, {"left": "...", "right": "..."}, {"left": "...", "right": "..."}]}
  ]
}
Include only the requested types and counts. "correct_answer" is the 0-based
index into "options". Do not wrap the JSON in markdown fences.`
