package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

type rawBatch struct {
	Questions []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Type       models.QuestionType `json:"type"`
	Difficulty models.Difficulty   `json:"difficulty,omitempty"`
	models.QuestionContent
}

// ParseBatch parses a generator response against what was requested.
// Structurally invalid questions, unrequested types, and per-type
// surplus are dropped and reported as batch errors; only an unparseable
// response is an error return.
func ParseBatch(responseBody string, requests []TypeCountRequest) (*BatchResult, error) {
	cleaned := stripCodeFences(responseBody)

	var raw rawBatch
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	requested := make(map[models.QuestionType]int, len(requests))
	totalRequested := 0
	for _, r := range requests {
		requested[r.Type] += r.Count
		totalRequested += r.Count
	}

	result := &BatchResult{TotalRequested: totalRequested}
	kept := make(map[models.QuestionType]int)

	for i, q := range raw.Questions {
		want, ok := requested[q.Type]
		if !ok {
			result.Errors = append(result.Errors, BatchError{
				Type:    q.Type,
				Message: fmt.Sprintf("question %d: type %q was not requested", i+1, q.Type),
			})
			continue
		}
		if kept[q.Type] >= want {
			// Surplus beyond the requested count; the quota is exact.
			continue
		}
		if err := validateContent(q.Type, q.QuestionContent); err != nil {
			result.Errors = append(result.Errors, BatchError{
				Type:    q.Type,
				Message: fmt.Sprintf("question %d: %v", i+1, err),
			})
			continue
		}

		kept[q.Type]++
		result.Questions = append(result.Questions, GeneratedQuestion{
			Type:       q.Type,
			Difficulty: q.Difficulty,
			Content:    q.QuestionContent,
		})
	}

	// Per-type shortfall, reported in request order.
	for _, r := range requests {
		if got := kept[r.Type]; got < r.Count {
			result.Errors = append(result.Errors, BatchError{
				Type:    r.Type,
				Message: fmt.Sprintf("generated %d of %d requested %s question(s)", got, r.Count, r.Type),
			})
		}
	}

	result.TotalGenerated = len(result.Questions)
	return result, nil
}

func validateContent(t models.QuestionType, c models.QuestionContent) error {
	switch t {
	case models.TypeMultipleChoice:
		if c.Question == "" {
			return fmt.Errorf("empty question text")
		}
		if len(c.Options) < 3 {
			return fmt.Errorf("expected at least 3 options, got %d", len(c.Options))
		}
		if c.CorrectAnswer == nil {
			return fmt.Errorf("missing correct_answer")
		}
		if *c.CorrectAnswer < 0 || *c.CorrectAnswer >= len(c.Options) {
			return fmt.Errorf("correct_answer %d out of range for %d options", *c.CorrectAnswer, len(c.Options))
		}
	case models.TypeTrueFalse:
		if c.Statement == "" {
			return fmt.Errorf("empty statement")
		}
		if c.Answer == nil {
			return fmt.Errorf("missing answer")
		}
	case models.TypeFlashcard:
		if c.Front == "" || c.Back == "" {
			return fmt.Errorf("flashcard needs both front and back")
		}
	case models.TypeSummary:
		if c.Prompt == "" {
			return fmt.Errorf("empty summary prompt")
		}
		if len(c.KeyPoints) == 0 {
			return fmt.Errorf("summary needs key points")
		}
	case models.TypeDiscussion:
		if c.Prompt == "" {
			return fmt.Errorf("empty discussion prompt")
		}
	case models.TypeMatching:
		if len(c.Pairs) < 3 {
			return fmt.Errorf("expected at least 3 matching pairs, got %d", len(c.Pairs))
		}
		for i, p := range c.Pairs {
			if p.Left == "" || p.Right == "" {
				return fmt.Errorf("matching pair %d has an empty side", i+1)
			}
		}
	default:
		return fmt.Errorf("unknown question type %q", t)
	}
	return nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
