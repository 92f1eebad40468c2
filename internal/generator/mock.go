package generator

import (
	"context"
	"fmt"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

// MockGateway synthesizes deterministic questions for local development,
// honoring the requested types and counts exactly.
type MockGateway struct{}

func (m *MockGateway) GenerateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	total := req.TotalRequested()
	result := &BatchResult{TotalRequested: total}

	for _, r := range req.Requests {
		for i := 0; i < r.Count; i++ {
			result.Questions = append(result.Questions, mockQuestion(r.Type, req, i))
		}
	}
	result.TotalGenerated = len(result.Questions)
	return result, nil
}

func (m *MockGateway) GenerateBatchStream(ctx context.Context, req BatchRequest, deltas chan<- string) (*BatchResult, error) {
	defer close(deltas)
	for _, r := range req.Requests {
		select {
		case deltas <- fmt.Sprintf("[mock] drafting %d %s question(s)... ", r.Count, r.Type):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.GenerateBatch(ctx, req)
}

func mockQuestion(t models.QuestionType, req BatchRequest, i int) GeneratedQuestion {
	topic := req.ObjectiveText
	q := GeneratedQuestion{Type: t, Difficulty: req.Difficulty}

	switch t {
	case models.TypeMultipleChoice:
		correct := 0
		q.Content = models.QuestionContent{
			Question: fmt.Sprintf("[Mock %d] Which statement best reflects: %s?", i+1, topic),
			Options: []string{
				"The correct interpretation of the objective.",
				"A plausible but incomplete interpretation.",
				"A common misconception about the topic.",
				"An unrelated statement.",
			},
			CorrectAnswer: &correct,
			Explanation:   "The first option restates the objective accurately.",
		}
	case models.TypeTrueFalse:
		answer := i%2 == 0
		q.Content = models.QuestionContent{
			Statement:   fmt.Sprintf("[Mock %d] The objective %q is covered by the course material.", i+1, topic),
			Answer:      &answer,
			Explanation: "Mock explanation.",
		}
	case models.TypeFlashcard:
		q.Content = models.QuestionContent{
			Front: fmt.Sprintf("[Mock %d] Key term for: %s", i+1, topic),
			Back:  "Mock definition grounded in the material.",
		}
	case models.TypeSummary:
		q.Content = models.QuestionContent{
			Prompt:    fmt.Sprintf("[Mock %d] Summarize the main ideas behind: %s", i+1, topic),
			KeyPoints: []string{"First key point.", "Second key point."},
		}
	case models.TypeDiscussion:
		q.Content = models.QuestionContent{
			Prompt: fmt.Sprintf("[Mock %d] Discuss the implications of: %s", i+1, topic),
		}
	case models.TypeMatching:
		q.Content = models.QuestionContent{
			Pairs: []models.MatchingPair{
				{Left: "Term A", Right: "Definition A"},
				{Left: "Term B", Right: "Definition B"},
				{Left: "Term C", Right: "Definition C"},
			},
		}
	}
	return q
}
