package generator

import (
	"strings"
	"testing"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

func TestParseBatchValid(t *testing.T) {
	body := `{
		"questions": [
			{"type": "multiple-choice", "question": "Q1?", "options": ["a", "b", "c", "d"], "correct_answer": 2, "explanation": "because"},
			{"type": "true-false", "statement": "S1", "answer": true}
		]
	}`
	requests := []TypeCountRequest{
		{Type: models.TypeMultipleChoice, Count: 1},
		{Type: models.TypeTrueFalse, Count: 1},
	}

	result, err := ParseBatch(body, requests)
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if result.TotalGenerated != 2 || len(result.Errors) != 0 {
		t.Fatalf("generated=%d errors=%v", result.TotalGenerated, result.Errors)
	}
	mc := result.Questions[0]
	if mc.Type != models.TypeMultipleChoice || *mc.Content.CorrectAnswer != 2 {
		t.Errorf("multiple-choice question = %+v", mc)
	}
	tf := result.Questions[1]
	if tf.Type != models.TypeTrueFalse || tf.Content.Answer == nil || !*tf.Content.Answer {
		t.Errorf("true-false question = %+v", tf)
	}
}

func TestParseBatchStripsCodeFences(t *testing.T) {
	body := "```json\n{\"questions\": [{\"type\": \"flashcard\", \"front\": \"F\", \"back\": \"B\"}]}\n```"
	result, err := ParseBatch(body, []TypeCountRequest{{Type: models.TypeFlashcard, Count: 1}})
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if result.TotalGenerated != 1 {
		t.Errorf("generated = %d, want 1", result.TotalGenerated)
	}
}

func TestParseBatchUnparseableResponse(t *testing.T) {
	_, err := ParseBatch("not json at all", []TypeCountRequest{{Type: models.TypeFlashcard, Count: 1}})
	if err == nil {
		t.Fatal("expected an error for an unparseable response")
	}
}

func TestParseBatchDropsInvalidQuestions(t *testing.T) {
	// correct_answer out of range; the question is dropped and reported.
	body := `{"questions": [
		{"type": "multiple-choice", "question": "Q?", "options": ["a", "b", "c"], "correct_answer": 5}
	]}`
	result, err := ParseBatch(body, []TypeCountRequest{{Type: models.TypeMultipleChoice, Count: 1}})
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if result.TotalGenerated != 0 {
		t.Errorf("generated = %d, want 0", result.TotalGenerated)
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected errors for the invalid question and the shortfall")
	}
}

func TestParseBatchReportsShortfall(t *testing.T) {
	body := `{"questions": [{"type": "flashcard", "front": "F", "back": "B"}]}`
	result, err := ParseBatch(body, []TypeCountRequest{{Type: models.TypeFlashcard, Count: 3}})
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if result.TotalGenerated != 1 {
		t.Errorf("generated = %d, want 1", result.TotalGenerated)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0].Message, "generated 1 of 3") {
		t.Errorf("shortfall message = %q", result.Errors[0].Message)
	}
}

func TestParseBatchRejectsUnrequestedType(t *testing.T) {
	body := `{"questions": [
		{"type": "discussion", "prompt": "Discuss."},
		{"type": "flashcard", "front": "F", "back": "B"}
	]}`
	result, err := ParseBatch(body, []TypeCountRequest{{Type: models.TypeFlashcard, Count: 1}})
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if result.TotalGenerated != 1 {
		t.Errorf("generated = %d, want 1", result.TotalGenerated)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Message, "not requested") {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestParseBatchTruncatesSurplus(t *testing.T) {
	body := `{"questions": [
		{"type": "flashcard", "front": "F1", "back": "B1"},
		{"type": "flashcard", "front": "F2", "back": "B2"},
		{"type": "flashcard", "front": "F3", "back": "B3"}
	]}`
	result, err := ParseBatch(body, []TypeCountRequest{{Type: models.TypeFlashcard, Count: 2}})
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	// The quota is exact; surplus is dropped silently.
	if result.TotalGenerated != 2 || len(result.Errors) != 0 {
		t.Errorf("generated=%d errors=%v", result.TotalGenerated, result.Errors)
	}
	if result.Questions[0].Content.Front != "F1" || result.Questions[1].Content.Front != "F2" {
		t.Error("surplus truncation should keep the earliest questions")
	}
}

func TestValidateContentPerType(t *testing.T) {
	answer := true
	idx := 0
	valid := map[models.QuestionType]models.QuestionContent{
		models.TypeMultipleChoice: {Question: "Q?", Options: []string{"a", "b", "c"}, CorrectAnswer: &idx},
		models.TypeTrueFalse:      {Statement: "S", Answer: &answer},
		models.TypeFlashcard:      {Front: "F", Back: "B"},
		models.TypeSummary:        {Prompt: "P", KeyPoints: []string{"k"}},
		models.TypeDiscussion:     {Prompt: "P"},
		models.TypeMatching: {Pairs: []models.MatchingPair{
			{Left: "a", Right: "1"}, {Left: "b", Right: "2"}, {Left: "c", Right: "3"},
		}},
	}
	for qt, content := range valid {
		if err := validateContent(qt, content); err != nil {
			t.Errorf("valid %s content rejected: %v", qt, err)
		}
	}

	if err := validateContent(models.TypeMatching, models.QuestionContent{
		Pairs: []models.MatchingPair{{Left: "a", Right: "1"}},
	}); err == nil {
		t.Error("matching with fewer than 3 pairs should be rejected")
	}
	if err := validateContent("essay", models.QuestionContent{}); err == nil {
		t.Error("unknown type should be rejected")
	}
}
