package models

import "time"

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple-choice"
	TypeTrueFalse      QuestionType = "true-false"
	TypeFlashcard      QuestionType = "flashcard"
	TypeSummary        QuestionType = "summary"
	TypeDiscussion     QuestionType = "discussion"
	TypeMatching       QuestionType = "matching"
)

// AllQuestionTypes is the canonical ordering used for deterministic
// iteration (default cells, distribution rows, tie-breaks).
var AllQuestionTypes = []QuestionType{
	TypeMultipleChoice,
	TypeTrueFalse,
	TypeFlashcard,
	TypeSummary,
	TypeDiscussion,
	TypeMatching,
}

var ValidQuestionTypes = map[QuestionType]bool{
	TypeMultipleChoice: true,
	TypeTrueFalse:      true,
	TypeFlashcard:      true,
	TypeSummary:        true,
	TypeDiscussion:     true,
	TypeMatching:       true,
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// ── Question Content ───────────────────────────────────

type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// QuestionContent is the typed payload of a generated question. Which
// fields are populated depends on the question type; unused fields are
// omitted from JSON.
type QuestionContent struct {
	// multiple-choice
	Question      string   `json:"question,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`

	// true-false
	Statement string `json:"statement,omitempty"`
	Answer    *bool  `json:"answer,omitempty"`

	// flashcard
	Front string `json:"front,omitempty"`
	Back  string `json:"back,omitempty"`

	// summary / discussion
	Prompt    string   `json:"prompt,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`

	// matching
	Pairs []MatchingPair `json:"pairs,omitempty"`

	Explanation string `json:"explanation,omitempty"`
}

type Question struct {
	ID            string          `json:"id"`
	QuizID        int64           `json:"quiz_id"`
	ObjectiveID   int64           `json:"objective_id"`
	ObjectiveText string          `json:"objective_text,omitempty"`
	Type          QuestionType    `json:"type"`
	Content       QuestionContent `json:"content"`
	Difficulty    Difficulty      `json:"difficulty"`
	CreatedAt     time.Time       `json:"created_at"`
}
