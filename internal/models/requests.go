package models

type ErrorResponse struct {
	Error string `json:"error"`
}

// CustomFormula is supplied when approach is "custom": the caller picks
// the allowed types, their qualitative ratios and optional per-objective
// caps directly instead of using a seeded template.
type CustomFormula struct {
	Types  []QuestionType           `json:"types"`
	Ratios map[QuestionType]float64 `json:"ratios,omitempty"`
	Caps   map[QuestionType]int     `json:"caps,omitempty"`
}

type CreatePlanRequest struct {
	Approach              string         `json:"approach"`
	QuestionsPerObjective int            `json:"questions_per_objective,omitempty"`
	TotalQuestions        int            `json:"total_questions,omitempty"`
	Custom                *CustomFormula `json:"custom,omitempty"`
}

type UpdatePlanRequest struct {
	Breakdown   Breakdown `json:"breakdown"`
	EditedBy    string    `json:"edited_by"`
	Description string    `json:"description,omitempty"`
}

type CreateQuizRequest struct {
	Name          string     `json:"name"`
	CourseContext string     `json:"course_context,omitempty"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
	Objectives    []string   `json:"objectives"`
}
