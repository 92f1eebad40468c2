package approach

import (
	"errors"
	"fmt"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

var ErrNotFound = errors.New("approach template not found")

// Seeded pedagogical approach templates. Ratios are qualitative targets
// (only the grand total of a plan is exact); caps are hard ceilings
// enforced by the planner. Templates are read-only after seeding.
var templates = map[string]models.ApproachTemplate{
	"assess": {
		ApproachID:   "assess",
		AllowedTypes: []models.QuestionType{models.TypeMultipleChoice, models.TypeTrueFalse},
		TargetRatios: map[models.QuestionType]float64{
			models.TypeMultipleChoice: 0.65,
			models.TypeTrueFalse:      0.35,
		},
		StrategyText: "Assess mastery with objective item formats. Favour multiple-choice " +
			"questions that test application over recall, with true-false items as quick checks.",
	},
	"support": {
		ApproachID:   "support",
		AllowedTypes: []models.QuestionType{models.TypeFlashcard, models.TypeSummary},
		TargetRatios: map[models.QuestionType]float64{
			models.TypeFlashcard: 0.75,
			models.TypeSummary:   0.25,
		},
		MaxPerObjective: map[models.QuestionType]int{
			models.TypeSummary: 1,
		},
		StrategyText: "Support study and review. Flashcards carry the load; at most one " +
			"summary exercise per objective ties the concepts together.",
	},
	"gauge": {
		ApproachID: "gauge",
		AllowedTypes: []models.QuestionType{
			models.TypeMultipleChoice, models.TypeTrueFalse, models.TypeDiscussion,
		},
		TargetRatios: map[models.QuestionType]float64{
			models.TypeMultipleChoice: 0.5,
			models.TypeTrueFalse:      0.3,
			models.TypeDiscussion:     0.2,
		},
		MaxPerObjective: map[models.QuestionType]int{
			models.TypeDiscussion: 1,
		},
		StrategyText: "Gauge prior knowledge before instruction. Short objective items " +
			"surface misconceptions; one open discussion prompt per objective invites reasoning.",
	},
}

var ids = []string{"assess", "support", "gauge"}

// Get returns a copy of the template so callers cannot mutate the seeded
// registry through the returned maps.
func Get(approachID string) (*models.ApproachTemplate, error) {
	t, ok := templates[approachID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, approachID)
	}

	out := models.ApproachTemplate{
		ApproachID:   t.ApproachID,
		AllowedTypes: append([]models.QuestionType{}, t.AllowedTypes...),
		TargetRatios: make(map[models.QuestionType]float64, len(t.TargetRatios)),
		StrategyText: t.StrategyText,
	}
	for k, v := range t.TargetRatios {
		out.TargetRatios[k] = v
	}
	if len(t.MaxPerObjective) > 0 {
		out.MaxPerObjective = make(map[models.QuestionType]int, len(t.MaxPerObjective))
		for k, v := range t.MaxPerObjective {
			out.MaxPerObjective[k] = v
		}
	}
	return &out, nil
}

// IDs lists the seeded approach ids in a stable order.
func IDs() []string {
	return append([]string{}, ids...)
}

// StrategyText returns the guidance text for an approach, or empty for
// unknown/custom approaches.
func StrategyText(approachID string) string {
	if t, ok := templates[approachID]; ok {
		return t.StrategyText
	}
	return ""
}
