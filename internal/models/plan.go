package models

import (
	"math"
	"time"
)

type PlanStatus string

const (
	PlanDraft    PlanStatus = "draft"
	PlanApproved PlanStatus = "approved"
	PlanModified PlanStatus = "modified"
	PlanUsed     PlanStatus = "used"
)

// ApproachTemplate is a seeded, read-only pedagogical approach definition.
// TargetRatios are qualitative and need not sum to 1; the planner
// normalizes them. MaxPerObjective is a hard per-cell ceiling; absent
// means unlimited.
type ApproachTemplate struct {
	ApproachID      string                   `json:"approach_id"`
	AllowedTypes    []QuestionType           `json:"allowed_types"`
	TargetRatios    map[QuestionType]float64 `json:"target_ratios"`
	MaxPerObjective map[QuestionType]int     `json:"max_per_objective,omitempty"`
	StrategyText    string                   `json:"strategy_text"`
}

// ── Breakdown ──────────────────────────────────────────

type TypeCount struct {
	Type      QuestionType `json:"type"`
	Count     int          `json:"count"`
	Reasoning string       `json:"reasoning,omitempty"`
}

type ObjectiveBreakdown struct {
	ObjectiveID int64       `json:"objective_id"`
	TypeCounts  []TypeCount `json:"type_counts"`
}

type Breakdown []ObjectiveBreakdown

func (b Breakdown) Total() int {
	total := 0
	for _, ob := range b {
		for _, tc := range ob.TypeCounts {
			total += tc.Count
		}
	}
	return total
}

// CellsFor returns the type counts planned for an objective, or nil if
// the breakdown has no entry for it.
func (b Breakdown) CellsFor(objectiveID int64) []TypeCount {
	for _, ob := range b {
		if ob.ObjectiveID == objectiveID {
			return ob.TypeCounts
		}
	}
	return nil
}

type DistributionEntry struct {
	Type       QuestionType `json:"type"`
	TotalCount int          `json:"total_count"`
	Percentage float64      `json:"percentage"`
}

// ComputeDistribution derives the per-type totals and percentages from a
// breakdown. It is the only way distribution is produced; it is
// recomputed on every breakdown mutation and never hand-edited.
func ComputeDistribution(b Breakdown) []DistributionEntry {
	counts := make(map[QuestionType]int)
	total := 0
	for _, ob := range b {
		for _, tc := range ob.TypeCounts {
			counts[tc.Type] += tc.Count
			total += tc.Count
		}
	}

	var dist []DistributionEntry
	for _, t := range AllQuestionTypes {
		c, ok := counts[t]
		if !ok || c == 0 {
			continue
		}
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(c)/float64(total)*1000) / 10
		}
		dist = append(dist, DistributionEntry{Type: t, TotalCount: c, Percentage: pct})
	}
	return dist
}

// ── Generation Plan ────────────────────────────────────

type ModificationRecord struct {
	EditedBy          string    `json:"edited_by"`
	EditedAt          time.Time `json:"edited_at"`
	Description       string    `json:"description,omitempty"`
	PreviousBreakdown Breakdown `json:"previous_breakdown"`
}

type GenerationPlan struct {
	ID                    int64                `json:"id"`
	QuizID                int64                `json:"quiz_id"`
	Approach              string               `json:"approach"`
	QuestionsPerObjective int                  `json:"questions_per_objective,omitempty"`
	TotalQuestions        int                  `json:"total_questions"`
	Breakdown             Breakdown            `json:"breakdown"`
	Distribution          []DistributionEntry  `json:"distribution"`
	Status                PlanStatus           `json:"status"`
	ModificationHistory   []ModificationRecord `json:"modification_history,omitempty"`
	ApprovedAt            *time.Time           `json:"approved_at,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}
