package plans

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ubc/tlef-create-sub004/internal/approach"
	"github.com/ubc/tlef-create-sub004/internal/models"
	"github.com/ubc/tlef-create-sub004/internal/planner"
)

// ErrPlanUsed is returned when a caller tries to mutate or delete a plan
// that has already been consumed by a generation run.
var ErrPlanUsed = errors.New("plan has been used and is immutable")

// ObjectiveSource supplies the learning objectives a plan distributes
// questions across.
type ObjectiveSource interface {
	ListObjectives(quizID int64) ([]models.LearningObjective, error)
}

// PlanStore is the persistence the service drives. *Store is the
// Postgres implementation.
type PlanStore interface {
	Create(plan *models.GenerationPlan) (*models.GenerationPlan, error)
	GetByID(planID int64) (*models.GenerationPlan, error)
	ListByQuiz(quizID int64) ([]models.GenerationPlan, error)
	ActivePlan(quizID int64) (*models.GenerationPlan, error)
	Approve(planID, quizID int64) error
	UpdateBreakdown(plan *models.GenerationPlan, record models.ModificationRecord) error
	MarkUsed(planID int64) error
	Delete(planID int64) error
}

type Service struct {
	store      PlanStore
	objectives ObjectiveSource
}

func NewService(store PlanStore, objectives ObjectiveSource) *Service {
	return &Service{store: store, objectives: objectives}
}

// Create plans a new draft distribution for a quiz. The total question
// count is either explicit or questions-per-objective times the number
// of objectives.
func (s *Service) Create(quizID int64, req models.CreatePlanRequest) (*models.GenerationPlan, error) {
	objectives, err := s.objectives.ListObjectives(quizID)
	if err != nil {
		return nil, fmt.Errorf("load objectives: %w", err)
	}

	formula, err := resolveFormula(req)
	if err != nil {
		return nil, err
	}

	total := req.TotalQuestions
	if total == 0 && req.QuestionsPerObjective > 0 {
		total = req.QuestionsPerObjective * len(objectives)
	}

	breakdown, err := planner.Plan(objectives, total, formula)
	if err != nil {
		return nil, err
	}

	plan := &models.GenerationPlan{
		QuizID:                quizID,
		Approach:              req.Approach,
		QuestionsPerObjective: req.QuestionsPerObjective,
		TotalQuestions:        breakdown.Total(),
		Breakdown:             breakdown,
		Distribution:          models.ComputeDistribution(breakdown),
		Status:                models.PlanDraft,
	}

	created, err := s.store.Create(plan)
	if err != nil {
		return nil, err
	}
	log.Printf("[plans] created plan %d for quiz %d (%s, %d questions)",
		created.ID, quizID, created.Approach, created.TotalQuestions)
	return created, nil
}

func resolveFormula(req models.CreatePlanRequest) (planner.Formula, error) {
	if req.Approach == "custom" {
		if req.Custom == nil {
			return planner.Formula{}, &planner.PlanningError{Reason: "custom approach requires a custom formula"}
		}
		return planner.FormulaFromCustom(req.Custom), nil
	}
	tmpl, err := approach.Get(req.Approach)
	if err != nil {
		return planner.Formula{}, err
	}
	return planner.FormulaFromTemplate(tmpl), nil
}

func (s *Service) Get(planID int64) (*models.GenerationPlan, error) {
	return s.store.GetByID(planID)
}

func (s *Service) ListByQuiz(quizID int64) ([]models.GenerationPlan, error) {
	return s.store.ListByQuiz(quizID)
}

func (s *Service) ActivePlan(quizID int64) (*models.GenerationPlan, error) {
	return s.store.ActivePlan(quizID)
}

// Approve transitions a plan to approved and demotes any other approved
// plan of the same quiz back to draft. Used plans cannot be re-approved.
func (s *Service) Approve(planID int64) (*models.GenerationPlan, error) {
	plan, err := s.store.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanUsed {
		return nil, ErrPlanUsed
	}

	if err := s.store.Approve(planID, plan.QuizID); err != nil {
		return nil, err
	}
	log.Printf("[plans] approved plan %d for quiz %d", planID, plan.QuizID)
	return s.store.GetByID(planID)
}

// UpdateBreakdown applies a manual edit: the new breakdown is validated,
// the total and distribution are recomputed, exactly one modification
// record is appended, and the plan drops back to modified so it needs
// re-approval before use.
func (s *Service) UpdateBreakdown(planID int64, req models.UpdatePlanRequest) (*models.GenerationPlan, error) {
	plan, err := s.store.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanUsed {
		return nil, ErrPlanUsed
	}

	record, err := applyBreakdown(plan, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateBreakdown(plan, record); err != nil {
		return nil, err
	}
	log.Printf("[plans] plan %d breakdown edited by %s (total now %d)",
		planID, record.EditedBy, plan.TotalQuestions)
	return s.store.GetByID(planID)
}

// applyBreakdown mutates the in-memory plan with the edited breakdown
// and returns the modification record to persist alongside it.
func applyBreakdown(plan *models.GenerationPlan, req models.UpdatePlanRequest) (models.ModificationRecord, error) {
	if err := validateBreakdown(req.Breakdown); err != nil {
		return models.ModificationRecord{}, err
	}
	if req.EditedBy == "" {
		return models.ModificationRecord{}, fmt.Errorf("edited_by is required")
	}

	record := models.ModificationRecord{
		EditedBy:          req.EditedBy,
		EditedAt:          time.Now().UTC(),
		Description:       req.Description,
		PreviousBreakdown: plan.Breakdown,
	}

	plan.Breakdown = req.Breakdown
	plan.TotalQuestions = req.Breakdown.Total()
	plan.Distribution = models.ComputeDistribution(req.Breakdown)
	plan.Status = models.PlanModified
	plan.ModificationHistory = append(plan.ModificationHistory, record)
	return record, nil
}

func validateBreakdown(b models.Breakdown) error {
	if len(b) == 0 {
		return fmt.Errorf("breakdown must cover at least one objective")
	}
	seen := make(map[int64]bool, len(b))
	for _, ob := range b {
		if seen[ob.ObjectiveID] {
			return fmt.Errorf("duplicate objective %d in breakdown", ob.ObjectiveID)
		}
		seen[ob.ObjectiveID] = true
		for _, tc := range ob.TypeCounts {
			if !models.ValidQuestionTypes[tc.Type] {
				return fmt.Errorf("unknown question type %q", tc.Type)
			}
			if tc.Count < 0 {
				return fmt.Errorf("negative count for %s on objective %d", tc.Type, ob.ObjectiveID)
			}
		}
	}
	if b.Total() < 1 {
		return fmt.Errorf("breakdown must request at least one question")
	}
	return nil
}

// MarkUsed is the terminal transition, taken when a generation run
// consumes the plan.
func (s *Service) MarkUsed(planID int64) error {
	return s.store.MarkUsed(planID)
}

func (s *Service) Delete(planID int64) error {
	plan, err := s.store.GetByID(planID)
	if err != nil {
		return err
	}
	if plan.Status == models.PlanUsed {
		return ErrPlanUsed
	}
	return s.store.Delete(planID)
}
