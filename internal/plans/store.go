package plans

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

var ErrNotFound = errors.New("plan not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const planColumns = `id, quiz_id, approach, questions_per_objective, total_questions,
	        breakdown, distribution, status, approved_at, created_at, updated_at`

func (s *Store) Create(plan *models.GenerationPlan) (*models.GenerationPlan, error) {
	breakdown, distribution, err := marshalDerived(plan)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(
		`INSERT INTO generation_plans
		 (quiz_id, approach, questions_per_objective, total_questions, breakdown, distribution, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		plan.QuizID, plan.Approach, plan.QuestionsPerObjective, plan.TotalQuestions,
		breakdown, distribution, plan.Status,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return plan, nil
}

func (s *Store) GetByID(planID int64) (*models.GenerationPlan, error) {
	plan, err := s.scanPlan(s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM generation_plans WHERE id = $1`, planColumns), planID,
	))
	if err != nil {
		return nil, err
	}

	history, err := s.modifications(planID)
	if err != nil {
		return nil, err
	}
	plan.ModificationHistory = history
	return plan, nil
}

func (s *Store) ListByQuiz(quizID int64) ([]models.GenerationPlan, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM generation_plans WHERE quiz_id = $1 ORDER BY created_at DESC`, planColumns),
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []models.GenerationPlan
	for rows.Next() {
		plan, err := s.scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

// ActivePlan returns the quiz's most-recently-updated plan whose status
// is approved or used.
func (s *Store) ActivePlan(quizID int64) (*models.GenerationPlan, error) {
	return s.scanPlan(s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM generation_plans
		 WHERE quiz_id = $1 AND status IN ($2, $3)
		 ORDER BY updated_at DESC LIMIT 1`, planColumns),
		quizID, models.PlanApproved, models.PlanUsed,
	))
}

// Approve promotes one plan and, in the same transaction, demotes every
// other approved plan of the quiz back to draft. At most one plan per
// quiz is ever approved-or-used.
func (s *Store) Approve(planID, quizID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("approve plan: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE generation_plans
		 SET status = $1, approved_at = NULL, updated_at = NOW()
		 WHERE quiz_id = $2 AND status = $3 AND id <> $4`,
		models.PlanDraft, quizID, models.PlanApproved, planID,
	); err != nil {
		return fmt.Errorf("demote sibling plans: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE generation_plans
		 SET status = $1, approved_at = NOW(), updated_at = NOW()
		 WHERE id = $2`,
		models.PlanApproved, planID,
	)
	if err != nil {
		return fmt.Errorf("approve plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// UpdateBreakdown persists an edited breakdown and its modification
// record atomically.
func (s *Store) UpdateBreakdown(plan *models.GenerationPlan, record models.ModificationRecord) error {
	breakdown, distribution, err := marshalDerived(plan)
	if err != nil {
		return err
	}
	previous, err := json.Marshal(record.PreviousBreakdown)
	if err != nil {
		return fmt.Errorf("marshal previous breakdown: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("update breakdown: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE generation_plans
		 SET breakdown = $1, distribution = $2, total_questions = $3, status = $4, updated_at = NOW()
		 WHERE id = $5`,
		breakdown, distribution, plan.TotalQuestions, plan.Status, plan.ID,
	)
	if err != nil {
		return fmt.Errorf("update breakdown: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(
		`INSERT INTO plan_modifications (plan_id, edited_by, description, previous_breakdown)
		 VALUES ($1, $2, $3, $4)`,
		plan.ID, record.EditedBy, record.Description, previous,
	); err != nil {
		return fmt.Errorf("record modification: %w", err)
	}

	return tx.Commit()
}

func (s *Store) MarkUsed(planID int64) error {
	res, err := s.db.Exec(
		`UPDATE generation_plans SET status = $1, updated_at = NOW() WHERE id = $2`,
		models.PlanUsed, planID,
	)
	if err != nil {
		return fmt.Errorf("mark plan used: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(planID int64) error {
	res, err := s.db.Exec(`DELETE FROM generation_plans WHERE id = $1`, planID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) modifications(planID int64) ([]models.ModificationRecord, error) {
	rows, err := s.db.Query(
		`SELECT edited_by, description, previous_breakdown, created_at
		 FROM plan_modifications WHERE plan_id = $1 ORDER BY created_at`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("load modifications: %w", err)
	}
	defer rows.Close()

	var history []models.ModificationRecord
	for rows.Next() {
		var rec models.ModificationRecord
		var description sql.NullString
		var previous []byte
		if err := rows.Scan(&rec.EditedBy, &description, &previous, &rec.EditedAt); err != nil {
			return nil, fmt.Errorf("scan modification: %w", err)
		}
		rec.Description = description.String
		if err := json.Unmarshal(previous, &rec.PreviousBreakdown); err != nil {
			return nil, fmt.Errorf("unmarshal previous breakdown: %w", err)
		}
		history = append(history, rec)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanPlan(row rowScanner) (*models.GenerationPlan, error) {
	var plan models.GenerationPlan
	var breakdown, distribution []byte

	err := row.Scan(&plan.ID, &plan.QuizID, &plan.Approach, &plan.QuestionsPerObjective,
		&plan.TotalQuestions, &breakdown, &distribution, &plan.Status,
		&plan.ApprovedAt, &plan.CreatedAt, &plan.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	if err := json.Unmarshal(breakdown, &plan.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal breakdown: %w", err)
	}
	if err := json.Unmarshal(distribution, &plan.Distribution); err != nil {
		return nil, fmt.Errorf("unmarshal distribution: %w", err)
	}
	return &plan, nil
}

func marshalDerived(plan *models.GenerationPlan) ([]byte, []byte, error) {
	breakdown, err := json.Marshal(plan.Breakdown)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal breakdown: %w", err)
	}
	distribution, err := json.Marshal(plan.Distribution)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal distribution: %w", err)
	}
	return breakdown, distribution, nil
}
