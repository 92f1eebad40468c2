package plans

import (
	"errors"
	"testing"
	"time"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

// ── Fakes ──────────────────────────────────────────────

// fakePlanStore keeps plans in memory and mirrors the Postgres store's
// contract: Approve demotes the quiz's other approved plans in the same
// operation, ActivePlan picks the most-recently-updated approved/used
// plan, mutations bump updated_at.
type fakePlanStore struct {
	plans  map[int64]*models.GenerationPlan
	nextID int64
	clock  time.Time
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{
		plans: make(map[int64]*models.GenerationPlan),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakePlanStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func copyPlan(p *models.GenerationPlan) *models.GenerationPlan {
	cp := *p
	cp.Breakdown = append(models.Breakdown{}, p.Breakdown...)
	cp.Distribution = append([]models.DistributionEntry{}, p.Distribution...)
	cp.ModificationHistory = append([]models.ModificationRecord{}, p.ModificationHistory...)
	return &cp
}

func (f *fakePlanStore) Create(plan *models.GenerationPlan) (*models.GenerationPlan, error) {
	f.nextID++
	plan.ID = f.nextID
	plan.CreatedAt = f.tick()
	plan.UpdatedAt = plan.CreatedAt
	f.plans[plan.ID] = copyPlan(plan)
	return copyPlan(plan), nil
}

func (f *fakePlanStore) GetByID(planID int64) (*models.GenerationPlan, error) {
	p, ok := f.plans[planID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPlan(p), nil
}

func (f *fakePlanStore) ListByQuiz(quizID int64) ([]models.GenerationPlan, error) {
	var out []models.GenerationPlan
	for _, p := range f.plans {
		if p.QuizID == quizID {
			out = append(out, *copyPlan(p))
		}
	}
	return out, nil
}

func (f *fakePlanStore) ActivePlan(quizID int64) (*models.GenerationPlan, error) {
	var active *models.GenerationPlan
	for _, p := range f.plans {
		if p.QuizID != quizID {
			continue
		}
		if p.Status != models.PlanApproved && p.Status != models.PlanUsed {
			continue
		}
		if active == nil || p.UpdatedAt.After(active.UpdatedAt) {
			active = p
		}
	}
	if active == nil {
		return nil, ErrNotFound
	}
	return copyPlan(active), nil
}

func (f *fakePlanStore) Approve(planID, quizID int64) error {
	target, ok := f.plans[planID]
	if !ok {
		return ErrNotFound
	}
	for _, p := range f.plans {
		if p.QuizID == quizID && p.Status == models.PlanApproved && p.ID != planID {
			p.Status = models.PlanDraft
			p.ApprovedAt = nil
			p.UpdatedAt = f.tick()
		}
	}
	now := f.tick()
	target.Status = models.PlanApproved
	target.ApprovedAt = &now
	target.UpdatedAt = now
	return nil
}

func (f *fakePlanStore) UpdateBreakdown(plan *models.GenerationPlan, record models.ModificationRecord) error {
	stored, ok := f.plans[plan.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Breakdown = append(models.Breakdown{}, plan.Breakdown...)
	stored.Distribution = append([]models.DistributionEntry{}, plan.Distribution...)
	stored.TotalQuestions = plan.TotalQuestions
	stored.Status = plan.Status
	stored.ModificationHistory = append(stored.ModificationHistory, record)
	stored.UpdatedAt = f.tick()
	return nil
}

func (f *fakePlanStore) MarkUsed(planID int64) error {
	p, ok := f.plans[planID]
	if !ok {
		return ErrNotFound
	}
	p.Status = models.PlanUsed
	p.UpdatedAt = f.tick()
	return nil
}

func (f *fakePlanStore) Delete(planID int64) error {
	if _, ok := f.plans[planID]; !ok {
		return ErrNotFound
	}
	delete(f.plans, planID)
	return nil
}

type fakeObjectives struct {
	objectives []models.LearningObjective
}

func (f *fakeObjectives) ListObjectives(quizID int64) ([]models.LearningObjective, error) {
	return f.objectives, nil
}

func newTestService() (*Service, *fakePlanStore) {
	store := newFakePlanStore()
	objectives := &fakeObjectives{objectives: []models.LearningObjective{
		{ID: 1, QuizID: 1, Text: "objective one", SortOrder: 0},
		{ID: 2, QuizID: 1, Text: "objective two", SortOrder: 1},
	}}
	return NewService(store, objectives), store
}

func createTestPlan(t *testing.T, svc *Service) *models.GenerationPlan {
	t.Helper()
	plan, err := svc.Create(1, models.CreatePlanRequest{Approach: "assess", TotalQuestions: 4})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return plan
}

func draftPlan() *models.GenerationPlan {
	breakdown := models.Breakdown{
		{ObjectiveID: 1, TypeCounts: []models.TypeCount{
			{Type: models.TypeMultipleChoice, Count: 4},
			{Type: models.TypeTrueFalse, Count: 1},
		}},
		{ObjectiveID: 2, TypeCounts: []models.TypeCount{
			{Type: models.TypeMultipleChoice, Count: 3},
			{Type: models.TypeTrueFalse, Count: 2},
		}},
	}
	return &models.GenerationPlan{
		ID:             1,
		QuizID:         1,
		Approach:       "assess",
		TotalQuestions: 10,
		Breakdown:      breakdown,
		Distribution:   models.ComputeDistribution(breakdown),
		Status:         models.PlanApproved,
	}
}

func TestApplyBreakdown(t *testing.T) {
	plan := draftPlan()
	original := plan.Breakdown

	edited := models.Breakdown{
		{ObjectiveID: 1, TypeCounts: []models.TypeCount{
			{Type: models.TypeMultipleChoice, Count: 2},
		}},
		{ObjectiveID: 2, TypeCounts: []models.TypeCount{
			{Type: models.TypeFlashcard, Count: 4},
		}},
	}

	record, err := applyBreakdown(plan, models.UpdatePlanRequest{
		Breakdown:   edited,
		EditedBy:    "instructor@ubc.ca",
		Description: "more flashcards",
	})
	if err != nil {
		t.Fatalf("applyBreakdown failed: %v", err)
	}

	if plan.TotalQuestions != 6 {
		t.Errorf("total = %d, want 6 (recomputed from the edit)", plan.TotalQuestions)
	}
	if plan.Status != models.PlanModified {
		t.Errorf("status = %s, want modified", plan.Status)
	}
	if len(plan.ModificationHistory) != 1 {
		t.Fatalf("history length = %d, want exactly 1 new record", len(plan.ModificationHistory))
	}
	if record.EditedBy != "instructor@ubc.ca" || record.EditedAt.IsZero() {
		t.Errorf("record = %+v", record)
	}
	if record.PreviousBreakdown.Total() != original.Total() {
		t.Error("record should snapshot the pre-edit breakdown")
	}

	// Distribution is recomputed, never carried over.
	if len(plan.Distribution) != 2 {
		t.Fatalf("distribution = %+v", plan.Distribution)
	}
	for _, d := range plan.Distribution {
		if d.Type == models.TypeTrueFalse {
			t.Error("distribution still contains a type the edit removed")
		}
	}
}

func TestApplyBreakdownAppendsHistory(t *testing.T) {
	plan := draftPlan()
	edit := models.UpdatePlanRequest{Breakdown: plan.Breakdown, EditedBy: "a"}

	if _, err := applyBreakdown(plan, edit); err != nil {
		t.Fatalf("first edit failed: %v", err)
	}
	if _, err := applyBreakdown(plan, edit); err != nil {
		t.Fatalf("second edit failed: %v", err)
	}
	if len(plan.ModificationHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(plan.ModificationHistory))
	}
}

func TestApplyBreakdownValidation(t *testing.T) {
	cases := []struct {
		name string
		req  models.UpdatePlanRequest
	}{
		{"empty breakdown", models.UpdatePlanRequest{EditedBy: "a"}},
		{"missing editor", models.UpdatePlanRequest{
			Breakdown: models.Breakdown{{ObjectiveID: 1, TypeCounts: []models.TypeCount{
				{Type: models.TypeFlashcard, Count: 1},
			}}},
		}},
		{"negative count", models.UpdatePlanRequest{
			EditedBy: "a",
			Breakdown: models.Breakdown{{ObjectiveID: 1, TypeCounts: []models.TypeCount{
				{Type: models.TypeFlashcard, Count: -2},
			}}},
		}},
		{"unknown type", models.UpdatePlanRequest{
			EditedBy: "a",
			Breakdown: models.Breakdown{{ObjectiveID: 1, TypeCounts: []models.TypeCount{
				{Type: "essay", Count: 1},
			}}},
		}},
		{"duplicate objective", models.UpdatePlanRequest{
			EditedBy: "a",
			Breakdown: models.Breakdown{
				{ObjectiveID: 1, TypeCounts: []models.TypeCount{{Type: models.TypeFlashcard, Count: 1}}},
				{ObjectiveID: 1, TypeCounts: []models.TypeCount{{Type: models.TypeSummary, Count: 1}}},
			},
		}},
		{"all zero counts", models.UpdatePlanRequest{
			EditedBy: "a",
			Breakdown: models.Breakdown{{ObjectiveID: 1, TypeCounts: []models.TypeCount{
				{Type: models.TypeFlashcard, Count: 0},
			}}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := draftPlan()
			if _, err := applyBreakdown(plan, tc.req); err == nil {
				t.Error("expected a validation error")
			}
			if plan.Status != models.PlanApproved {
				t.Error("a rejected edit must not change the plan")
			}
		})
	}
}

// ── Lifecycle ──────────────────────────────────────────

func TestCreatePlanStartsAsDraft(t *testing.T) {
	svc, _ := newTestService()
	plan := createTestPlan(t, svc)

	if plan.Status != models.PlanDraft {
		t.Errorf("status = %s, want draft", plan.Status)
	}
	if plan.TotalQuestions != 4 || plan.Breakdown.Total() != 4 {
		t.Errorf("total = %d, breakdown sum = %d, want 4", plan.TotalQuestions, plan.Breakdown.Total())
	}
	if len(plan.Distribution) == 0 {
		t.Error("distribution should be derived at creation")
	}
	if _, err := svc.ActivePlan(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("a draft plan must not be active, got %v", err)
	}
}

func TestApproveDemotesSiblings(t *testing.T) {
	svc, store := newTestService()
	first := createTestPlan(t, svc)
	second := createTestPlan(t, svc)

	if _, err := svc.Approve(first.ID); err != nil {
		t.Fatalf("Approve(first) failed: %v", err)
	}
	if _, err := svc.Approve(second.ID); err != nil {
		t.Fatalf("Approve(second) failed: %v", err)
	}

	demoted, _ := store.GetByID(first.ID)
	if demoted.Status != models.PlanDraft || demoted.ApprovedAt != nil {
		t.Errorf("first plan = %s (approved_at %v), want draft with no approval time",
			demoted.Status, demoted.ApprovedAt)
	}
	promoted, _ := store.GetByID(second.ID)
	if promoted.Status != models.PlanApproved || promoted.ApprovedAt == nil {
		t.Errorf("second plan = %s, want approved with an approval time", promoted.Status)
	}

	// Exactly one plan of the quiz is ever approved-or-used.
	all, _ := store.ListByQuiz(1)
	runnable := 0
	for _, p := range all {
		if p.Status == models.PlanApproved || p.Status == models.PlanUsed {
			runnable++
		}
	}
	if runnable != 1 {
		t.Errorf("runnable plans = %d, want exactly 1", runnable)
	}

	active, err := svc.ActivePlan(1)
	if err != nil {
		t.Fatalf("ActivePlan failed: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active plan = %d, want %d", active.ID, second.ID)
	}
}

func TestEditedPlanNeedsReapproval(t *testing.T) {
	svc, _ := newTestService()
	plan := createTestPlan(t, svc)

	if _, err := svc.Approve(plan.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	edited, err := svc.UpdateBreakdown(plan.ID, models.UpdatePlanRequest{
		Breakdown: models.Breakdown{
			{ObjectiveID: 1, TypeCounts: []models.TypeCount{{Type: models.TypeFlashcard, Count: 2}}},
			{ObjectiveID: 2, TypeCounts: []models.TypeCount{{Type: models.TypeFlashcard, Count: 1}}},
		},
		EditedBy: "instructor@ubc.ca",
	})
	if err != nil {
		t.Fatalf("UpdateBreakdown failed: %v", err)
	}
	if edited.Status != models.PlanModified {
		t.Errorf("status = %s, want modified", edited.Status)
	}
	if edited.TotalQuestions != 3 {
		t.Errorf("total = %d, want 3 (recomputed)", edited.TotalQuestions)
	}
	if len(edited.ModificationHistory) != 1 {
		t.Errorf("history length = %d, want exactly 1", len(edited.ModificationHistory))
	}

	// A modified plan is not runnable until re-approved.
	if _, err := svc.ActivePlan(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("modified plan must not be active, got %v", err)
	}

	reapproved, err := svc.Approve(plan.ID)
	if err != nil {
		t.Fatalf("re-Approve failed: %v", err)
	}
	if reapproved.Status != models.PlanApproved {
		t.Errorf("status = %s, want approved", reapproved.Status)
	}
	active, err := svc.ActivePlan(1)
	if err != nil || active.ID != plan.ID {
		t.Errorf("active = %+v, %v", active, err)
	}
}

func TestUsedPlanIsImmutable(t *testing.T) {
	svc, _ := newTestService()
	plan := createTestPlan(t, svc)

	if _, err := svc.Approve(plan.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := svc.MarkUsed(plan.ID); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}

	edit := models.UpdatePlanRequest{
		Breakdown: models.Breakdown{
			{ObjectiveID: 1, TypeCounts: []models.TypeCount{{Type: models.TypeFlashcard, Count: 1}}},
		},
		EditedBy: "instructor@ubc.ca",
	}
	if _, err := svc.UpdateBreakdown(plan.ID, edit); !errors.Is(err, ErrPlanUsed) {
		t.Errorf("UpdateBreakdown on a used plan = %v, want ErrPlanUsed", err)
	}
	if _, err := svc.Approve(plan.ID); !errors.Is(err, ErrPlanUsed) {
		t.Errorf("Approve on a used plan = %v, want ErrPlanUsed", err)
	}
	if err := svc.Delete(plan.ID); !errors.Is(err, ErrPlanUsed) {
		t.Errorf("Delete on a used plan = %v, want ErrPlanUsed", err)
	}

	// A used plan stays active so its questions remain attributable.
	active, err := svc.ActivePlan(1)
	if err != nil || active.Status != models.PlanUsed {
		t.Errorf("active = %+v, %v", active, err)
	}
}

func TestActivePlanPrefersMostRecentlyUpdated(t *testing.T) {
	svc, _ := newTestService()
	first := createTestPlan(t, svc)
	second := createTestPlan(t, svc)

	if _, err := svc.Approve(first.ID); err != nil {
		t.Fatalf("Approve(first) failed: %v", err)
	}
	if err := svc.MarkUsed(first.ID); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}
	if _, err := svc.Approve(second.ID); err != nil {
		t.Fatalf("Approve(second) failed: %v", err)
	}

	// The freshly approved plan supersedes the consumed one.
	active, err := svc.ActivePlan(1)
	if err != nil {
		t.Fatalf("ActivePlan failed: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active plan = %d, want %d", active.ID, second.ID)
	}
}
