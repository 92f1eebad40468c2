package plans

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ubc/tlef-create-sub004/internal/approach"
	"github.com/ubc/tlef-create-sub004/internal/models"
	"github.com/ubc/tlef-create-sub004/internal/planner"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}

	var req models.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Approach == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "approach is required"})
		return
	}
	if req.TotalQuestions <= 0 && req.QuestionsPerObjective <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "total_questions or questions_per_objective is required"})
		return
	}

	plan, err := h.service.Create(quizID, req)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}

	plans, err := h.service.ListByQuiz(quizID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list plans"})
		return
	}
	if plans == nil {
		plans = []models.GenerationPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) ActivePlan(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}

	plan, err := h.service.ActivePlan(quizID)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	plan, err := h.service.Get(planID)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	plan, err := h.service.UpdateBreakdown(planID, req)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) ApprovePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	plan, err := h.service.Approve(planID)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(planID); err != nil {
		writePlanError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListApproaches exposes the seeded approach templates so clients can
// present them before creating a plan.
func (h *Handler) ListApproaches(w http.ResponseWriter, r *http.Request) {
	var out []models.ApproachTemplate
	for _, id := range approach.IDs() {
		t, err := approach.Get(id)
		if err != nil {
			continue
		}
		out = append(out, *t)
	}
	writeJSON(w, http.StatusOK, out)
}

func writePlanError(w http.ResponseWriter, err error) {
	var planErr *planner.PlanningError
	switch {
	case errors.As(err, &planErr):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: planErr.Error()})
	case errors.Is(err, approach.ErrNotFound):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Plan not found"})
	case errors.Is(err, ErrPlanUsed):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid " + key})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
