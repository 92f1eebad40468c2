package models

import "time"

// RunErrorType classifies run-time failures. Objective- and
// question-scoped entries never abort a run; only run_load does.
type RunErrorType string

const (
	ErrorRunLoad           RunErrorType = "run_load"
	ErrorPlanning          RunErrorType = "planning"
	ErrorRetrievalDegraded RunErrorType = "retrieval_degraded"
	ErrorGenerationPartial RunErrorType = "generation_partial"
	ErrorGenerationFatal   RunErrorType = "generation_fatal"
	ErrorMissingPlanEntry  RunErrorType = "missing_plan_entry"
)

type RunError struct {
	ObjectiveID  *int64        `json:"objective_id,omitempty"`
	QuestionType *QuestionType `json:"question_type,omitempty"`
	ErrorType    RunErrorType  `json:"error_type"`
	Message      string        `json:"message"`
}

type ObjectiveResult struct {
	ObjectiveID   int64      `json:"objective_id"`
	ObjectiveText string     `json:"objective_text"`
	Requested     int        `json:"requested"`
	Generated     int        `json:"generated"`
	QuestionIDs   []string   `json:"question_ids,omitempty"`
	Errors        []RunError `json:"errors,omitempty"`
}

// GenerationRunResult is ephemeral: it is never persisted, the event
// stream is the client's record of a run.
type GenerationRunResult struct {
	QuizID     int64             `json:"quiz_id"`
	PlanID     int64             `json:"plan_id,omitempty"`
	Objectives []ObjectiveResult `json:"objectives,omitempty"`
	Errors     []RunError        `json:"errors,omitempty"`
	Warnings   []RunError        `json:"warnings,omitempty"`
	Success    bool              `json:"success"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func (r *GenerationRunResult) TotalRequested() int {
	total := 0
	for _, o := range r.Objectives {
		total += o.Requested
	}
	return total
}

func (r *GenerationRunResult) TotalGenerated() int {
	total := 0
	for _, o := range r.Objectives {
		total += o.Generated
	}
	return total
}

// RunSummary is the batch-complete payload: enough for a client to tell
// which cells degraded and selectively re-generate them.
type RunSummary struct {
	QuizID          int64      `json:"quiz_id"`
	PlanID          int64      `json:"plan_id,omitempty"`
	Success         bool       `json:"success"`
	TotalObjectives int        `json:"total_objectives"`
	TotalRequested  int        `json:"total_requested"`
	TotalGenerated  int        `json:"total_generated"`
	Errors          []RunError `json:"errors,omitempty"`
	Warnings        []RunError `json:"warnings,omitempty"`
	DurationMs      int64      `json:"duration_ms"`
}

func (r *GenerationRunResult) Summary() RunSummary {
	errs := append([]RunError{}, r.Errors...)
	for _, o := range r.Objectives {
		errs = append(errs, o.Errors...)
	}
	return RunSummary{
		QuizID:          r.QuizID,
		PlanID:          r.PlanID,
		Success:         r.Success,
		TotalObjectives: len(r.Objectives),
		TotalRequested:  r.TotalRequested(),
		TotalGenerated:  r.TotalGenerated(),
		Errors:          errs,
		Warnings:        r.Warnings,
		DurationMs:      r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
}
