package models

import "time"

type Quiz struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	CourseContext string     `json:"course_context,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LearningObjective ordering is the persisted sort_order; planning and
// generation both iterate objectives in that order.
type LearningObjective struct {
	ID        int64     `json:"id"`
	QuizID    int64     `json:"quiz_id"`
	Text      string    `json:"text"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

type MaterialStatus string

const (
	MaterialPending    MaterialStatus = "pending"
	MaterialProcessing MaterialStatus = "processing"
	MaterialProcessed  MaterialStatus = "processed"
	MaterialFailed     MaterialStatus = "failed"
)

// Material rows are written by the ingestion pipeline; this service only
// reads them. Collection is the vector-store collection the material's
// chunks were indexed into. Only processed materials are retrieval scope.
type Material struct {
	ID          int64          `json:"id"`
	QuizID      int64          `json:"quiz_id"`
	Name        string         `json:"name"`
	Status      MaterialStatus `json:"status"`
	Collection  string         `json:"collection"`
	CreatedAt   time.Time      `json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
