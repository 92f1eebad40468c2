package generator

import (
	"context"

	"github.com/ubc/tlef-create-sub004/internal/models"
	"github.com/ubc/tlef-create-sub004/internal/retrieval"
)

type TypeCountRequest struct {
	Type  models.QuestionType `json:"type"`
	Count int                 `json:"count"`
}

// BatchRequest is one generation call per objective: all of the
// objective's (type, count) cells go out together so the requests share
// retrieved context and prompt overhead.
type BatchRequest struct {
	ObjectiveText string
	Requests      []TypeCountRequest
	Context       []retrieval.Chunk
	Difficulty    models.Difficulty
	CourseContext string
	// Guidance is the approach template's strategy text, empty for
	// custom plans.
	Guidance string
}

func (r BatchRequest) TotalRequested() int {
	total := 0
	for _, req := range r.Requests {
		total += req.Count
	}
	return total
}

type BatchError struct {
	Type    models.QuestionType `json:"type,omitempty"`
	Message string              `json:"message"`
}

// BatchResult reports what actually came back. TotalGenerated being
// short of TotalRequested is not an error return; the shortfall is
// described in Errors.
type BatchResult struct {
	Questions      []GeneratedQuestion `json:"questions"`
	TotalRequested int                 `json:"total_requested"`
	TotalGenerated int                 `json:"total_generated"`
	Errors         []BatchError        `json:"errors,omitempty"`
}

type GeneratedQuestion struct {
	Type       models.QuestionType    `json:"type"`
	Difficulty models.Difficulty      `json:"difficulty,omitempty"`
	Content    models.QuestionContent `json:"content"`
}

// Gateway is the consumed generation service.
type Gateway interface {
	GenerateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
}

// StreamingGateway additionally forwards raw text deltas while the
// batch is in flight. Implementations close deltas before returning.
type StreamingGateway interface {
	Gateway
	GenerateBatchStream(ctx context.Context, req BatchRequest, deltas chan<- string) (*BatchResult, error)
}
