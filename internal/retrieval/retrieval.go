// Package retrieval is the client side of the retrieval service: it
// turns an objective into ranked content chunks scoped to a quiz's
// processed materials. The vector index itself is owned by the
// ingestion pipeline; this package only queries it.
package retrieval

import (
	"context"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

type Chunk struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Result struct {
	Chunks []Chunk `json:"chunks"`
}

type Options struct {
	// TopK is the maximum number of chunks returned across collections.
	TopK int
	// Collections restricts the search to the given vector-store
	// collections (one per processed material). Empty means no scope and
	// yields an empty result.
	Collections []string
	// MinScore drops low-confidence chunks. Zero keeps everything.
	MinScore float64
}

// Gateway retrieves ranked context chunks for an objective and question
// type. Zero chunks is a valid degraded result, not an error.
type Gateway interface {
	Retrieve(ctx context.Context, query string, questionType models.QuestionType, opts Options) (*Result, error)
}

// Static is a canned gateway for local development and tests, mirroring
// the generator's mock client.
type Static struct {
	Chunks []Chunk
	Err    error
}

func (s *Static) Retrieve(ctx context.Context, query string, questionType models.QuestionType, opts Options) (*Result, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	chunks := s.Chunks
	if opts.TopK > 0 && len(chunks) > opts.TopK {
		chunks = chunks[:opts.TopK]
	}
	return &Result{Chunks: chunks}, nil
}
