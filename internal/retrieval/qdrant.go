package retrieval

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

// Config configures the Qdrant gRPC connection. The port is the gRPC
// port (6334), not the HTTP REST port.
type Config struct {
	Host           string
	Port           int
	UseTLS         bool
	APIKey         string
	RequestTimeout time.Duration
}

func ConfigFromEnv() Config {
	cfg := Config{
		Host:           getEnv("QDRANT_HOST", "localhost"),
		Port:           6334,
		UseTLS:         os.Getenv("QDRANT_TLS") == "true",
		APIKey:         os.Getenv("QDRANT_API_KEY"),
		RequestTimeout: 30 * time.Second,
	}
	if p := os.Getenv("QDRANT_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			cfg.Port = n
		}
	}
	if t := os.Getenv("QDRANT_TIMEOUT_SECONDS"); t != "" {
		if n, err := strconv.Atoi(t); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// Client is the production Gateway: it embeds the query and runs a
// similarity search over each material collection, merging results by
// score.
type Client struct {
	qdrant   *qdrant.Client
	embedder Embedder
	cfg      Config
}

func NewClient(cfg Config, embedder Embedder) (*Client, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		}
	}

	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Client{qdrant: client, embedder: embedder, cfg: cfg}, nil
}

func (c *Client) Retrieve(ctx context.Context, query string, questionType models.QuestionType, opts Options) (*Result, error) {
	if len(opts.Collections) == 0 {
		return &Result{}, nil
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	// The type hint nudges the search toward material phrased for the
	// kind of question being generated.
	vector, err := c.embedder.Embed(ctx, fmt.Sprintf("%s\nquestion type: %s", query, questionType))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var chunks []Chunk
	for _, collection := range opts.Collections {
		points, err := c.qdrant.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(opts.TopK)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("query collection %q: %w", collection, err)
		}
		for _, p := range points {
			chunk := chunkFromPoint(p)
			if chunk.Text == "" {
				log.Printf("WARN: point in collection %q has no text payload, skipping", collection)
				continue
			}
			if opts.MinScore > 0 && chunk.Score < opts.MinScore {
				continue
			}
			chunks = append(chunks, chunk)
		}
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if len(chunks) > opts.TopK {
		chunks = chunks[:opts.TopK]
	}

	return &Result{Chunks: chunks}, nil
}

func chunkFromPoint(p *qdrant.ScoredPoint) Chunk {
	chunk := Chunk{Score: float64(p.Score)}
	for key, value := range p.Payload {
		s := value.GetStringValue()
		if s == "" {
			continue
		}
		if key == "text" {
			chunk.Text = s
			continue
		}
		if chunk.Metadata == nil {
			chunk.Metadata = make(map[string]string)
		}
		chunk.Metadata[key] = s
	}
	return chunk
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
