package generator

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// LLMClient is the interface all generator backends satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// StreamingLLMClient forwards incremental text while a response is in
// flight. The deltas channel is owned by the caller; implementations
// only send on it.
type StreamingLLMClient interface {
	LLMClient
	GenerateStream(ctx context.Context, systemPrompt string, userPrompt string, deltas chan<- string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator wraps an LLMClient and adds the batch request/parse cycle.
type Generator struct {
	llm   LLMClient
	model string
}

// New picks the backend from the environment: the mock for local
// development, the Anthropic API otherwise.
func New() Gateway {
	if os.Getenv("MOCK_GENERATOR") == "true" {
		log.Println("Generator using mock data")
		return &MockGateway{}
	}

	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	log.Println("Generator using Anthropic API:", model)
	return &Generator{llm: NewAPIClient(model), model: model}
}

func (g *Generator) ModelName() string {
	return g.model
}

func (g *Generator) GenerateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	resp, err := g.llm.Generate(ctx, SystemPrompt(), BuildBatchPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("generate batch: %w", err)
	}
	result, err := ParseBatch(resp.Content, req.Requests)
	if err != nil {
		return nil, fmt.Errorf("parse batch response: %w", err)
	}
	return result, nil
}

func (g *Generator) GenerateBatchStream(ctx context.Context, req BatchRequest, deltas chan<- string) (*BatchResult, error) {
	defer close(deltas)

	sc, ok := g.llm.(StreamingLLMClient)
	if !ok {
		resp, err := g.llm.Generate(ctx, SystemPrompt(), BuildBatchPrompt(req))
		if err != nil {
			return nil, fmt.Errorf("generate batch: %w", err)
		}
		return ParseBatch(resp.Content, req.Requests)
	}

	resp, err := sc.GenerateStream(ctx, SystemPrompt(), BuildBatchPrompt(req), deltas)
	if err != nil {
		return nil, fmt.Errorf("generate batch: %w", err)
	}
	result, err := ParseBatch(resp.Content, req.Requests)
	if err != nil {
		return nil, fmt.Errorf("parse batch response: %w", err)
	}
	return result, nil
}

// ── Anthropic API client ───────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) params(systemPrompt, userPrompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	message, err := c.callWithRetry(ctx, c.params(systemPrompt, userPrompt))
	if err != nil {
		return nil, err
	}
	return responseFromMessage(message)
}

func (c *APIClient) GenerateStream(ctx context.Context, systemPrompt string, userPrompt string, deltas chan<- string) (*LLMResponse, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(systemPrompt, userPrompt))

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate stream event: %w", err)
		}
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
				select {
				case deltas <- d.Text:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}

	return responseFromMessage(&message)
}

func responseFromMessage(message *anthropic.Message) (*LLMResponse, error) {
	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}
	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleep := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleep, attempt+1)
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}
