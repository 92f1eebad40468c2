package generation

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ubc/tlef-create-sub004/internal/approach"
	"github.com/ubc/tlef-create-sub004/internal/events"
	"github.com/ubc/tlef-create-sub004/internal/generator"
	"github.com/ubc/tlef-create-sub004/internal/models"
	"github.com/ubc/tlef-create-sub004/internal/retrieval"
)

// RunStore is the persistence the orchestrator needs for one run.
type RunStore interface {
	GetQuiz(quizID int64) (*models.Quiz, error)
	ListObjectives(quizID int64) ([]models.LearningObjective, error)
	ListProcessedMaterials(quizID int64) ([]models.Material, error)
	SaveQuestions(questions []models.Question) error
}

// PlanSource resolves the quiz's active plan and consumes it.
type PlanSource interface {
	ActivePlan(quizID int64) (*models.GenerationPlan, error)
	MarkUsed(planID int64) error
}

type Config struct {
	// GenerationTimeout bounds each objective's gateway call.
	GenerationTimeout time.Duration
	// RetrievalTopK is the context chunk budget per objective.
	RetrievalTopK int
}

func ConfigFromEnv() Config {
	return Config{
		GenerationTimeout: time.Duration(envInt("GENERATION_TIMEOUT_SECONDS", 120)) * time.Second,
		RetrievalTopK:     envInt("RETRIEVAL_TOP_K", 5),
	}
}

type Service struct {
	store     RunStore
	plans     PlanSource
	retriever retrieval.Gateway
	generator generator.Gateway
	cfg       Config
}

func NewService(store RunStore, plans PlanSource, retriever retrieval.Gateway, gen generator.Gateway, cfg Config) *Service {
	return &Service{store: store, plans: plans, retriever: retriever, generator: gen, cfg: cfg}
}

// Run executes one generation batch for a quiz, publishing progress to
// the stream as it goes. Objectives are processed sequentially and
// failures are isolated to their objective; only a load failure makes
// the run itself unsuccessful. The caller owns the stream's consumer
// side; Run finishes the producer side before returning.
func (s *Service) Run(ctx context.Context, quizID int64, stream *events.Stream) *models.GenerationRunResult {
	defer stream.Finish()

	result := &models.GenerationRunResult{
		QuizID:    quizID,
		StartedAt: time.Now().UTC(),
	}

	snap, err := s.load(quizID)
	if err != nil {
		log.Printf("WARN: [generation] run for quiz %d failed to load: %v", quizID, err)
		result.Errors = append(result.Errors, models.RunError{
			ErrorType: models.ErrorRunLoad,
			Message:   err.Error(),
		})
		result.FinishedAt = time.Now().UTC()
		stream.Publish(events.Error{Message: err.Error(), ErrorType: models.ErrorRunLoad})
		stream.Publish(events.BatchComplete{Summary: result.Summary()})
		return result
	}
	result.PlanID = snap.plan.ID
	result.Success = true

	// The plan is consumed the moment the run starts; partial output
	// still reflects this plan.
	if err := s.plans.MarkUsed(snap.plan.ID); err != nil {
		log.Printf("WARN: [generation] failed to mark plan %d used: %v", snap.plan.ID, err)
	}

	stream.Publish(events.BatchStarted{
		QuizID:          quizID,
		PlanID:          snap.plan.ID,
		TotalObjectives: len(snap.objectives),
		TotalQuestions:  snap.plan.TotalQuestions,
	})

	completed := 0
	for _, obj := range snap.objectives {
		if stream.Closed() {
			log.Printf("[generation] quiz %d run cancelled after %d objective(s)", quizID, len(result.Objectives))
			break
		}

		objResult := s.runObjective(ctx, snap, obj, stream, completed)
		completed += objResult.Generated
		result.Objectives = append(result.Objectives, objResult)
		result.Warnings = append(result.Warnings, snap.takeWarnings()...)
	}

	result.FinishedAt = time.Now().UTC()
	stream.Publish(events.BatchComplete{Summary: result.Summary()})
	log.Printf("[generation] quiz %d run finished: %d/%d questions",
		quizID, result.TotalGenerated(), result.TotalRequested())
	return result
}

type snapshot struct {
	quiz        *models.Quiz
	plan        *models.GenerationPlan
	objectives  []models.LearningObjective
	collections []string
	guidance    string
	warnings    []models.RunError
}

func (sn *snapshot) warn(w models.RunError) {
	sn.warnings = append(sn.warnings, w)
}

func (sn *snapshot) takeWarnings() []models.RunError {
	w := sn.warnings
	sn.warnings = nil
	return w
}

// load snapshots everything a run reads, so concurrent edits to the quiz
// cannot skew a run in flight.
func (s *Service) load(quizID int64) (*snapshot, error) {
	quiz, err := s.store.GetQuiz(quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	plan, err := s.plans.ActivePlan(quizID)
	if err != nil {
		return nil, fmt.Errorf("load active plan: %w", err)
	}

	objectives, err := s.store.ListObjectives(quizID)
	if err != nil {
		return nil, fmt.Errorf("load objectives: %w", err)
	}
	if len(objectives) == 0 {
		return nil, fmt.Errorf("quiz %d has no learning objectives", quizID)
	}

	materials, err := s.store.ListProcessedMaterials(quizID)
	if err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}
	collections := make([]string, 0, len(materials))
	for _, m := range materials {
		collections = append(collections, m.Collection)
	}

	return &snapshot{
		quiz:        quiz,
		plan:        plan,
		objectives:  objectives,
		collections: collections,
		guidance:    approach.StrategyText(plan.Approach),
	}, nil
}

func (s *Service) runObjective(ctx context.Context, snap *snapshot, obj models.LearningObjective, stream *events.Stream, completedSoFar int) models.ObjectiveResult {
	objResult := models.ObjectiveResult{ObjectiveID: obj.ID, ObjectiveText: obj.Text}
	objID := obj.ID

	cells := snap.plan.Breakdown.CellsFor(obj.ID)
	if cells == nil {
		// Plan predates this objective; give it one of each known type so
		// the run still covers it.
		log.Printf("WARN: [generation] plan %d has no entry for objective %d, using default cells",
			snap.plan.ID, obj.ID)
		for _, t := range models.AllQuestionTypes {
			cells = append(cells, models.TypeCount{Type: t, Count: 1})
		}
		warning := models.RunError{
			ObjectiveID: &objID,
			ErrorType:   models.ErrorMissingPlanEntry,
			Message:     fmt.Sprintf("plan has no entry for objective %d; defaulted to one question of each type", obj.ID),
		}
		snap.warn(warning)
		stream.Publish(events.Error{ObjectiveID: &objID, Message: warning.Message, ErrorType: warning.ErrorType})
	}

	requests := make([]generator.TypeCountRequest, 0, len(cells))
	for _, c := range cells {
		if c.Count > 0 {
			requests = append(requests, generator.TypeCountRequest{Type: c.Type, Count: c.Count})
		}
	}
	for _, r := range requests {
		objResult.Requested += r.Count
	}
	if len(requests) == 0 {
		return objResult
	}

	stream.Publish(events.QuestionProgress{
		ObjectiveID:   obj.ID,
		ObjectiveText: obj.Text,
		Completed:     completedSoFar,
		Total:         snap.plan.TotalQuestions,
	})

	chunks := s.retrieveContext(ctx, snap, obj, requests[0].Type, stream)

	batch := generator.BatchRequest{
		ObjectiveText: obj.Text,
		Requests:      requests,
		Context:       chunks,
		Difficulty:    snap.quiz.Difficulty,
		CourseContext: snap.quiz.CourseContext,
		Guidance:      snap.guidance,
	}

	batchResult, err := s.generate(ctx, batch, stream)
	if err != nil {
		log.Printf("WARN: [generation] objective %d failed: %v", obj.ID, err)
		runErr := models.RunError{
			ObjectiveID: &objID,
			ErrorType:   models.ErrorGenerationFatal,
			Message:     err.Error(),
		}
		objResult.Errors = append(objResult.Errors, runErr)
		stream.Publish(events.Error{ObjectiveID: &objID, Message: runErr.Message, ErrorType: runErr.ErrorType})
		return objResult
	}

	questions := make([]models.Question, 0, len(batchResult.Questions))
	for _, gq := range batchResult.Questions {
		difficulty := gq.Difficulty
		if difficulty == "" {
			difficulty = snap.quiz.Difficulty
		}
		questions = append(questions, models.Question{
			ID:            uuid.NewString(),
			QuizID:        snap.quiz.ID,
			ObjectiveID:   obj.ID,
			ObjectiveText: obj.Text,
			Type:          gq.Type,
			Content:       gq.Content,
			Difficulty:    difficulty,
			CreatedAt:     time.Now().UTC(),
		})
	}

	if err := s.store.SaveQuestions(questions); err != nil {
		log.Printf("WARN: [generation] failed to save questions for objective %d: %v", obj.ID, err)
		runErr := models.RunError{
			ObjectiveID: &objID,
			ErrorType:   models.ErrorGenerationFatal,
			Message:     fmt.Sprintf("failed to save questions: %v", err),
		}
		objResult.Errors = append(objResult.Errors, runErr)
		stream.Publish(events.Error{ObjectiveID: &objID, Message: runErr.Message, ErrorType: runErr.ErrorType})
		return objResult
	}

	for _, q := range questions {
		objResult.Generated++
		objResult.QuestionIDs = append(objResult.QuestionIDs, q.ID)
		stream.Publish(events.QuestionComplete{QuestionID: q.ID, Question: q})
	}

	// Per-type shortfalls and dropped questions, after the questions that
	// did survive.
	for _, be := range batchResult.Errors {
		t := be.Type
		runErr := models.RunError{
			ObjectiveID: &objID,
			ErrorType:   models.ErrorGenerationPartial,
			Message:     be.Message,
		}
		if t != "" {
			runErr.QuestionType = &t
		}
		objResult.Errors = append(objResult.Errors, runErr)
		stream.Publish(events.Error{ObjectiveID: &objID, Message: runErr.Message, ErrorType: runErr.ErrorType})
	}

	return objResult
}

// retrieveContext fetches the objective's context chunks. Failure and
// emptiness both degrade to generating from the objective text alone.
func (s *Service) retrieveContext(ctx context.Context, snap *snapshot, obj models.LearningObjective, primary models.QuestionType, stream *events.Stream) []retrieval.Chunk {
	objID := obj.ID

	degrade := func(msg string) []retrieval.Chunk {
		log.Printf("WARN: [generation] objective %d: %s", obj.ID, msg)
		snap.warn(models.RunError{
			ObjectiveID: &objID,
			ErrorType:   models.ErrorRetrievalDegraded,
			Message:     msg,
		})
		stream.Publish(events.Error{ObjectiveID: &objID, Message: msg, ErrorType: models.ErrorRetrievalDegraded})
		return nil
	}

	res, err := s.retriever.Retrieve(ctx, obj.Text, primary, retrieval.Options{
		TopK:        s.cfg.RetrievalTopK,
		Collections: snap.collections,
	})
	if err != nil {
		return degrade(fmt.Sprintf("retrieval failed, generating without context: %v", err))
	}
	if len(res.Chunks) == 0 {
		return degrade("no relevant material found, generating without context")
	}
	return res.Chunks
}

// generate runs one bounded gateway call. When the gateway streams, its
// text deltas are forwarded as text-chunk events under a provisional id.
func (s *Service) generate(ctx context.Context, batch generator.BatchRequest, stream *events.Stream) (*generator.BatchResult, error) {
	callCtx := ctx
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}

	streaming, ok := s.generator.(generator.StreamingGateway)
	if !ok {
		return s.generator.GenerateBatch(callCtx, batch)
	}

	provisionalID := uuid.NewString()
	deltas := make(chan string, 16)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for chunk := range deltas {
			stream.Publish(events.TextChunk{QuestionID: provisionalID, Chunk: chunk})
		}
	}()

	result, err := streaming.GenerateBatchStream(callCtx, batch, deltas)
	<-forwarded
	return result, err
}

func envInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
		log.Printf("WARN: [generation] invalid %s=%q, using %d", key, s, fallback)
	}
	return fallback
}
