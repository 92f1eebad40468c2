package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

type Type string

const (
	TypeConnected        Type = "connected"
	TypeBatchStarted     Type = "batch-started"
	TypeQuestionProgress Type = "question-progress"
	TypeTextChunk        Type = "text-chunk"
	TypeQuestionComplete Type = "question-complete"
	TypeError            Type = "error"
	TypeHeartbeat        Type = "heartbeat"
	TypeBatchComplete    Type = "batch-complete"
)

// Event is a typed, JSON-serializable progress message. The producer
// (orchestrator) publishes events; a transport consumer frames them.
type Event interface {
	EventType() Type
}

type Connected struct {
	At time.Time `json:"at"`
}

func (Connected) EventType() Type { return TypeConnected }

type BatchStarted struct {
	QuizID          int64 `json:"quiz_id"`
	PlanID          int64 `json:"plan_id"`
	TotalObjectives int   `json:"total_objectives"`
	TotalQuestions  int   `json:"total_questions"`
}

func (BatchStarted) EventType() Type { return TypeBatchStarted }

type QuestionProgress struct {
	ObjectiveID   int64  `json:"objective_id"`
	ObjectiveText string `json:"objective_text"`
	Completed     int    `json:"completed"`
	Total         int    `json:"total"`
}

func (QuestionProgress) EventType() Type { return TypeQuestionProgress }

// TextChunk carries incremental generator output. QuestionID is the
// provisional id of the in-flight batch stream; final ids arrive with
// question-complete.
type TextChunk struct {
	QuestionID string `json:"question_id"`
	Chunk      string `json:"chunk"`
}

func (TextChunk) EventType() Type { return TypeTextChunk }

type QuestionComplete struct {
	QuestionID string          `json:"question_id"`
	Question   models.Question `json:"question"`
}

func (QuestionComplete) EventType() Type { return TypeQuestionComplete }

type Error struct {
	QuestionID  string              `json:"question_id,omitempty"`
	ObjectiveID *int64              `json:"objective_id,omitempty"`
	Message     string              `json:"message"`
	ErrorType   models.RunErrorType `json:"error_type"`
}

func (Error) EventType() Type { return TypeError }

type Heartbeat struct {
	At time.Time `json:"at"`
}

func (Heartbeat) EventType() Type { return TypeHeartbeat }

type BatchComplete struct {
	Summary models.RunSummary `json:"summary"`
}

func (BatchComplete) EventType() Type { return TypeBatchComplete }

// Marshal renders an event as a single JSON object discriminated by its
// "type" field.
func Marshal(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, err
	}
	typ, err := json.Marshal(e.EventType())
	if err != nil {
		return nil, err
	}
	obj["type"] = typ
	return json.Marshal(obj)
}

// ── Stream ─────────────────────────────────────────────

// Stream is a bounded channel between one producer (a generation run)
// and one consumer (the transport). The producer calls Publish and
// Finish; the consumer ranges over Events and calls Cancel when its
// client goes away. After Cancel, Publish reports false and the producer
// is expected to stop before its next objective. Cancellation is
// cooperative, in-flight work is not interrupted.
type Stream struct {
	ch         chan Event
	done       chan struct{}
	cancelOnce sync.Once
	finishOnce sync.Once
}

func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Publish delivers an event to the consumer. It blocks while the buffer
// is full and returns false once the stream is cancelled.
func (s *Stream) Publish(e Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- e:
		return true
	case <-s.done:
		return false
	}
}

// Finish closes the event channel; the consumer's range loop ends.
// Producer-side only, after the final event.
func (s *Stream) Finish() {
	s.finishOnce.Do(func() { close(s.ch) })
}

// Cancel marks the stream closed on the consumer side.
func (s *Stream) Cancel() {
	s.cancelOnce.Do(func() { close(s.done) })
}

// Closed reports whether the consumer has cancelled.
func (s *Stream) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Stream) Events() <-chan Event {
	return s.ch
}
