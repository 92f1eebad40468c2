package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

func TestMarshalInjectsTypeDiscriminator(t *testing.T) {
	cases := []struct {
		event Event
		want  string
	}{
		{Connected{At: time.Now()}, "connected"},
		{BatchStarted{QuizID: 1, PlanID: 2, TotalObjectives: 3, TotalQuestions: 10}, "batch-started"},
		{QuestionProgress{ObjectiveID: 1, Completed: 2, Total: 10}, "question-progress"},
		{TextChunk{QuestionID: "abc", Chunk: "hello"}, "text-chunk"},
		{QuestionComplete{QuestionID: "abc"}, "question-complete"},
		{Error{Message: "boom", ErrorType: models.ErrorGenerationFatal}, "error"},
		{Heartbeat{At: time.Now()}, "heartbeat"},
		{BatchComplete{}, "batch-complete"},
	}

	for _, tc := range cases {
		data, err := Marshal(tc.event)
		if err != nil {
			t.Fatalf("Marshal(%T) failed: %v", tc.event, err)
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			t.Fatalf("Marshal(%T) produced invalid JSON: %v", tc.event, err)
		}
		var typ string
		if err := json.Unmarshal(obj["type"], &typ); err != nil || typ != tc.want {
			t.Errorf("Marshal(%T) type = %q, want %q", tc.event, typ, tc.want)
		}
	}
}

func TestMarshalKeepsPayloadFields(t *testing.T) {
	data, err := Marshal(BatchStarted{QuizID: 7, PlanID: 9, TotalObjectives: 2, TotalQuestions: 8})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var obj struct {
		Type           string `json:"type"`
		QuizID         int64  `json:"quiz_id"`
		TotalQuestions int    `json:"total_questions"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if obj.QuizID != 7 || obj.TotalQuestions != 8 {
		t.Errorf("payload fields lost: %+v", obj)
	}
}

func TestStreamDeliversInOrder(t *testing.T) {
	s := NewStream(8)
	for i := 0; i < 5; i++ {
		if !s.Publish(QuestionProgress{Completed: i}) {
			t.Fatalf("Publish %d returned false", i)
		}
	}
	s.Finish()

	i := 0
	for e := range s.Events() {
		qp, ok := e.(QuestionProgress)
		if !ok || qp.Completed != i {
			t.Errorf("event %d = %+v", i, e)
		}
		i++
	}
	if i != 5 {
		t.Errorf("received %d events, want 5", i)
	}
}

func TestPublishAfterCancelReturnsFalse(t *testing.T) {
	s := NewStream(1)
	s.Cancel()
	if s.Publish(Heartbeat{}) {
		t.Error("Publish after Cancel should return false")
	}
	if !s.Closed() {
		t.Error("Closed should report true after Cancel")
	}
}

func TestPublishUnblocksOnCancel(t *testing.T) {
	s := NewStream(1)
	s.Publish(Heartbeat{}) // fill the buffer

	done := make(chan bool)
	go func() {
		done <- s.Publish(Heartbeat{})
	}()

	s.Cancel()
	select {
	case ok := <-done:
		if ok {
			t.Error("blocked Publish should report false once cancelled")
		}
	case <-time.After(time.Second):
		t.Fatal("Publish stayed blocked after Cancel")
	}
}

func TestFinishIsIdempotent(t *testing.T) {
	s := NewStream(1)
	s.Finish()
	s.Finish()
	s.Cancel()
	s.Cancel()

	if _, open := <-s.Events(); open {
		t.Error("Events channel should be closed after Finish")
	}
}
