package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ubc/tlef-create-sub004/internal/events"
	"github.com/ubc/tlef-create-sub004/internal/models"
)

const (
	streamBuffer      = 64
	heartbeatInterval = 15 * time.Second
)

type Handler struct {
	service *Service
	store   *Store
}

func NewHandler(service *Service, store *Store) *Handler {
	return &Handler{service: service, store: store}
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "name is required"})
		return
	}
	if len(req.Objectives) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "at least one objective is required"})
		return
	}

	quiz, err := h.store.CreateQuiz(req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create quiz"})
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.store.ListQuizzes()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list quizzes"})
		return
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}

	quiz, err := h.store.GetQuiz(quizID)
	if err == ErrQuizNotFound {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Quiz not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load quiz"})
		return
	}

	objectives, err := h.store.ListObjectives(quizID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load objectives"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"quiz":       quiz,
		"objectives": objectives,
	})
}

func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}

	materials, err := h.store.ListMaterials(quizID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list materials"})
		return
	}
	if materials == nil {
		materials = []models.Material{}
	}
	writeJSON(w, http.StatusOK, materials)
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}

	questions, err := h.store.ListQuestions(quizID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list questions"})
		return
	}
	if questions == nil {
		questions = []models.Question{}
	}
	writeJSON(w, http.StatusOK, questions)
}

// Generate runs a generation batch and streams its progress as
// server-sent events. The run is driven by a background context so a
// client disconnect cancels the stream cooperatively rather than
// aborting the in-flight objective.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := events.NewStream(streamBuffer)
	go h.service.Run(context.Background(), quizID, stream)

	writeEvent(w, events.Connected{At: time.Now().UTC()})
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			stream.Cancel()
			// Drain so the producer is not blocked on a full buffer.
			for range stream.Events() {
			}
			return
		case <-ticker.C:
			writeEvent(w, events.Heartbeat{At: time.Now().UTC()})
			flusher.Flush()
		case e, open := <-stream.Events():
			if !open {
				return
			}
			writeEvent(w, e)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e events.Event) {
	data, err := events.Marshal(e)
	if err != nil {
		log.Printf("WARN: [generation] failed to marshal %s event: %v", e.EventType(), err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.EventType(), data)
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
