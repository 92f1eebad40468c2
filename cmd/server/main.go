package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ubc/tlef-create-sub004/internal/database"
	"github.com/ubc/tlef-create-sub004/internal/generation"
	"github.com/ubc/tlef-create-sub004/internal/generator"
	"github.com/ubc/tlef-create-sub004/internal/plans"
	"github.com/ubc/tlef-create-sub004/internal/retrieval"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize stores and services
	generationStore := generation.NewStore(db)
	plansStore := plans.NewStore(db)
	plansService := plans.NewService(plansStore, generationStore)

	retriever, err := buildRetriever()
	if err != nil {
		log.Fatalf("Failed to initialize retrieval client: %v", err)
	}

	generationService := generation.NewService(
		generationStore, plansService, retriever, generator.New(), generation.ConfigFromEnv())

	plansHandler := plans.NewHandler(plansService)
	generationHandler := generation.NewHandler(generationService, generationStore)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Quizzes and questions
	api.HandleFunc("/quizzes", generationHandler.CreateQuiz).Methods("POST")
	api.HandleFunc("/quizzes", generationHandler.ListQuizzes).Methods("GET")
	api.HandleFunc("/quizzes/{quizId}", generationHandler.GetQuiz).Methods("GET")
	api.HandleFunc("/quizzes/{quizId}/materials", generationHandler.ListMaterials).Methods("GET")
	api.HandleFunc("/quizzes/{quizId}/questions", generationHandler.ListQuestions).Methods("GET")
	api.HandleFunc("/quizzes/{quizId}/generate", generationHandler.Generate).Methods("POST")

	// Generation plans
	api.HandleFunc("/approaches", plansHandler.ListApproaches).Methods("GET")
	api.HandleFunc("/quizzes/{quizId}/plans", plansHandler.CreatePlan).Methods("POST")
	api.HandleFunc("/quizzes/{quizId}/plans", plansHandler.ListPlans).Methods("GET")
	api.HandleFunc("/quizzes/{quizId}/plans/active", plansHandler.ActivePlan).Methods("GET")
	api.HandleFunc("/plans/{id}", plansHandler.GetPlan).Methods("GET")
	api.HandleFunc("/plans/{id}", plansHandler.UpdatePlan).Methods("PUT")
	api.HandleFunc("/plans/{id}", plansHandler.DeletePlan).Methods("DELETE")
	api.HandleFunc("/plans/{id}/approve", plansHandler.ApprovePlan).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func buildRetriever() (retrieval.Gateway, error) {
	if os.Getenv("MOCK_RETRIEVAL") == "true" {
		log.Printf("[retrieval] using static mock gateway")
		return &retrieval.Static{}, nil
	}
	return retrieval.NewClient(retrieval.ConfigFromEnv(), retrieval.NewOpenAIEmbedder())
}
