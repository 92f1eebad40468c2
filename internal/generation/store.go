package generation

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

var ErrQuizNotFound = errors.New("quiz not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateQuiz inserts the quiz and its objectives in one transaction,
// numbering sort_order by the request's objective order.
func (s *Store) CreateQuiz(req models.CreateQuizRequest) (*models.Quiz, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	defer tx.Rollback()

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	quiz := &models.Quiz{Name: req.Name, CourseContext: req.CourseContext, Difficulty: difficulty}
	err = tx.QueryRow(
		`INSERT INTO quizzes (name, course_context, difficulty)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		quiz.Name, quiz.CourseContext, quiz.Difficulty,
	).Scan(&quiz.ID, &quiz.CreatedAt, &quiz.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}

	for i, text := range req.Objectives {
		if _, err := tx.Exec(
			`INSERT INTO learning_objectives (quiz_id, text, sort_order) VALUES ($1, $2, $3)`,
			quiz.ID, text, i,
		); err != nil {
			return nil, fmt.Errorf("create objective: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetQuiz(quizID int64) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.QueryRow(
		`SELECT id, name, course_context, difficulty, created_at, updated_at
		 FROM quizzes WHERE id = $1`, quizID,
	).Scan(&quiz.ID, &quiz.Name, &quiz.CourseContext, &quiz.Difficulty,
		&quiz.CreatedAt, &quiz.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return &quiz, nil
}

func (s *Store) ListQuizzes() ([]models.Quiz, error) {
	rows, err := s.db.Query(
		`SELECT id, name, course_context, difficulty, created_at, updated_at
		 FROM quizzes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []models.Quiz
	for rows.Next() {
		var q models.Quiz
		if err := rows.Scan(&q.ID, &q.Name, &q.CourseContext, &q.Difficulty,
			&q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// ListObjectives returns a quiz's objectives in their persisted order.
func (s *Store) ListObjectives(quizID int64) ([]models.LearningObjective, error) {
	rows, err := s.db.Query(
		`SELECT id, quiz_id, text, sort_order, created_at
		 FROM learning_objectives WHERE quiz_id = $1 ORDER BY sort_order`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	defer rows.Close()

	var objectives []models.LearningObjective
	for rows.Next() {
		var o models.LearningObjective
		if err := rows.Scan(&o.ID, &o.QuizID, &o.Text, &o.SortOrder, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan objective: %w", err)
		}
		objectives = append(objectives, o)
	}
	return objectives, rows.Err()
}

// ListMaterials returns every material of a quiz regardless of status.
func (s *Store) ListMaterials(quizID int64) ([]models.Material, error) {
	return s.listMaterials(
		`SELECT id, quiz_id, name, status, collection, created_at, processed_at
		 FROM materials WHERE quiz_id = $1 ORDER BY id`, quizID)
}

// ListProcessedMaterials returns the materials whose chunks are indexed
// and therefore in retrieval scope.
func (s *Store) ListProcessedMaterials(quizID int64) ([]models.Material, error) {
	return s.listMaterials(
		`SELECT id, quiz_id, name, status, collection, created_at, processed_at
		 FROM materials WHERE quiz_id = $1 AND status = $2 ORDER BY id`,
		quizID, models.MaterialProcessed)
}

func (s *Store) listMaterials(query string, args ...any) ([]models.Material, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var materials []models.Material
	for rows.Next() {
		var m models.Material
		if err := rows.Scan(&m.ID, &m.QuizID, &m.Name, &m.Status, &m.Collection,
			&m.CreatedAt, &m.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// SaveQuestions persists one objective's generated questions atomically.
func (s *Store) SaveQuestions(questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	defer tx.Rollback()

	for _, q := range questions {
		content, err := json.Marshal(q.Content)
		if err != nil {
			return fmt.Errorf("marshal question content: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO questions (id, quiz_id, objective_id, type, content, difficulty)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, q.QuizID, q.ObjectiveID, q.Type, content, q.Difficulty,
		); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) ListQuestions(quizID int64) ([]models.Question, error) {
	rows, err := s.db.Query(
		`SELECT q.id, q.quiz_id, q.objective_id, o.text, q.type, q.content, q.difficulty, q.created_at
		 FROM questions q
		 JOIN learning_objectives o ON o.id = q.objective_id
		 WHERE q.quiz_id = $1
		 ORDER BY o.sort_order, q.created_at`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var content []byte
		if err := rows.Scan(&q.ID, &q.QuizID, &q.ObjectiveID, &q.ObjectiveText,
			&q.Type, &content, &q.Difficulty, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(content, &q.Content); err != nil {
			return nil, fmt.Errorf("unmarshal question content: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
