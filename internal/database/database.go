package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "create_user")
	password := getEnv("DB_PASSWORD", "create_password")
	dbname := getEnv("DB_NAME", "create_quiz")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS quizzes (
		id             BIGSERIAL PRIMARY KEY,
		name           VARCHAR(255) NOT NULL,
		course_context TEXT NOT NULL DEFAULT '',
		difficulty     VARCHAR(20) NOT NULL DEFAULT 'medium',
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS learning_objectives (
		id         BIGSERIAL PRIMARY KEY,
		quiz_id    BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		text       TEXT NOT NULL,
		sort_order INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_objectives_quiz ON learning_objectives(quiz_id, sort_order);

	CREATE TABLE IF NOT EXISTS materials (
		id           BIGSERIAL PRIMARY KEY,
		quiz_id      BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		name         VARCHAR(255) NOT NULL,
		status       VARCHAR(20) NOT NULL DEFAULT 'pending',
		collection   VARCHAR(255) NOT NULL,
		created_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		processed_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_materials_quiz ON materials(quiz_id, status);

	CREATE TABLE IF NOT EXISTS generation_plans (
		id                      BIGSERIAL PRIMARY KEY,
		quiz_id                 BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		approach                VARCHAR(50) NOT NULL,
		questions_per_objective INT NOT NULL DEFAULT 0,
		total_questions         INT NOT NULL,
		breakdown               JSONB NOT NULL,
		distribution            JSONB NOT NULL,
		status                  VARCHAR(20) NOT NULL DEFAULT 'draft',
		approved_at             TIMESTAMP WITH TIME ZONE,
		created_at              TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at              TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_plans_quiz ON generation_plans(quiz_id, status);
	CREATE INDEX IF NOT EXISTS idx_plans_quiz_updated ON generation_plans(quiz_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS plan_modifications (
		id                 BIGSERIAL PRIMARY KEY,
		plan_id            BIGINT NOT NULL REFERENCES generation_plans(id) ON DELETE CASCADE,
		edited_by          VARCHAR(255) NOT NULL,
		description        TEXT,
		previous_breakdown JSONB NOT NULL,
		created_at         TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_modifications_plan ON plan_modifications(plan_id, created_at);

	CREATE TABLE IF NOT EXISTS questions (
		id           UUID PRIMARY KEY,
		quiz_id      BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		objective_id BIGINT NOT NULL REFERENCES learning_objectives(id) ON DELETE CASCADE,
		type         VARCHAR(30) NOT NULL,
		content      JSONB NOT NULL,
		difficulty   VARCHAR(20) NOT NULL DEFAULT 'medium',
		created_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions(quiz_id);
	CREATE INDEX IF NOT EXISTS idx_questions_objective ON questions(objective_id, type);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
