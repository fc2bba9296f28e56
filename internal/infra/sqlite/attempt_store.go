package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"quiz-attempt-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS quiz_attempts (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	quiz_id           TEXT NOT NULL,
	kind              TEXT NOT NULL,
	started_at_unix   INTEGER NOT NULL,
	ended_at_unix     INTEGER NOT NULL,
	elapsed_seconds   INTEGER NOT NULL,
	total_score       INTEGER NOT NULL,
	passing_marks     INTEGER NOT NULL,
	result            TEXT NOT NULL,
	levels_json       TEXT NOT NULL,
	feedback          TEXT,
	rating            INTEGER,
	submitted_at_unix INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_attempts_user ON quiz_attempts(user_id, quiz_id);
`

// AttemptStore persists attempts in a local SQLite file.
type AttemptStore struct {
	db *sql.DB
}

func NewAttemptStore(path string) (*AttemptStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "attempts.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &AttemptStore{db: db}, nil
}

func (s *AttemptStore) Close() error {
	return s.db.Close()
}

// SubmitAttempt stores the attempt once; the primary key makes replays no-ops.
func (s *AttemptStore) SubmitAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	levels, err := json.Marshal(attempt.Levels)
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO quiz_attempts
		 (id, user_id, quiz_id, kind, started_at_unix, ended_at_unix, elapsed_seconds,
		  total_score, passing_marks, result, levels_json, feedback, rating, submitted_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.UserID,
		attempt.QuizID,
		string(attempt.Kind.Normalize()),
		attempt.StartedAt.UTC().UnixNano(),
		attempt.EndedAt.UTC().UnixNano(),
		attempt.ElapsedSeconds,
		attempt.TotalScore,
		attempt.PassingMarks,
		string(attempt.Result),
		string(levels),
		nullString(attempt.Feedback),
		nullInt(attempt.Rating),
		time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) SaveFeedback(ctx context.Context, attemptID, feedback string, rating int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_attempts SET feedback = ?, rating = ? WHERE id = ?`,
		nullString(feedback), nullInt(rating), attemptID)
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

// GetAttempt reads a stored attempt back.
func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.QuizAttempt, error) {
	var (
		a                  domain.QuizAttempt
		kind, result       string
		startedAt, endedAt int64
		levels             string
		feedback           sql.NullString
		rating             sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, quiz_id, kind, started_at_unix, ended_at_unix, elapsed_seconds,
		        total_score, passing_marks, result, levels_json, feedback, rating
		 FROM quiz_attempts WHERE id = ?`, attemptID,
	).Scan(&a.ID, &a.UserID, &a.QuizID, &kind, &startedAt, &endedAt, &a.ElapsedSeconds,
		&a.TotalScore, &a.PassingMarks, &result, &levels, &feedback, &rating)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if err := json.Unmarshal([]byte(levels), &a.Levels); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("unmarshal levels: %w", err)
	}
	a.Kind = domain.Kind(kind)
	a.Result = domain.Result(result)
	a.StartedAt = time.Unix(0, startedAt).UTC()
	a.EndedAt = time.Unix(0, endedAt).UTC()
	a.Feedback = feedback.String
	a.Rating = int(rating.Int64)
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
