package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"quiz-attempt-service/internal/domain"
)

// attemptRow maps a QuizAttempt onto the quiz_attempts table.
type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts"`

	ID             string                `bun:"id,pk"`
	UserID         string                `bun:"user_id,notnull"`
	QuizID         string                `bun:"quiz_id,notnull"`
	Kind           string                `bun:"kind,notnull"`
	StartedAt      time.Time             `bun:"started_at,notnull"`
	EndedAt        time.Time             `bun:"ended_at,notnull"`
	ElapsedSeconds int                   `bun:"elapsed_seconds,notnull"`
	TotalScore     int                   `bun:"total_score,notnull"`
	PassingMarks   int                   `bun:"passing_marks,notnull"`
	Result         string                `bun:"result,notnull"`
	Levels         []domain.LevelAttempt `bun:"levels,type:jsonb,notnull"`
	Feedback       string                `bun:"feedback,nullzero"`
	Rating         int                   `bun:"rating,nullzero"`
	SubmittedAt    time.Time             `bun:"submitted_at,notnull"`
}

func toRow(a domain.QuizAttempt) *attemptRow {
	return &attemptRow{
		ID:             a.ID,
		UserID:         a.UserID,
		QuizID:         a.QuizID,
		Kind:           string(a.Kind.Normalize()),
		StartedAt:      a.StartedAt,
		EndedAt:        a.EndedAt,
		ElapsedSeconds: a.ElapsedSeconds,
		TotalScore:     a.TotalScore,
		PassingMarks:   a.PassingMarks,
		Result:         string(a.Result),
		Levels:         a.Levels,
		Feedback:       a.Feedback,
		Rating:         a.Rating,
	}
}

func (r *attemptRow) toDomain() domain.QuizAttempt {
	return domain.QuizAttempt{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		Kind:           domain.Kind(r.Kind),
		StartedAt:      r.StartedAt,
		EndedAt:        r.EndedAt,
		ElapsedSeconds: r.ElapsedSeconds,
		TotalScore:     r.TotalScore,
		PassingMarks:   r.PassingMarks,
		Result:         domain.Result(r.Result),
		Levels:         r.Levels,
		Feedback:       r.Feedback,
		Rating:         r.Rating,
	}
}

// AttemptStore persists submitted attempts through bun.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

// SubmitAttempt inserts the attempt; a replay of the same attempt ID is a no-op.
func (s *AttemptStore) SubmitAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	row := toRow(attempt)
	row.SubmittedAt = time.Now().UTC()
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) SaveFeedback(ctx context.Context, attemptID, feedback string, rating int) error {
	res, err := s.db.NewUpdate().
		Model((*attemptRow)(nil)).
		Set("feedback = ?", feedback).
		Set("rating = ?", rating).
		Where("id = ?", attemptID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

// GetAttempt reads a stored attempt back.
func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.QuizAttempt, error) {
	row := new(attemptRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return row.toDomain(), nil
}
