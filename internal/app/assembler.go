package app

import (
	"time"

	"quiz-attempt-service/internal/domain"
)

// AssembleInput carries everything the assembler needs once a session finishes.
type AssembleInput struct {
	AttemptID  string
	UserID     string
	Definition domain.QuizDefinition
	Levels     []domain.LevelAttempt
	StartedAt  time.Time
	EndedAt    time.Time
}

// AssembleAttempt combines closed levels into the final attempt record.
func AssembleAttempt(in AssembleInput) domain.QuizAttempt {
	total := 0
	for _, la := range in.Levels {
		total += la.Score
	}
	passing := in.Definition.PassingMarks()
	result := domain.ResultFailed
	if total >= passing {
		result = domain.ResultPassed
	}

	levels := make([]domain.LevelAttempt, len(in.Levels))
	copy(levels, in.Levels)

	return domain.QuizAttempt{
		ID:             in.AttemptID,
		UserID:         in.UserID,
		QuizID:         in.Definition.ID,
		Kind:           in.Definition.Kind.Normalize(),
		StartedAt:      in.StartedAt,
		EndedAt:        in.EndedAt,
		ElapsedSeconds: elapsedSeconds(in.StartedAt, in.EndedAt),
		TotalScore:     total,
		PassingMarks:   passing,
		Result:         result,
		Levels:         levels,
	}
}
