package app

import (
	"time"

	"quiz-attempt-service/internal/domain"
)

// CloseLevel turns the answers gathered for a level into its immutable summary.
// Answers are positional: answers[i] belongs to level.Questions[i]. Questions
// past the last answer get a synthetic unanswered record, so the result always
// holds exactly one record per question, in question order.
func CloseLevel(level domain.Level, answers []domain.AnswerRecord, startedAt, endedAt time.Time, reason domain.CloseReason) domain.LevelAttempt {
	records := make([]domain.AnswerRecord, 0, len(level.Questions))
	la := domain.LevelAttempt{
		LevelName:      level.Name,
		StartedAt:      startedAt,
		EndedAt:        endedAt,
		ElapsedSeconds: elapsedSeconds(startedAt, endedAt),
		TotalQuestions: len(level.Questions),
		PassingMarks:   level.PassingMarks,
		CloseReason:    reason,
	}
	for i, q := range level.Questions {
		rec := unansweredRecord(q)
		if i < len(answers) {
			rec = answers[i]
		}
		records = append(records, rec)

		la.Score += rec.PointsEarned
		switch {
		case !rec.Answered():
			la.Unanswered++
		case rec.IsCorrect:
			la.CorrectAnswers++
		default:
			la.WrongAnswers++
		}
	}
	la.Answers = records
	la.Passed = la.Score >= level.PassingMarks
	return la
}

func elapsedSeconds(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
