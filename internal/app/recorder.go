package app

import (
	"time"

	"quiz-attempt-service/internal/domain"
)

// RecordAnswer scores a selection against the stored correct option. The
// selection is not checked against the option list.
func RecordAnswer(question domain.Question, selected string, elapsed time.Duration) domain.AnswerRecord {
	if elapsed < 0 {
		elapsed = 0
	}
	correct := selected == question.CorrectOption
	points := 0
	if correct {
		points = question.Points
	}
	return domain.AnswerRecord{
		QuestionID:       question.ID,
		SelectedOption:   &selected,
		CorrectOption:    question.CorrectOption,
		IsCorrect:        correct,
		TimeTakenSeconds: int(elapsed / time.Second),
		PointsEarned:     points,
	}
}

func unansweredRecord(question domain.Question) domain.AnswerRecord {
	return domain.AnswerRecord{
		QuestionID:    question.ID,
		CorrectOption: question.CorrectOption,
	}
}
