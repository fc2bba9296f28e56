package app

import (
	"testing"
	"time"

	"quiz-attempt-service/internal/domain"
)

func TestRecordAnswerScoresAgainstCorrectOption(t *testing.T) {
	q := question("q1", "4", 2)

	rec := RecordAnswer(q, "4", 3500*time.Millisecond)
	if !rec.IsCorrect || rec.PointsEarned != 2 || rec.TimeTakenSeconds != 3 {
		t.Fatalf("unexpected correct record: %+v", rec)
	}
	if rec.SelectedOption == nil || *rec.SelectedOption != "4" || rec.CorrectOption != "4" {
		t.Fatalf("expected selection and correct option copied, got %+v", rec)
	}

	// Options are not validated; anything other than the correct answer scores zero.
	rec = RecordAnswer(q, "not-an-option", -time.Second)
	if rec.IsCorrect || rec.PointsEarned != 0 || rec.TimeTakenSeconds != 0 {
		t.Fatalf("unexpected wrong record: %+v", rec)
	}
}

func TestCloseLevelSynthesizesUnansweredOnTimeout(t *testing.T) {
	level := domain.Level{Name: "easy", TimeLimitSeconds: 30, PassingMarks: 3, Questions: []domain.Question{
		question("q1", "a", 2),
		question("q2", "b", 2),
		question("q3", "c", 2),
	}}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	answers := []domain.AnswerRecord{RecordAnswer(level.Questions[0], "a", 2*time.Second)}

	la := CloseLevel(level, answers, start, start.Add(30*time.Second), domain.CloseTimeout)

	if len(la.Answers) != 3 {
		t.Fatalf("expected 3 records, got %d", len(la.Answers))
	}
	if la.CorrectAnswers != 1 || la.WrongAnswers != 0 || la.Unanswered != 2 || la.Score != 2 {
		t.Fatalf("unexpected totals: %+v", la)
	}
	for i, rec := range la.Answers[1:] {
		if rec.Answered() || rec.PointsEarned != 0 || rec.IsCorrect || rec.TimeTakenSeconds != 0 {
			t.Fatalf("record %d should be unanswered, got %+v", i+1, rec)
		}
		if rec.QuestionID != level.Questions[i+1].ID {
			t.Fatalf("records out of question order: %+v", la.Answers)
		}
	}
	if la.Passed {
		t.Fatalf("score 2 must not pass threshold 3")
	}
	if la.ElapsedSeconds != 30 || la.CloseReason != domain.CloseTimeout {
		t.Fatalf("unexpected elapsed/reason: %d %s", la.ElapsedSeconds, la.CloseReason)
	}
}

func TestCloseLevelConservation(t *testing.T) {
	level := domain.Level{Name: "mixed", TimeLimitSeconds: 10, PassingMarks: 1, Questions: []domain.Question{
		question("q1", "a", 1),
		question("q2", "b", 5),
		question("q3", "c", 3),
		question("q4", "d", 2),
	}}
	answers := []domain.AnswerRecord{
		RecordAnswer(level.Questions[0], "a", 0),
		RecordAnswer(level.Questions[1], "x", 0),
		RecordAnswer(level.Questions[2], "c", 0),
	}
	now := time.Now()
	la := CloseLevel(level, answers, now, now, domain.CloseTimeout)

	if la.CorrectAnswers+la.WrongAnswers+la.Unanswered != la.TotalQuestions {
		t.Fatalf("counts do not add up: %+v", la)
	}
	sum := 0
	for _, rec := range la.Answers {
		sum += rec.PointsEarned
		if rec.PointsEarned > 0 && !rec.IsCorrect {
			t.Fatalf("points earned on incorrect record: %+v", rec)
		}
	}
	if sum != la.Score || la.Score != 4 {
		t.Fatalf("expected score 4 equal to sum %d, got %d", sum, la.Score)
	}
}

func TestCloseLevelMatchesAnswersByPosition(t *testing.T) {
	// Three questions sharing one id: only the first was answered.
	level := domain.Level{Name: "same", TimeLimitSeconds: 30, PassingMarks: 1, Questions: []domain.Question{
		question("q", "a", 2),
		question("q", "a", 2),
		question("q", "a", 2),
	}}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	answers := []domain.AnswerRecord{RecordAnswer(level.Questions[0], "a", time.Second)}

	la := CloseLevel(level, answers, start, start.Add(30*time.Second), domain.CloseTimeout)

	if la.CorrectAnswers != 1 || la.WrongAnswers != 0 || la.Unanswered != 2 || la.Score != 2 {
		t.Fatalf("expected 1 correct, 2 unanswered, score 2, got %+v", la)
	}
	if len(la.Answers) != 3 || !la.Answers[0].Answered() || la.Answers[1].Answered() || la.Answers[2].Answered() {
		t.Fatalf("records not positional: %+v", la.Answers)
	}
}

func TestAssembleAttemptMultiLevelAggregation(t *testing.T) {
	def := domain.QuizDefinition{ID: "quiz-1", Levels: []domain.Level{
		{Name: "A", PassingMarks: 5},
		{Name: "B", PassingMarks: 5},
	}}
	levels := []domain.LevelAttempt{
		{LevelName: "A", Score: 8, PassingMarks: 5, Passed: true},
		{LevelName: "B", Score: 3, PassingMarks: 5, Passed: false},
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	attempt := AssembleAttempt(AssembleInput{
		AttemptID:  "a-1",
		UserID:     "u-1",
		Definition: def,
		Levels:     levels,
		StartedAt:  start,
		EndedAt:    start.Add(95 * time.Second),
	})
	if attempt.TotalScore != 11 || attempt.PassingMarks != 10 || attempt.Result != domain.ResultPassed {
		t.Fatalf("expected 11/10 passed, got %d/%d %s", attempt.TotalScore, attempt.PassingMarks, attempt.Result)
	}
	if attempt.ElapsedSeconds != 95 || attempt.Kind != domain.KindQuiz {
		t.Fatalf("unexpected elapsed/kind: %d %s", attempt.ElapsedSeconds, attempt.Kind)
	}

	def.Levels[1].PassingMarks = 7
	attempt = AssembleAttempt(AssembleInput{Definition: def, Levels: levels, StartedAt: start, EndedAt: start})
	if attempt.Result != domain.ResultFailed {
		t.Fatalf("expected 11/12 to fail, got %s", attempt.Result)
	}
}
