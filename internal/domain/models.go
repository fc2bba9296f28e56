package domain

import (
	"fmt"
	"time"
)

// Kind distinguishes the two front-end variants served by the same engine.
type Kind string

const (
	KindQuiz   Kind = "quiz"
	KindPuzzle Kind = "puzzle"
)

// Normalize maps the empty kind to KindQuiz.
func (k Kind) Normalize() Kind {
	if k == "" {
		return KindQuiz
	}
	return k
}

// Question models a single-answer MCQ question.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption string   `json:"correctOption" yaml:"correctOption"`
	Points        int      `json:"points" yaml:"points"`
	Hint          string   `json:"hint,omitempty" yaml:"hint,omitempty"` // display-only
}

// Level is a time-boxed group of questions of one difficulty.
type Level struct {
	Name             string     `json:"name" yaml:"name"`
	TimeLimitSeconds int        `json:"timeLimitSeconds" yaml:"timeLimitSeconds"`
	PassingMarks     int        `json:"passingMarks" yaml:"passingMarks"`
	Questions        []Question `json:"questions" yaml:"questions"`
}

// QuizDefinition is the immutable content of a quiz or puzzle.
type QuizDefinition struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Kind   Kind    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Levels []Level `json:"levels" yaml:"levels"`
}

// PassingMarks returns the sum of every level's passing threshold.
func (q QuizDefinition) PassingMarks() int {
	total := 0
	for _, level := range q.Levels {
		total += level.PassingMarks
	}
	return total
}

// Validate rejects definitions the engine could not score.
func (q QuizDefinition) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedDefinition)
	}
	if len(q.Levels) == 0 {
		return fmt.Errorf("%w: quiz %s has no levels", ErrMalformedDefinition, q.ID)
	}
	for li, level := range q.Levels {
		if level.TimeLimitSeconds <= 0 {
			return fmt.Errorf("%w: level %d (%s) has non-positive time limit", ErrMalformedDefinition, li, level.Name)
		}
		if level.PassingMarks < 0 {
			return fmt.Errorf("%w: level %d (%s) has negative passing marks", ErrMalformedDefinition, li, level.Name)
		}
		if len(level.Questions) == 0 {
			return fmt.Errorf("%w: level %d (%s) has no questions", ErrMalformedDefinition, li, level.Name)
		}
		ids := make(map[string]struct{}, len(level.Questions))
		for qi, question := range level.Questions {
			if err := question.Validate(); err != nil {
				return fmt.Errorf("level %d question %d: %w", li, qi, err)
			}
			if _, dup := ids[question.ID]; dup {
				return fmt.Errorf("%w: level %d (%s) repeats question id %s", ErrMalformedDefinition, li, level.Name, question.ID)
			}
			ids[question.ID] = struct{}{}
		}
	}
	return nil
}

// Validate checks option and scoring constraints for one question.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: %s needs at least two options", ErrMalformedQuestion, q.ID)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: %s has duplicate option %q", ErrMalformedQuestion, q.ID, opt)
		}
		seen[opt] = struct{}{}
	}
	if _, ok := seen[q.CorrectOption]; !ok {
		return fmt.Errorf("%w: %s correct option %q is not among its options", ErrMalformedQuestion, q.ID, q.CorrectOption)
	}
	if q.Points <= 0 {
		return fmt.Errorf("%w: %s has non-positive points", ErrMalformedQuestion, q.ID)
	}
	return nil
}

// CloseReason records why a level ended.
type CloseReason string

const (
	CloseCompleted CloseReason = "completed"
	CloseTimeout   CloseReason = "timeout"
	CloseForced    CloseReason = "forced"
)

// AnswerRecord is the immutable outcome of one question within a level attempt.
// A nil SelectedOption means the level closed before the question was answered.
type AnswerRecord struct {
	QuestionID       string  `json:"questionId"`
	SelectedOption   *string `json:"selectedOption"`
	CorrectOption    string  `json:"correctOption"`
	IsCorrect        bool    `json:"isCorrect"`
	TimeTakenSeconds int     `json:"timeTakenSeconds"`
	PointsEarned     int     `json:"pointsEarned"`
}

// Answered reports whether the user picked an option.
func (a AnswerRecord) Answered() bool {
	return a.SelectedOption != nil
}

// LevelAttempt summarizes one closed level.
type LevelAttempt struct {
	LevelName      string         `json:"levelName"`
	StartedAt      time.Time      `json:"startedAt"`
	EndedAt        time.Time      `json:"endedAt"`
	ElapsedSeconds int            `json:"elapsedSeconds"`
	TotalQuestions int            `json:"totalQuestions"`
	CorrectAnswers int            `json:"correctAnswers"`
	WrongAnswers   int            `json:"wrongAnswers"`
	Unanswered     int            `json:"unanswered"`
	Score          int            `json:"score"`
	PassingMarks   int            `json:"passingMarks"`
	Passed         bool           `json:"passed"`
	CloseReason    CloseReason    `json:"closeReason"`
	Answers        []AnswerRecord `json:"answers"`
}

// Result is the overall outcome of an attempt.
type Result string

const (
	ResultPassed Result = "Passed"
	ResultFailed Result = "Failed"
)

// QuizAttempt is the record handed to the submission client.
type QuizAttempt struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	QuizID         string         `json:"quizId"`
	Kind           Kind           `json:"kind"`
	StartedAt      time.Time      `json:"startedAt"`
	EndedAt        time.Time      `json:"endedAt"`
	ElapsedSeconds int            `json:"elapsedSeconds"`
	TotalScore     int            `json:"totalScore"`
	PassingMarks   int            `json:"passingMarks"`
	Result         Result         `json:"result"`
	Levels         []LevelAttempt `json:"levels"`
	Feedback       string         `json:"feedback,omitempty"`
	Rating         int            `json:"rating,omitempty"`
}

// ValidateRating accepts 1..5 stars.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: %d", ErrInvalidRating, rating)
	}
	return nil
}
