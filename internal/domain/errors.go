package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no attempt session exists for an ID.
	ErrSessionNotFound = errors.New("attempt session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrDefinitionLoad wraps any failure to obtain a quiz definition.
	ErrDefinitionLoad = errors.New("quiz definition could not be loaded")
	// ErrMalformedDefinition indicates a structurally invalid quiz or level.
	ErrMalformedDefinition = errors.New("malformed quiz definition")
	// ErrMalformedQuestion indicates a question that cannot be scored.
	ErrMalformedQuestion = errors.New("malformed question")
	// ErrKindMismatch is returned when a puzzle is requested as a quiz or vice versa.
	ErrKindMismatch = errors.New("quiz kind mismatch")
	// ErrAttemptNotFinished is returned when an action needs an assembled attempt.
	ErrAttemptNotFinished = errors.New("attempt not finished")
	// ErrInvalidRating indicates a rating outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrAttemptNotFound is returned by stores that do not know an attempt.
	ErrAttemptNotFound = errors.New("attempt not found")
)
