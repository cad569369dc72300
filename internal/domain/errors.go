package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when an attempt ID is unknown.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptCompleted is returned when submitting an attempt that has
	// already left in_progress. Resubmission is rejected, never overwritten.
	ErrAttemptCompleted = errors.New("attempt already completed")
	// ErrAttemptInProgress is returned when asking for a review before the
	// attempt has been graded.
	ErrAttemptInProgress = errors.New("attempt still in progress")
	// ErrQuestionNotFound indicates a submission references a question ID
	// that is not part of the attempt's quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuiz marks structurally broken quiz content (missing ids,
	// no questions, duplicate question ids).
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrNoOptions marks a question authored with zero options.
	ErrNoOptions = errors.New("question has no options")
	// ErrNoCorrectOption marks a question authored without any correct option.
	ErrNoCorrectOption = errors.New("question has no correct option")
	// ErrPermissionDenied is returned when a user touches an attempt they do
	// not own.
	ErrPermissionDenied = errors.New("attempt belongs to another user")
)
