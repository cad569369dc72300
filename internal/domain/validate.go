package domain

import "fmt"

// Validate checks the authoring invariants: every question has at least one
// option and at least one correct option. Violations are data errors and are
// rejected at quiz-upsert time, never deferred to shuffle or grading.
func (q Quiz) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: quiz id is required", ErrInvalidQuiz)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %q has no questions", ErrInvalidQuiz, q.ID)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("%w: quiz %q has a question without id", ErrInvalidQuiz, q.ID)
		}
		if _, ok := seen[question.ID]; ok {
			return fmt.Errorf("%w: quiz %q has duplicate question id %q", ErrInvalidQuiz, q.ID, question.ID)
		}
		seen[question.ID] = struct{}{}
		if err := question.Validate(); err != nil {
			return fmt.Errorf("quiz %q: %w", q.ID, err)
		}
	}
	return nil
}

// Validate checks a single question's authoring invariants.
func (q Question) Validate() error {
	if len(q.Options) == 0 {
		return fmt.Errorf("question %q: %w", q.ID, ErrNoOptions)
	}
	hasCorrect := false
	for _, opt := range q.Options {
		if opt.Correct {
			hasCorrect = true
			break
		}
	}
	if !hasCorrect {
		return fmt.Errorf("question %q: %w", q.ID, ErrNoCorrectOption)
	}
	return nil
}

// EffectiveWeight returns the question's scoring weight, defaulting to 1.
func (q Question) EffectiveWeight() float64 {
	if q.Weight > 0 {
		return q.Weight
	}
	return 1
}

// QuestionByID returns the question with the given ID, if present.
func (q Quiz) QuestionByID(id string) (Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return q.Questions[i], true
		}
	}
	return Question{}, false
}
