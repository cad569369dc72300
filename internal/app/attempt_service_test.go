package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/infra/memory"
)

func practiceQuiz(shuffle bool) domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		Title:   "Interview warmup",
		Shuffle: shuffle,
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "Pick the strongest opener",
				Options: []domain.Option{
					{Text: "Lead with the outcome", Correct: true},
					{Text: "Apologize for being nervous"},
					{Text: "Recite the job description"},
					{Text: "Ask to skip the question"},
				},
			},
			{
				ID:     "q2",
				Prompt: "Good closing questions? Select all that apply.",
				Weight: 2,
				Options: []domain.Option{
					{Text: "What does success look like in this role?", Correct: true},
					{Text: "Can I leave early on Fridays?"},
					{Text: "How does the team handle disagreement?", Correct: true},
				},
			},
		},
	}
}

func newTestService(t *testing.T, quiz domain.Quiz) (*app.Service, *memory.AttemptStore) {
	t.Helper()
	backend := memory.NewStaticQuizBackend(map[string]domain.Quiz{quiz.ID: quiz})
	attempts := memory.NewAttemptStore()
	service := app.NewService(
		memory.NewQuizRepository(backend, 5*time.Minute),
		attempts,
		app.NewActivityHub(),
		app.ScoreConfig{ScaleMax: 10, Precision: 1},
		nil,
	)
	return service, attempts
}

// correctShuffledAnswers reads the stored mapping and translates each
// question's correct original indices into the shuffled space the client saw.
func correctShuffledAnswers(t *testing.T, store *memory.AttemptStore, attemptID string, quiz domain.Quiz) map[string][]int {
	t.Helper()
	attempt, err := store.Get(context.Background(), attemptID)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	answers := make(map[string][]int)
	for _, q := range quiz.Questions {
		mapping := attempt.Mappings[q.ID]
		for origIdx, opt := range q.Options {
			if !opt.Correct {
				continue
			}
			if len(mapping) == 0 {
				answers[q.ID] = append(answers[q.ID], origIdx)
			} else {
				answers[q.ID] = append(answers[q.ID], mapping[origIdx])
			}
		}
	}
	return answers
}

func TestStartStoresMappingAndStripsCorrectness(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t, practiceQuiz(true))

	started, err := service.Start(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(started.Questions) != 2 {
		t.Fatalf("expected 2 presented questions, got %d", len(started.Questions))
	}

	raw, err := json.Marshal(started)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(raw)), "correct") {
		t.Fatalf("start response leaks correctness: %s", raw)
	}

	attempt, err := store.Get(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.Status != domain.AttemptInProgress {
		t.Fatalf("expected in_progress, got %s", attempt.Status)
	}
	for _, q := range practiceQuiz(true).Questions {
		mapping := attempt.Mappings[q.ID]
		if len(mapping) != len(q.Options) {
			t.Fatalf("question %s: expected mapping of length %d, got %v", q.ID, len(q.Options), mapping)
		}
	}
}

func TestSubmitGradesThroughStoredMapping(t *testing.T) {
	ctx := context.Background()
	quiz := practiceQuiz(true)
	service, store := newTestService(t, quiz)

	started, err := service.Start(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	answers := correctShuffledAnswers(t, store, started.AttemptID, quiz)
	result, err := service.Submit(ctx, started.AttemptID, "u1", answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 10.0 {
		t.Fatalf("expected full score 10.0, got %v", result.Score)
	}
	for _, grade := range result.Results {
		if !grade.Correct {
			t.Fatalf("expected all questions correct, got %+v", grade)
		}
	}
}

func TestSubmitPartialScoreUsesWeights(t *testing.T) {
	ctx := context.Background()
	quiz := practiceQuiz(true)
	service, store := newTestService(t, quiz)

	started, err := service.Start(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Only q1 (weight 1 of 3 total) answered correctly.
	answers := correctShuffledAnswers(t, store, started.AttemptID, quiz)
	delete(answers, "q2")
	result, err := service.Submit(ctx, started.AttemptID, "u1", answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 3.3 {
		t.Fatalf("expected 3.3 (1/3 of 10, rounded), got %v", result.Score)
	}
}

func TestSubmitIsOneWay(t *testing.T) {
	ctx := context.Background()
	quiz := practiceQuiz(true)
	service, store := newTestService(t, quiz)

	started, _ := service.Start(ctx, "quiz-1", "u1")
	answers := correctShuffledAnswers(t, store, started.AttemptID, quiz)

	if _, err := service.Submit(ctx, started.AttemptID, "u1", answers); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := service.Submit(ctx, started.AttemptID, "u1", nil)
	if !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected ErrAttemptCompleted, got %v", err)
	}

	// The first result must be untouched by the rejected resubmission.
	attempt, err := store.Get(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.Score != 10.0 {
		t.Fatalf("resubmission corrupted the stored score: %v", attempt.Score)
	}
}

func TestSubmitChecksOwnership(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, practiceQuiz(true))

	started, _ := service.Start(ctx, "quiz-1", "u1")
	_, err := service.Submit(ctx, started.AttemptID, "intruder", nil)
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestSubmitRejectsUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, practiceQuiz(true))

	started, _ := service.Start(ctx, "quiz-1", "u1")
	_, err := service.Submit(ctx, started.AttemptID, "u1", map[string][]int{"nope": {0}})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestSubmitEmptyAnswersScoresZero(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, practiceQuiz(true))

	started, _ := service.Start(ctx, "quiz-1", "u1")
	result, err := service.Submit(ctx, started.AttemptID, "u1", nil)
	if err != nil {
		t.Fatalf("empty submission must grade, got %v", err)
	}
	if result.Score != 0 {
		t.Fatalf("expected zero score, got %v", result.Score)
	}
}

func TestUnshuffledQuizGradesInOriginalSpace(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t, practiceQuiz(false))

	started, err := service.Start(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	attempt, _ := store.Get(ctx, started.AttemptID)
	if len(attempt.Mappings) != 0 {
		t.Fatalf("unshuffled quiz should have no mappings, got %v", attempt.Mappings)
	}

	result, err := service.Submit(ctx, started.AttemptID, "u1", map[string][]int{
		"q1": {0},
		"q2": {0, 2},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 10.0 {
		t.Fatalf("expected full score, got %v", result.Score)
	}
}

func TestReviewShowsPickedAndAnswer(t *testing.T) {
	ctx := context.Background()
	quiz := practiceQuiz(true)
	service, store := newTestService(t, quiz)

	started, _ := service.Start(ctx, "quiz-1", "u1")

	if _, err := service.ReviewAttempt(ctx, started.AttemptID, "u1"); !errors.Is(err, domain.ErrAttemptInProgress) {
		t.Fatalf("expected ErrAttemptInProgress before submit, got %v", err)
	}

	answers := correctShuffledAnswers(t, store, started.AttemptID, quiz)
	if _, err := service.Submit(ctx, started.AttemptID, "u1", answers); err != nil {
		t.Fatalf("submit: %v", err)
	}

	review, err := service.ReviewAttempt(ctx, started.AttemptID, "u1")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if len(review.Questions) != 2 {
		t.Fatalf("expected 2 review questions, got %d", len(review.Questions))
	}
	q2 := review.Questions[1]
	if !q2.Correct || len(q2.Answer) != 2 || q2.Answer[0] != 0 || q2.Answer[1] != 2 {
		t.Fatalf("expected answer [0 2] in original space, got %+v", q2)
	}

	if _, err := service.ReviewAttempt(ctx, started.AttemptID, "someone-else"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestListAttemptsSummarizesHistory(t *testing.T) {
	ctx := context.Background()
	quiz := practiceQuiz(true)
	service, store := newTestService(t, quiz)

	first, _ := service.Start(ctx, "quiz-1", "u1")
	answers := correctShuffledAnswers(t, store, first.AttemptID, quiz)
	if _, err := service.Submit(ctx, first.AttemptID, "u1", answers); err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, _ := service.Start(ctx, "quiz-1", "u1")
	_ = second

	summaries, err := service.ListAttempts(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(summaries))
	}

	raw, _ := json.Marshal(summaries)
	if strings.Contains(string(raw), "mapping") {
		t.Fatalf("summaries leak mappings: %s", raw)
	}
}

func TestStartRejectsBrokenSeedData(t *testing.T) {
	ctx := context.Background()
	broken := practiceQuiz(true)
	broken.Questions[0].Options = nil
	service, _ := newTestService(t, broken)

	_, err := service.Start(ctx, "quiz-1", "u1")
	if !errors.Is(err, domain.ErrNoOptions) {
		t.Fatalf("expected ErrNoOptions, got %v", err)
	}
}

func TestUpsertQuizValidates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, practiceQuiz(true))

	bad := practiceQuiz(true)
	bad.ID = "quiz-2"
	bad.Questions[1].Options = []domain.Option{{Text: "all wrong"}}
	if err := service.UpsertQuiz(ctx, bad); !errors.Is(err, domain.ErrNoCorrectOption) {
		t.Fatalf("expected ErrNoCorrectOption, got %v", err)
	}
}
