package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/scoring"
)

// QuizRepository loads and stores quiz content (cache plus backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	PutQuiz(ctx context.Context, quiz domain.Quiz) error
}

// AttemptStore persists attempts. Create must be write-once per attempt ID;
// Complete must only succeed while the stored attempt is still in_progress,
// atomically, so two racing submissions cannot both win.
type AttemptStore interface {
	Create(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	Complete(ctx context.Context, attempt domain.Attempt) error
	ListByUser(ctx context.Context, userID string) ([]domain.Attempt, error)
}

// ScoreConfig controls how the weighted ratio is rescaled for display.
type ScoreConfig struct {
	ScaleMax  float64
	Precision int
}

// Service contains the quiz-attempt use cases: author content, start an
// attempt (shuffle + present), submit (invert + grade), review.
type Service struct {
	quizzes  QuizRepository
	attempts AttemptStore
	hub      *ActivityHub
	shuffler *scoring.Shuffler
	score    ScoreConfig
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(quizzes QuizRepository, attempts AttemptStore, hub *ActivityHub, score ScoreConfig, logger *zap.Logger) *Service {
	return NewServiceWithClock(quizzes, attempts, hub, score, logger, time.Now)
}

// NewServiceWithClock allows deterministic timestamps in tests.
func NewServiceWithClock(quizzes QuizRepository, attempts AttemptStore, hub *ActivityHub, score ScoreConfig, logger *zap.Logger, now func() time.Time) *Service {
	if score.ScaleMax <= 0 {
		score.ScaleMax = 10
	}
	if score.Precision < 0 {
		score.Precision = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewActivityHub()
	}
	return &Service{
		quizzes:  quizzes,
		attempts: attempts,
		hub:      hub,
		shuffler: scoring.NewShuffler(),
		score:    score,
		now:      now,
		logger:   logger,
	}
}

// StartedAttempt is what a client gets back when an attempt begins: the
// attempt handle and correctness-stripped questions in served order. The
// shuffle mapping stays server-side.
type StartedAttempt struct {
	AttemptID string                     `json:"attemptId"`
	QuizID    string                     `json:"quizId"`
	Title     string                     `json:"title"`
	Questions []domain.PresentedQuestion `json:"questions"`
	StartedAt time.Time                  `json:"startedAt"`
	Deadline  *time.Time                 `json:"deadline,omitempty"`
}

// SubmitResult is the graded outcome of one submission.
type SubmitResult struct {
	AttemptID   string                 `json:"attemptId"`
	QuizID      string                 `json:"quizId"`
	Score       float64                `json:"score"`
	ScaleMax    float64                `json:"scaleMax"`
	Results     []domain.QuestionGrade `json:"results"`
	CompletedAt time.Time              `json:"completedAt"`
	TimeUsed    int                    `json:"timeUsed"`
}

// QuizPreview is the client-visible shape of a quiz outside an attempt:
// questions in authoring order, correctness stripped.
type QuizPreview struct {
	ID        string                     `json:"id"`
	Title     string                     `json:"title"`
	TimeLimit int                        `json:"timeLimit,omitempty"`
	Questions []domain.PresentedQuestion `json:"questions"`
}

// ReviewQuestion pairs a graded question with the option texts in original
// order, so a client can render "you picked X, the answer was Y".
type ReviewQuestion struct {
	QuestionID string   `json:"questionId"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	Correct    bool     `json:"correct"`
	Picked     []int    `json:"picked"`
	Answer     []int    `json:"answer"`
}

// Review is the post-grading view of an attempt.
type Review struct {
	AttemptID   string           `json:"attemptId"`
	QuizID      string           `json:"quizId"`
	Title       string           `json:"title"`
	Score       float64          `json:"score"`
	ScaleMax    float64          `json:"scaleMax"`
	TimeUsed    int              `json:"timeUsed"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Questions   []ReviewQuestion `json:"questions"`
}

// AttemptSummary is the list-view projection of an attempt. Mappings and
// per-question results are deliberately absent.
type AttemptSummary struct {
	AttemptID   string               `json:"attemptId"`
	QuizID      string               `json:"quizId"`
	Status      domain.AttemptStatus `json:"status"`
	Score       float64              `json:"score"`
	StartedAt   time.Time            `json:"startedAt"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
}

// UpsertQuiz validates and stores quiz content.
func (s *Service) UpsertQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	if err := s.quizzes.PutQuiz(ctx, quiz); err != nil {
		return fmt.Errorf("store quiz %q: %w", quiz.ID, err)
	}
	s.logger.Info("quiz stored",
		zap.String("quiz", quiz.ID),
		zap.Int("questions", len(quiz.Questions)),
		zap.Bool("shuffle", quiz.Shuffle))
	return nil
}

// Preview returns a quiz in authoring order with correctness stripped.
func (s *Service) Preview(ctx context.Context, quizID string) (QuizPreview, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizPreview{}, err
	}
	questions := make([]domain.PresentedQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, domain.PresentedQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: scoring.Present(q.Options),
			Section: q.Section,
		})
	}
	return QuizPreview{ID: quiz.ID, Title: quiz.Title, TimeLimit: quiz.TimeLimit, Questions: questions}, nil
}

// Start creates an attempt: shuffles every question when the quiz asks for
// it, persists the mappings with the attempt, and returns the presented
// questions. Quizzes with Shuffle disabled get no mappings at all; grading
// then treats submitted indices as original-space.
func (s *Service) Start(ctx context.Context, quizID, userID string) (StartedAttempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return StartedAttempt{}, err
	}
	// Content is validated at upsert time, but stores can be seeded out of
	// band; a broken quiz must fail here, not at grading.
	if err := quiz.Validate(); err != nil {
		return StartedAttempt{}, err
	}

	now := s.now()
	attempt := domain.Attempt{
		ID:        uuid.NewString(),
		QuizID:    quiz.ID,
		UserID:    userID,
		Status:    domain.AttemptInProgress,
		StartedAt: now,
	}
	if quiz.TimeLimit > 0 {
		deadline := now.Add(time.Duration(quiz.TimeLimit) * time.Second)
		attempt.Deadline = &deadline
	}
	if quiz.Shuffle {
		attempt.Mappings = make(map[string][]int, len(quiz.Questions))
	}

	questions := make([]domain.PresentedQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		options := q.Options
		if quiz.Shuffle {
			shuffled, mapping, err := s.shuffler.Shuffle(q.Options)
			if err != nil {
				return StartedAttempt{}, fmt.Errorf("shuffle question %q: %w", q.ID, err)
			}
			attempt.Mappings[q.ID] = mapping
			options = shuffled
		}
		questions = append(questions, domain.PresentedQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: scoring.Present(options),
			Section: q.Section,
		})
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		return StartedAttempt{}, fmt.Errorf("create attempt: %w", err)
	}

	s.hub.Track(quiz.ID, domain.ActivityEntry{
		AttemptID: attempt.ID,
		UserID:    userID,
		Status:    domain.AttemptInProgress,
		UpdatedAt: now,
	})
	s.logger.Info("attempt started",
		zap.String("quiz", quiz.ID),
		zap.String("attempt", attempt.ID),
		zap.String("user", userID))

	return StartedAttempt{
		AttemptID: attempt.ID,
		QuizID:    quiz.ID,
		Title:     quiz.Title,
		Questions: questions,
		StartedAt: now,
		Deadline:  attempt.Deadline,
	}, nil
}

// Submit grades a submission and completes the attempt. The transition out of
// in_progress is one-way: a second submission gets ErrAttemptCompleted, both
// here and from the store's conditional update if two submissions race.
// Answers are shuffled-space indices keyed by question ID; missing questions
// grade as unanswered, unknown question IDs are a caller error.
func (s *Service) Submit(ctx context.Context, attemptID, userID string, answers map[string][]int) (SubmitResult, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return SubmitResult{}, err
	}
	if attempt.UserID != userID {
		return SubmitResult{}, domain.ErrPermissionDenied
	}
	if attempt.Status != domain.AttemptInProgress {
		return SubmitResult{}, domain.ErrAttemptCompleted
	}

	// Ground truth always comes fresh from storage, never from the client.
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}
	for questionID := range answers {
		if _, ok := quiz.QuestionByID(questionID); !ok {
			return SubmitResult{}, fmt.Errorf("submission for question %q: %w", questionID, domain.ErrQuestionNotFound)
		}
	}

	var tally scoring.Tally
	results := make([]domain.QuestionGrade, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		grade := scoring.Grade(q, attempt.Mappings[q.ID], answers[q.ID])
		tally.Add(grade.Weight, grade.Correct)
		results = append(results, grade)
	}

	now := s.now()
	attempt.Status = domain.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.TimeUsed = int(now.Sub(attempt.StartedAt) / time.Second)
	attempt.Score = tally.Scaled(s.score.ScaleMax, s.score.Precision)
	attempt.Results = results

	if err := s.attempts.Complete(ctx, attempt); err != nil {
		return SubmitResult{}, err
	}

	s.hub.Track(quiz.ID, domain.ActivityEntry{
		AttemptID: attempt.ID,
		UserID:    userID,
		Status:    domain.AttemptCompleted,
		Score:     attempt.Score,
		UpdatedAt: now,
	})
	s.logger.Info("attempt completed",
		zap.String("quiz", quiz.ID),
		zap.String("attempt", attempt.ID),
		zap.Float64("score", attempt.Score),
		zap.Int("timeUsed", attempt.TimeUsed))

	return SubmitResult{
		AttemptID:   attempt.ID,
		QuizID:      quiz.ID,
		Score:       attempt.Score,
		ScaleMax:    s.score.ScaleMax,
		Results:     results,
		CompletedAt: now,
		TimeUsed:    attempt.TimeUsed,
	}, nil
}

// ReviewAttempt returns the post-grading view: picked versus correct indices
// per question together with the option texts in original order. It never
// exposes the shuffle mapping itself.
func (s *Service) ReviewAttempt(ctx context.Context, attemptID, userID string) (Review, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return Review{}, err
	}
	if attempt.UserID != userID {
		return Review{}, domain.ErrPermissionDenied
	}
	if attempt.Status != domain.AttemptCompleted {
		return Review{}, domain.ErrAttemptInProgress
	}

	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return Review{}, err
	}

	gradeByQuestion := make(map[string]domain.QuestionGrade, len(attempt.Results))
	for _, grade := range attempt.Results {
		gradeByQuestion[grade.QuestionID] = grade
	}

	questions := make([]ReviewQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		texts := make([]string, len(q.Options))
		for i, opt := range q.Options {
			texts[i] = opt.Text
		}
		grade := gradeByQuestion[q.ID]
		questions = append(questions, ReviewQuestion{
			QuestionID: q.ID,
			Prompt:     q.Prompt,
			Options:    texts,
			Correct:    grade.Correct,
			Picked:     grade.Picked,
			Answer:     grade.Answer,
		})
	}

	return Review{
		AttemptID:   attempt.ID,
		QuizID:      quiz.ID,
		Title:       quiz.Title,
		Score:       attempt.Score,
		ScaleMax:    s.score.ScaleMax,
		TimeUsed:    attempt.TimeUsed,
		CompletedAt: attempt.CompletedAt,
		Questions:   questions,
	}, nil
}

// ListAttempts returns the caller's attempt history, newest first.
func (s *Service) ListAttempts(ctx context.Context, userID string) ([]AttemptSummary, error) {
	attempts, err := s.attempts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	summaries := make([]AttemptSummary, 0, len(attempts))
	for _, attempt := range attempts {
		summaries = append(summaries, AttemptSummary{
			AttemptID:   attempt.ID,
			QuizID:      attempt.QuizID,
			Status:      attempt.Status,
			Score:       attempt.Score,
			StartedAt:   attempt.StartedAt,
			CompletedAt: attempt.CompletedAt,
		})
	}
	return summaries, nil
}

// Activity exposes the live board for a quiz.
func (s *Service) Activity(quizID string) domain.ActivityBoard {
	return s.hub.Board(quizID)
}

// SubscribeActivity streams board updates for a quiz. The caller must invoke
// the cancel function.
func (s *Service) SubscribeActivity(quizID string) (<-chan domain.ActivityBoard, func()) {
	return s.hub.Subscribe(quizID)
}
