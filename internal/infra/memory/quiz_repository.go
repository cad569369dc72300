package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"interview-quiz-service/internal/domain"
)

// QuizBackend is the store behind the cache: loads quiz content and accepts
// authored quizzes.
type QuizBackend interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	StoreQuiz(ctx context.Context, quiz domain.Quiz) error
}

// QuizRepository caches quizzes with TTL to avoid repeated backend hits.
// Writes go through to the backend and drop the cached entry.
type QuizRepository struct {
	backend QuizBackend
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(backend QuizBackend, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		backend: backend,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		r.mu.RUnlock()

		quiz, err := r.backend.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// PutQuiz writes through to the backend and invalidates the cached copy so
// the next read sees the new content immediately.
func (r *QuizRepository) PutQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := r.backend.StoreQuiz(ctx, quiz); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.cache, quiz.ID)
	r.mu.Unlock()
	return nil
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizBackend is a map-backed backend, useful for tests and demo mode.
type StaticQuizBackend struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewStaticQuizBackend(quizzes map[string]domain.Quiz) *StaticQuizBackend {
	if quizzes == nil {
		quizzes = make(map[string]domain.Quiz)
	}
	return &StaticQuizBackend{quizzes: quizzes}
}

func (b *StaticQuizBackend) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if quiz, ok := b.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (b *StaticQuizBackend) StoreQuiz(_ context.Context, quiz domain.Quiz) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quizzes[quiz.ID] = quiz
	return nil
}
