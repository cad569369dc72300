package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"interview-quiz-service/internal/domain"
)

// QuizBackend is the store behind the cache: loads quiz content and accepts
// authored quizzes.
type QuizBackend interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	StoreQuiz(ctx context.Context, quiz domain.Quiz) error
}

// QuizRepository caches whole quizzes as JSON in Redis
// (SET quiz:{quizID}:content) and falls back to the backend on a miss. The
// full document is cached, not an answers-only hash, because grading needs
// multi-answer ground truth and the presenter needs prompts and option texts.
type QuizRepository struct {
	client  *redis.Client
	backend QuizBackend
	ttl     time.Duration
	sf      singleflight.Group
	rnd     *rand.Rand
}

func NewQuizRepository(client *redis.Client, backend QuizBackend, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client:  client,
		backend: backend,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := r.contentKey(quizID)

	if quiz, ok := r.readCached(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if quiz, ok := r.readCached(ctx, key); ok {
			return quiz, nil
		}

		quiz, err := r.backend.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		data, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
		}
		// best-effort cache fill
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()

		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// PutQuiz writes through to the backend and drops the cached document.
func (r *QuizRepository) PutQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := r.backend.StoreQuiz(ctx, quiz); err != nil {
		return err
	}
	return r.client.Del(ctx, r.contentKey(quiz.ID)).Err()
}

func (r *QuizRepository) readCached(ctx context.Context, key string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) contentKey(quizID string) string {
	return "quiz:" + quizID + ":content"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
