package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-quiz-service/internal/domain"
)

// AttemptStore keeps attempts as JSON values (SET attempt:{id}) with a
// per-user index set for history queries. Complete runs under WATCH so only
// one of two racing submissions can move the attempt out of in_progress.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(attempt.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store attempt: %w", err)
	}
	if !ok {
		return fmt.Errorf("attempt %q already exists", attempt.ID)
	}
	if err := s.client.SAdd(ctx, s.userKey(attempt.UserID), attempt.ID).Err(); err != nil {
		return fmt.Errorf("index attempt: %w", err)
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, s.userKey(attempt.UserID), s.ttl).Err()
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	raw, err := s.client.Get(ctx, s.key(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) Complete(ctx context.Context, attempt domain.Attempt) error {
	key := s.key(attempt.ID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return err
		}
		var stored domain.Attempt
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("unmarshal attempt: %w", err)
		}
		if stored.Status != domain.AttemptInProgress {
			return domain.ErrAttemptCompleted
		}

		data, err := json.Marshal(attempt)
		if err != nil {
			return fmt.Errorf("marshal attempt: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("complete attempt %q: %w", attempt.ID, redis.TxFailedErr)
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempt ids: %w", err)
	}
	attempts := make([]domain.Attempt, 0, len(ids))
	for _, id := range ids {
		attempt, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrAttemptNotFound) {
			// expired entry still referenced by the index
			continue
		}
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].StartedAt.After(attempts[j].StartedAt)
	})
	return attempts, nil
}

func (s *AttemptStore) key(attemptID string) string {
	return "attempt:" + attemptID
}

func (s *AttemptStore) userKey(userID string) string {
	return "user:" + userID + ":attempts"
}
