package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"interview-quiz-service/internal/domain"
)

func sampleAttempt(id string, started time.Time) domain.Attempt {
	return domain.Attempt{
		ID:        id,
		QuizID:    "quiz-1",
		UserID:    "u1",
		Status:    domain.AttemptInProgress,
		Mappings:  map[string][]int{"q1": {1, 0}},
		StartedAt: started,
	}
}

func TestAttemptStoreLifecycle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewAttemptStore(newClient(mr), time.Hour)
	started := time.Now().UTC()

	if err := store.Create(ctx, sampleAttempt("a1", started)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, sampleAttempt("a1", started)); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}

	attempt, err := store.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if attempt.Mappings["q1"][0] != 1 {
		t.Fatalf("mapping not preserved: %v", attempt.Mappings)
	}

	now := time.Now().UTC()
	attempt.Status = domain.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.Score = 6.7
	if err := store.Complete(ctx, attempt); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := store.Complete(ctx, attempt); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected ErrAttemptCompleted on second complete, got %v", err)
	}

	stored, _ := store.Get(ctx, "a1")
	if stored.Score != 6.7 || stored.Status != domain.AttemptCompleted {
		t.Fatalf("unexpected stored attempt: %+v", stored)
	}
}

func TestAttemptStoreMissing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewAttemptStore(newClient(mr), time.Hour)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
	if err := store.Complete(context.Background(), domain.Attempt{ID: "nope"}); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound on complete, got %v", err)
	}
}

func TestListByUserReadsIndex(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewAttemptStore(newClient(mr), time.Hour)
	base := time.Now().UTC()

	if err := store.Create(ctx, sampleAttempt("a1", base)); err != nil {
		t.Fatalf("create a1: %v", err)
	}
	if err := store.Create(ctx, sampleAttempt("a2", base.Add(time.Minute))); err != nil {
		t.Fatalf("create a2: %v", err)
	}
	other := sampleAttempt("a3", base)
	other.UserID = "u2"
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("create a3: %v", err)
	}

	attempts, err := store.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 2 || attempts[0].ID != "a2" || attempts[1].ID != "a1" {
		t.Fatalf("unexpected listing: %+v", attempts)
	}
}
