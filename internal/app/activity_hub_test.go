package app

import (
	"testing"
	"time"

	"interview-quiz-service/internal/domain"
)

func TestSubscribeReceivesInitialAndUpdates(t *testing.T) {
	hub := NewActivityHub()

	ch, cancel := hub.Subscribe("quiz-1")
	defer cancel()

	initial := <-ch
	if initial.QuizID != "quiz-1" || len(initial.Entries) != 0 {
		t.Fatalf("expected empty initial board, got %+v", initial)
	}

	hub.Track("quiz-1", domain.ActivityEntry{
		AttemptID: "a1",
		UserID:    "u1",
		Status:    domain.AttemptInProgress,
	})

	update := <-ch
	if len(update.Entries) != 1 || update.Entries[0].AttemptID != "a1" {
		t.Fatalf("expected board with a1, got %+v", update.Entries)
	}
}

func TestTrackUpsertsExistingEntry(t *testing.T) {
	hub := NewActivityHub()

	hub.Track("quiz-1", domain.ActivityEntry{AttemptID: "a1", UserID: "u1", Status: domain.AttemptInProgress})
	board := hub.Track("quiz-1", domain.ActivityEntry{AttemptID: "a1", UserID: "u1", Status: domain.AttemptCompleted, Score: 7.5})

	if len(board.Entries) != 1 {
		t.Fatalf("expected upsert, got %d entries", len(board.Entries))
	}
	if board.Entries[0].Status != domain.AttemptCompleted || board.Entries[0].Score != 7.5 {
		t.Fatalf("expected completed entry with score, got %+v", board.Entries[0])
	}
}

func TestBoardOrdersByScoreThenTime(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	hub := NewActivityHubWithClock(func() time.Time { return base })

	hub.Track("quiz-1", domain.ActivityEntry{AttemptID: "a1", UserID: "u1", Score: 5, UpdatedAt: base.Add(time.Minute)})
	hub.Track("quiz-1", domain.ActivityEntry{AttemptID: "a2", UserID: "u2", Score: 8, UpdatedAt: base.Add(2 * time.Minute)})
	hub.Track("quiz-1", domain.ActivityEntry{AttemptID: "a3", UserID: "u3", Score: 8, UpdatedAt: base})

	board := hub.Board("quiz-1")
	if board.Entries[0].AttemptID != "a3" || board.Entries[1].AttemptID != "a2" || board.Entries[2].AttemptID != "a1" {
		t.Fatalf("unexpected order: %+v", board.Entries)
	}
}

func TestSlowSubscriberKeepsFreshestBoard(t *testing.T) {
	hub := NewActivityHub()

	ch, cancel := hub.Subscribe("quiz-1")
	defer cancel()

	// Fill the buffer well past capacity without reading; broadcast must not
	// block and the channel must end with the most recent boards.
	for i := 0; i < 50; i++ {
		hub.Track("quiz-1", domain.ActivityEntry{AttemptID: "a1", UserID: "u1", Score: float64(i)})
	}

	var last domain.ActivityBoard
	for {
		select {
		case board := <-ch:
			last = board
			continue
		default:
		}
		break
	}
	if len(last.Entries) != 1 || last.Entries[0].Score != 49 {
		t.Fatalf("expected freshest board with score 49, got %+v", last.Entries)
	}
}

func TestCancelClosesChannelAndReleasesIdleBoard(t *testing.T) {
	hub := NewActivityHub()

	ch, cancel := hub.Subscribe("quiz-1")
	<-ch
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}

	hub.mu.RLock()
	_, stillThere := hub.quizzes["quiz-1"]
	hub.mu.RUnlock()
	if stillThere {
		t.Fatalf("expected idle board to be released")
	}
}
