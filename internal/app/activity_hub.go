package app

import (
	"sort"
	"sync"
	"time"

	"interview-quiz-service/internal/domain"
)

// ActivityHub fans live attempt progress out to subscribers, one board per
// quiz. It is in-process state only; attempts themselves live in the
// AttemptStore, the hub just mirrors their progress for dashboards and the
// websocket feed.
type ActivityHub struct {
	now func() time.Time

	mu      sync.RWMutex
	quizzes map[string]*quizActivity
}

type quizActivity struct {
	quizID string
	now    func() time.Time

	mu          sync.RWMutex
	entries     map[string]domain.ActivityEntry
	subscribers map[chan domain.ActivityBoard]struct{}
}

func NewActivityHub() *ActivityHub {
	return NewActivityHubWithClock(time.Now)
}

// NewActivityHubWithClock allows deterministic timestamps in tests.
func NewActivityHubWithClock(now func() time.Time) *ActivityHub {
	return &ActivityHub{
		now:     now,
		quizzes: make(map[string]*quizActivity),
	}
}

// Track upserts an attempt's progress entry and broadcasts the new board to
// every subscriber of that quiz.
func (h *ActivityHub) Track(quizID string, entry domain.ActivityEntry) domain.ActivityBoard {
	return h.getOrCreate(quizID).track(entry)
}

// Subscribe returns a channel that receives board updates for a quiz,
// starting with the current snapshot. The caller must invoke the returned
// cancel function to avoid leaks.
func (h *ActivityHub) Subscribe(quizID string) (<-chan domain.ActivityBoard, func()) {
	activity := h.getOrCreate(quizID)
	ch, cancel := activity.subscribe()
	return ch, func() {
		cancel()
		h.releaseIfIdle(quizID)
	}
}

// Board returns the current snapshot without subscribing.
func (h *ActivityHub) Board(quizID string) domain.ActivityBoard {
	h.mu.RLock()
	activity, ok := h.quizzes[quizID]
	h.mu.RUnlock()
	if !ok {
		return domain.ActivityBoard{QuizID: quizID, Entries: []domain.ActivityEntry{}, UpdatedAt: h.now()}
	}
	activity.mu.RLock()
	defer activity.mu.RUnlock()
	return activity.snapshotLocked()
}

func (h *ActivityHub) getOrCreate(quizID string) *quizActivity {
	h.mu.Lock()
	defer h.mu.Unlock()
	if activity, ok := h.quizzes[quizID]; ok {
		return activity
	}
	activity := &quizActivity{
		quizID:      quizID,
		now:         h.now,
		entries:     make(map[string]domain.ActivityEntry),
		subscribers: make(map[chan domain.ActivityBoard]struct{}),
	}
	h.quizzes[quizID] = activity
	return activity
}

// releaseIfIdle drops a quiz board once nobody watches it and nothing is in
// flight, so idle quizzes do not accumulate forever.
func (h *ActivityHub) releaseIfIdle(quizID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	activity, ok := h.quizzes[quizID]
	if !ok {
		return
	}
	if activity.isIdle() {
		delete(h.quizzes, quizID)
	}
}

func (a *quizActivity) track(entry domain.ActivityEntry) domain.ActivityBoard {
	a.mu.Lock()
	defer a.mu.Unlock()
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = a.now()
	}
	a.entries[entry.AttemptID] = entry
	return a.broadcastLocked()
}

func (a *quizActivity) subscribe() (<-chan domain.ActivityBoard, func()) {
	ch := make(chan domain.ActivityBoard, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	initial := a.snapshotLocked()
	a.mu.Unlock()

	ch <- initial

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *quizActivity) isIdle() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.subscribers) > 0 {
		return false
	}
	for _, entry := range a.entries {
		if entry.Status == domain.AttemptInProgress {
			return false
		}
	}
	return true
}

func (a *quizActivity) broadcastLocked() domain.ActivityBoard {
	board := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- board:
		default:
			// A slow subscriber keeps only the freshest board; stale
			// snapshots are dropped instead of blocking the broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
	return board
}

func (a *quizActivity) snapshotLocked() domain.ActivityBoard {
	entries := make([]domain.ActivityEntry, 0, len(a.entries))
	for _, entry := range a.entries {
		entries = append(entries, entry)
	}

	// Highest score first, earlier finishers break ties, user ID keeps the
	// order stable.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})

	return domain.ActivityBoard{
		QuizID:    a.quizID,
		Entries:   entries,
		UpdatedAt: a.now(),
	}
}
