// Package scoring implements the shuffle/present/grade pipeline. A quiz
// instance gets a random permutation of each question's options; the
// permutation is persisted with the attempt and inverted at grading time, so
// correct-answer positions never have to reach the client.
package scoring

import (
	"math/rand"
	"sync"
	"time"

	"interview-quiz-service/internal/domain"
)

// Shuffler produces per-question option permutations. rand.Rand is not
// concurrency-safe, so access is serialized; one Shuffler can be shared by
// all attempt-creating goroutines.
type Shuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewShuffler returns a time-seeded Shuffler.
func NewShuffler() *Shuffler {
	return NewShufflerWithSource(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewShufflerWithSource allows deterministic permutations in tests.
func NewShufflerWithSource(rnd *rand.Rand) *Shuffler {
	return &Shuffler{rnd: rnd}
}

// Shuffle permutes options uniformly at random and returns the reordered
// slice together with the mapping, where mapping[originalIndex] =
// shuffledIndex. The mapping is a bijection on [0..n-1]; the caller persists
// it so grading can invert it later. A single option is a no-op with mapping
// [0]; zero options is an authoring error.
func (s *Shuffler) Shuffle(options []domain.Option) ([]domain.Option, []int, error) {
	n := len(options)
	if n == 0 {
		return nil, nil, domain.ErrNoOptions
	}

	// order[newIndex] = originalIndex; Perm is a uniform Fisher-Yates.
	s.mu.Lock()
	order := s.rnd.Perm(n)
	s.mu.Unlock()
	shuffled := make([]domain.Option, n)
	mapping := make([]int, n)
	for newIdx, origIdx := range order {
		shuffled[newIdx] = options[origIdx]
		mapping[origIdx] = newIdx
	}
	return shuffled, mapping, nil
}

// Reorder applies a stored mapping to options in authoring order, recreating
// the shuffled order an attempt was served with. An empty mapping means the
// quiz was never shuffled, so a copy in authoring order is returned.
func Reorder(options []domain.Option, mapping []int) []domain.Option {
	out := make([]domain.Option, len(options))
	if len(mapping) != len(options) {
		copy(out, options)
		return out
	}
	for origIdx, newIdx := range mapping {
		if newIdx < 0 || newIdx >= len(out) {
			copy(out, options)
			return out
		}
		out[newIdx] = options[origIdx]
	}
	return out
}

// Present strips correctness from options, preserving their order exactly.
// This is the only sanctioned path from Option to client-visible data.
func Present(options []domain.Option) []domain.PresentedOption {
	out := make([]domain.PresentedOption, len(options))
	for i, opt := range options {
		out[i] = domain.PresentedOption{Text: opt.Text}
	}
	return out
}
