package scoring

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"interview-quiz-service/internal/domain"
)

func TestShuffleMappingIsBijection(t *testing.T) {
	s := NewShufflerWithSource(rand.New(rand.NewSource(42)))

	for n := 1; n <= 8; n++ {
		options := makeOptions(n)
		shuffled, mapping, err := s.Shuffle(options)
		if err != nil {
			t.Fatalf("n=%d shuffle: %v", n, err)
		}
		if len(shuffled) != n || len(mapping) != n {
			t.Fatalf("n=%d expected %d options and mapping entries, got %d/%d", n, n, len(shuffled), len(mapping))
		}
		seen := make(map[int]bool, n)
		for origIdx, newIdx := range mapping {
			if newIdx < 0 || newIdx >= n {
				t.Fatalf("n=%d mapping[%d]=%d out of range", n, origIdx, newIdx)
			}
			if seen[newIdx] {
				t.Fatalf("n=%d duplicate target %d in mapping %v", n, newIdx, mapping)
			}
			seen[newIdx] = true
			if shuffled[newIdx].Text != options[origIdx].Text {
				t.Fatalf("n=%d option %d not moved to %d: %v", n, origIdx, newIdx, shuffled)
			}
		}
	}
}

func TestShuffleRoundTripThroughInverse(t *testing.T) {
	s := NewShufflerWithSource(rand.New(rand.NewSource(7)))

	_, mapping, err := s.Shuffle(makeOptions(6))
	if err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	inverse := Invert(mapping)
	for origIdx := range mapping {
		if inverse[mapping[origIdx]] != origIdx {
			t.Fatalf("inverse(mapping)[mapping[%d]] = %d, mapping=%v inverse=%v",
				origIdx, inverse[mapping[origIdx]], mapping, inverse)
		}
	}
}

func TestShuffleSingleOptionIsNoOp(t *testing.T) {
	s := NewShuffler()
	shuffled, mapping, err := s.Shuffle(makeOptions(1))
	if err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	if len(mapping) != 1 || mapping[0] != 0 {
		t.Fatalf("expected mapping [0], got %v", mapping)
	}
	if shuffled[0].Text != "option-0" {
		t.Fatalf("expected untouched option, got %+v", shuffled[0])
	}
}

func TestShuffleRejectsEmptyOptions(t *testing.T) {
	s := NewShuffler()
	if _, _, err := s.Shuffle(nil); err != domain.ErrNoOptions {
		t.Fatalf("expected ErrNoOptions, got %v", err)
	}
}

func TestReorderRecreatesServedOrder(t *testing.T) {
	s := NewShufflerWithSource(rand.New(rand.NewSource(13)))
	options := makeOptions(5)

	shuffled, mapping, err := s.Shuffle(options)
	if err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	replayed := Reorder(options, mapping)
	for i := range shuffled {
		if replayed[i].Text != shuffled[i].Text {
			t.Fatalf("position %d: replay %q != served %q", i, replayed[i].Text, shuffled[i].Text)
		}
	}

	// No mapping means no shuffle: authoring order comes back.
	plain := Reorder(options, nil)
	for i := range options {
		if plain[i].Text != options[i].Text {
			t.Fatalf("expected authoring order, got %v", plain)
		}
	}
}

func TestPresentStripsCorrectnessEverywhere(t *testing.T) {
	options := []domain.Option{
		{Text: "STAR method", Correct: true},
		{Text: "Wing it", Correct: false},
	}

	presented := Present(options)
	if len(presented) != 2 || presented[0].Text != "STAR method" || presented[1].Text != "Wing it" {
		t.Fatalf("expected order-preserving projection, got %+v", presented)
	}

	raw, err := json.Marshal(presented)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(raw)), "correct") {
		t.Fatalf("correctness leaked into client payload: %s", raw)
	}
}

func makeOptions(n int) []domain.Option {
	options := make([]domain.Option, n)
	for i := range options {
		options[i] = domain.Option{Text: "option-" + strconv.Itoa(i), Correct: i == 0}
	}
	return options
}
