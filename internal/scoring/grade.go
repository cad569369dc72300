package scoring

import (
	"math"
	"sort"

	"interview-quiz-service/internal/domain"
)

// Invert builds the inverse permutation: inverse[shuffledIndex] =
// originalIndex. Precomputing it keeps grading linear instead of scanning the
// mapping once per submitted index. Out-of-range mapping entries leave -1
// holes so a corrupt mapping degrades to dropped picks rather than a panic.
func Invert(mapping []int) []int {
	inverse := make([]int, len(mapping))
	for i := range inverse {
		inverse[i] = -1
	}
	for origIdx, newIdx := range mapping {
		if newIdx >= 0 && newIdx < len(inverse) {
			inverse[newIdx] = origIdx
		}
	}
	return inverse
}

// Grade maps a client's shuffled-space picks back to original space and
// compares them against the question's correct set. An empty mapping means
// the attempt was served unshuffled and submitted indices are already in
// original space. Correctness is set equality, so single- and multi-answer
// questions grade uniformly and pick order is irrelevant. An empty submission
// is simply incorrect; indices outside the option range are dropped.
func Grade(q domain.Question, mapping []int, submitted []int) domain.QuestionGrade {
	n := len(q.Options)

	pickedSet := make(map[int]struct{}, len(submitted))
	if len(mapping) == 0 {
		for _, idx := range submitted {
			if idx >= 0 && idx < n {
				pickedSet[idx] = struct{}{}
			}
		}
	} else {
		inverse := Invert(mapping)
		for _, idx := range submitted {
			if idx < 0 || idx >= len(inverse) {
				continue
			}
			if orig := inverse[idx]; orig >= 0 {
				pickedSet[orig] = struct{}{}
			}
		}
	}

	answerSet := make(map[int]struct{}, n)
	for i, opt := range q.Options {
		if opt.Correct {
			answerSet[i] = struct{}{}
		}
	}

	correct := len(pickedSet) == len(answerSet) && len(answerSet) > 0
	if correct {
		for idx := range pickedSet {
			if _, ok := answerSet[idx]; !ok {
				correct = false
				break
			}
		}
	}

	return domain.QuestionGrade{
		QuestionID: q.ID,
		Correct:    correct,
		Picked:     sortedIndices(pickedSet),
		Answer:     sortedIndices(answerSet),
		Weight:     q.EffectiveWeight(),
	}
}

func sortedIndices(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Tally accumulates weighted per-question outcomes into an aggregate score.
type Tally struct {
	gained float64
	total  float64
}

// Add records one graded question.
func (t *Tally) Add(weight float64, correct bool) {
	t.total += weight
	if correct {
		t.gained += weight
	}
}

// Scaled rescales the accumulated ratio to [0, scaleMax], rounded to the
// given number of decimal places. A zero total (no gradable questions) yields
// zero rather than NaN.
func (t *Tally) Scaled(scaleMax float64, precision int) float64 {
	if t.total == 0 {
		return 0
	}
	factor := math.Pow(10, float64(precision))
	return math.Round(t.gained/t.total*scaleMax*factor) / factor
}
