package domain

import "time"

// Option is one answer choice. Correct is server-side ground truth and must
// never be serialized to a client before the attempt is graded.
type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is an ordered list of options plus scoring metadata. The authoring
// order is the reference space for correctness: index 0..n-1 is the original
// index space that mappings and grades are expressed in.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
	Weight  float64  `json:"weight"`            // defaults to 1 if zero
	Section string   `json:"section,omitempty"` // optional grouping, e.g. "behavioral"
}

// Quiz is the owning aggregate for a set of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Shuffle   bool       `json:"shuffle"`             // when false, attempts are served in authoring order
	TimeLimit int        `json:"timeLimit,omitempty"` // seconds; 0 means untimed
	Questions []Question `json:"questions"`
}

// PresentedOption is the client-visible projection of an Option. It carries no
// correctness field at all, so a stray re-serialization cannot leak ground
// truth and presenting twice is trivially a no-op.
type PresentedOption struct {
	Text string `json:"text"`
}

// PresentedQuestion is a question as handed to a client: options already in
// shuffled order, correctness removed.
type PresentedQuestion struct {
	ID      string            `json:"id"`
	Prompt  string            `json:"prompt"`
	Options []PresentedOption `json:"options"`
	Section string            `json:"section,omitempty"`
}

// AttemptStatus enumerates the attempt lifecycle. Submit is the only
// transition out of InProgress and it is one-way.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// Attempt ties a user to a quiz instance. Mappings records, per question, the
// permutation applied when the attempt was created (mapping[original] =
// shuffled). It is written once at creation and read-only afterwards; the
// grader inverts it to recover original-space indices at submission time.
type Attempt struct {
	ID          string           `json:"id"`
	QuizID      string           `json:"quizId"`
	UserID      string           `json:"userId"`
	Status      AttemptStatus    `json:"status"`
	Mappings    map[string][]int `json:"mappings,omitempty"` // questionID -> mapping; absent for unshuffled quizzes
	StartedAt   time.Time        `json:"startedAt"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	TimeUsed    int              `json:"timeUsed,omitempty"` // seconds between start and submit
	Score       float64          `json:"score"`
	Results     []QuestionGrade  `json:"results,omitempty"`
}

// QuestionGrade is the graded outcome for one question. Picked and Answer are
// original-space indices, suitable for a "you picked X, the answer was Y"
// review screen.
type QuestionGrade struct {
	QuestionID string  `json:"questionId"`
	Correct    bool    `json:"correct"`
	Picked     []int   `json:"picked"`
	Answer     []int   `json:"answer"`
	Weight     float64 `json:"weight"`
}

// ActivityEntry is one attempt's live progress within a quiz.
type ActivityEntry struct {
	AttemptID string        `json:"attemptId"`
	UserID    string        `json:"userId"`
	Status    AttemptStatus `json:"status"`
	Score     float64       `json:"score"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ActivityBoard is a snapshot of all tracked attempts for a quiz, ordered for
// display (completed high scores first).
type ActivityBoard struct {
	QuizID    string          `json:"quizId"`
	Entries   []ActivityEntry `json:"entries"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
