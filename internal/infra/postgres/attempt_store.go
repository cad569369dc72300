package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"interview-quiz-service/internal/domain"
)

// attemptRow is the bun model for the attempts table. The queryable fields
// are real columns; the mappings and per-question results travel in a JSONB
// payload, which keeps the shuffle mapping out of any ad-hoc SELECT a
// reporting tool might run.
type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID          string     `bun:"id,pk"`
	QuizID      string     `bun:"quiz_id,notnull"`
	UserID      string     `bun:"user_id,notnull"`
	Status      string     `bun:"status,notnull"`
	Score       float64    `bun:"score,notnull,default:0"`
	Payload     []byte     `bun:"payload,type:jsonb,notnull"`
	StartedAt   time.Time  `bun:"started_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at"`
}

type attemptPayload struct {
	Mappings map[string][]int       `json:"mappings,omitempty"`
	Deadline *time.Time             `json:"deadline,omitempty"`
	TimeUsed int                    `json:"timeUsed,omitempty"`
	Results  []domain.QuestionGrade `json:"results,omitempty"`
}

// AttemptStore is the bun-backed implementation of app.AttemptStore.
// Complete is a single conditional UPDATE on status, so of two racing
// submissions exactly one sees a row change.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) error {
	row, err := toRow(attempt)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("a.id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("select attempt: %w", err)
	}
	return fromRow(row)
}

func (s *AttemptStore) Complete(ctx context.Context, attempt domain.Attempt) error {
	row, err := toRow(attempt)
	if err != nil {
		return err
	}
	res, err := s.db.NewUpdate().
		Model(&row).
		Column("status", "score", "payload", "completed_at").
		Where("a.id = ?", attempt.ID).
		Where("a.status = ?", string(domain.AttemptInProgress)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if affected == 0 {
		// Either never created or a racing submission won; look once more
		// to report which.
		exists, err := s.db.NewSelect().Model((*attemptRow)(nil)).Where("a.id = ?", attempt.ID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}
		if !exists {
			return domain.ErrAttemptNotFound
		}
		return domain.ErrAttemptCompleted
	}
	return nil
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("a.user_id = ?", userID).
		Order("started_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts := make([]domain.Attempt, 0, len(rows))
	for _, row := range rows {
		attempt, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

func toRow(attempt domain.Attempt) (attemptRow, error) {
	payload, err := json.Marshal(attemptPayload{
		Mappings: attempt.Mappings,
		Deadline: attempt.Deadline,
		TimeUsed: attempt.TimeUsed,
		Results:  attempt.Results,
	})
	if err != nil {
		return attemptRow{}, fmt.Errorf("marshal attempt payload: %w", err)
	}
	return attemptRow{
		ID:          attempt.ID,
		QuizID:      attempt.QuizID,
		UserID:      attempt.UserID,
		Status:      string(attempt.Status),
		Score:       attempt.Score,
		Payload:     payload,
		StartedAt:   attempt.StartedAt,
		CompletedAt: attempt.CompletedAt,
	}, nil
}

func fromRow(row attemptRow) (domain.Attempt, error) {
	var payload attemptPayload
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal attempt payload: %w", err)
		}
	}
	return domain.Attempt{
		ID:          row.ID,
		QuizID:      row.QuizID,
		UserID:      row.UserID,
		Status:      domain.AttemptStatus(row.Status),
		Score:       row.Score,
		Mappings:    payload.Mappings,
		Deadline:    payload.Deadline,
		TimeUsed:    payload.TimeUsed,
		Results:     payload.Results,
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
	}, nil
}
