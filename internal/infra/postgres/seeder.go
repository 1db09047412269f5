package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quiz-live-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        string      `bun:"id,pk"`
	Title     string      `bun:"title,notnull"`
	Data      domain.Quiz `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time   `bun:"updated_at,notnull"`
}

// QuizSeeder writes catalog quizzes so that rooms can be created from them.
type QuizSeeder struct {
	db  *bun.DB
	now func() time.Time
}

func NewQuizSeeder(db *bun.DB) *QuizSeeder {
	return &QuizSeeder{db: db, now: time.Now}
}

// Upsert validates and stores quizzes, replacing existing ones with the same id.
func (s *QuizSeeder) Upsert(ctx context.Context, quizzes []domain.Quiz) (int, error) {
	if len(quizzes) == 0 {
		return 0, nil
	}
	now := s.now()
	rows := make([]quizRow, 0, len(quizzes))
	for _, quiz := range quizzes {
		if err := quiz.Validate(); err != nil {
			return 0, fmt.Errorf("quiz %s: %w", quiz.ID, err)
		}
		rows = append(rows, quizRow{ID: quiz.ID, Title: quiz.Title, Data: quiz, UpdatedAt: now})
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert quizzes: %w", err)
	}
	return len(rows), nil
}
