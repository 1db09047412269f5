package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quiz-live-service/internal/domain"
)

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// QuizFile is the YAML document layout for a quiz catalog file.
type QuizFile struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// ReadQuizFile parses a YAML quiz catalog.
func ReadQuizFile(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file QuizFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse quiz file %s: %w", path, err)
	}
	for i, quiz := range file.Quizzes {
		if quiz.ID == "" {
			return nil, fmt.Errorf("parse quiz file %s: quiz %d has no id", path, i)
		}
	}
	return file.Quizzes, nil
}

// NewFileQuizLoader loads every quiz of a YAML catalog file into a static loader.
func NewFileQuizLoader(path string) (*StaticQuizLoader, error) {
	quizzes, err := ReadQuizFile(path)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Quiz, len(quizzes))
	for _, quiz := range quizzes {
		byID[quiz.ID] = quiz
	}
	return NewStaticQuizLoader(byID), nil
}
