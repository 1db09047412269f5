package app

import (
	"context"
	"log/slog"

	"quiz-live-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Engine is the command surface the transport layer drives: room creation,
// roster changes, host commands and answer submission.
type Engine struct {
	rooms   *Registry
	quizzes QuizRepository
	logger  *slog.Logger
}

func NewEngine(rooms *Registry, quizzes QuizRepository, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rooms: rooms, quizzes: quizzes, logger: logger}
}

// CreateRoom loads a quiz from the catalog and opens a waiting room for it.
func (e *Engine) CreateRoom(ctx context.Context, quizID string) (*Room, error) {
	quiz, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	return e.rooms.CreateRoom(ctx, quiz)
}

// Room looks up a room that still accepts commands.
func (e *Engine) Room(pin string) (*Room, error) {
	room, ok := e.rooms.GetRoom(pin)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Join registers or refreshes a participant and binds it to connID.
func (e *Engine) Join(_ context.Context, pin string, req domain.JoinRequest) (domain.JoinResult, error) {
	room, err := e.Room(pin)
	if err != nil {
		return domain.JoinResult{}, err
	}
	return room.Join(req)
}

// Reconnect binds a new connection to a participant that joined earlier.
func (e *Engine) Reconnect(_ context.Context, pin, playerID, connID string) (domain.JoinResult, error) {
	room, err := e.Room(pin)
	if err != nil {
		return domain.JoinResult{}, err
	}
	return room.Reconnect(playerID, connID)
}

// Subscribe returns the room event stream for a connection.
// The caller must Close the subscription to avoid leaks.
func (e *Engine) Subscribe(_ context.Context, pin, connID string) (*Subscription, error) {
	room, err := e.Room(pin)
	if err != nil {
		return nil, err
	}
	return room.Subscribe(connID)
}

// Disconnect handles a transport disconnect: the participant bound to connID
// is marked detached; its score is kept.
func (e *Engine) Disconnect(_ context.Context, pin, connID string) {
	room, ok := e.rooms.GetRoom(pin)
	if !ok {
		return
	}
	room.Leave(connID)
}

// SubmitAnswer scores a player's answer against the open question.
func (e *Engine) SubmitAnswer(_ context.Context, pin string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	room, err := e.Room(pin)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return room.SubmitAnswer(sub)
}

func (e *Engine) StartGame(_ context.Context, pin string, isHost bool) error {
	room, err := e.Room(pin)
	if err != nil {
		return err
	}
	return room.Start(isHost)
}

func (e *Engine) Advance(_ context.Context, pin string, isHost bool) error {
	room, err := e.Room(pin)
	if err != nil {
		return err
	}
	return room.Advance(isHost)
}

func (e *Engine) ShowLeaderboard(_ context.Context, pin string, isHost bool) error {
	room, err := e.Room(pin)
	if err != nil {
		return err
	}
	return room.ShowLeaderboard(isHost)
}

func (e *Engine) ForceEnd(_ context.Context, pin string, isHost bool) error {
	room, err := e.Room(pin)
	if err != nil {
		return err
	}
	return room.ForceEnd(isHost)
}

// Leaderboard serves standings, including for ended rooms inside the retention window.
func (e *Engine) Leaderboard(_ context.Context, pin string) (domain.Leaderboard, error) {
	room, err := e.Room(pin)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return room.Leaderboard(), nil
}

// Shutdown drains every room; pending timers become no-ops.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.rooms.Shutdown(ctx)
}
