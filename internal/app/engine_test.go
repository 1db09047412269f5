package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/infra/memory"
)

func newTestEngine(t *testing.T) (*app.Engine, *harness) {
	t.Helper()
	h := newHarness(t, manualSettings())
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-2": twoQuestionQuiz(),
		"empty":  {ID: "empty", Title: "Nothing"},
	}), 5*time.Minute)
	return app.NewEngine(h.registry, quizzes, discardLogger()), h
}

func TestEngineCreateRoomFromCatalog(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	room, err := engine.CreateRoom(ctx, "quiz-2")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.Quiz().Title != "Maths" {
		t.Fatalf("unexpected quiz %+v", room.Quiz())
	}
	if _, err := engine.CreateRoom(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if _, err := engine.CreateRoom(ctx, "empty"); !errors.Is(err, domain.ErrEmptyQuiz) {
		t.Fatalf("expected empty quiz, got %v", err)
	}
}

func TestEngineUnknownPin(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	if _, err := engine.Join(ctx, "999999", domain.JoinRequest{Nickname: "Alice"}); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("join: %v", err)
	}
	if err := engine.StartGame(ctx, "999999", true); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("start: %v", err)
	}
	if _, err := engine.SubmitAnswer(ctx, "999999", domain.AnswerSubmission{PlayerID: "p1"}); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.Leaderboard(ctx, "999999"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("leaderboard: %v", err)
	}
	engine.Disconnect(ctx, "999999", "c1")
}

func TestEngineDrivesRoom(t *testing.T) {
	ctx := context.Background()
	engine, h := newTestEngine(t)
	room, err := engine.CreateRoom(ctx, "quiz-2")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	pin := room.Pin()

	sub, err := engine.Subscribe(ctx, pin, "c1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	joined, err := engine.Join(ctx, pin, domain.JoinRequest{Nickname: "Alice", ConnID: "c1"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := engine.StartGame(ctx, pin, true); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.clock.Advance(time.Second)
	res, err := engine.SubmitAnswer(ctx, pin, domain.AnswerSubmission{PlayerID: joined.PlayerID, QuestionIndex: 0, OptionIndex: 1})
	if err != nil || !res.IsCorrect {
		t.Fatalf("submit: %+v %v", res, err)
	}
	if err := engine.ShowLeaderboard(ctx, pin, true); err != nil {
		t.Fatalf("show leaderboard: %v", err)
	}
	if err := engine.Advance(ctx, pin, true); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := engine.ForceEnd(ctx, pin, true); err != nil {
		t.Fatalf("force end: %v", err)
	}

	lb, err := engine.Leaderboard(ctx, pin)
	if err != nil {
		t.Fatalf("leaderboard after end: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Score != res.TotalScore {
		t.Fatalf("unexpected final leaderboard %+v", lb)
	}
	if _, err := engine.Reconnect(ctx, pin, joined.PlayerID, "c2"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("reconnect after end: %v", err)
	}
	if _, err := engine.Subscribe(ctx, pin, "c3"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("subscribe after end: %v", err)
	}

	if err := engine.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := engine.Room(pin); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("room after shutdown: %v", err)
	}
}
