package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"quiz-live-service/internal/app"
)

// HostTokenIssuer mints the credential returned to whoever creates a room.
type HostTokenIssuer interface {
	Issue(pin, roomID string) (string, error)
}

// RoomHandler serves the request/response side of rooms: creation and
// read-only lookups that must keep working after a room ended.
type RoomHandler struct {
	engine *app.Engine
	tokens HostTokenIssuer
	logger *slog.Logger
}

func NewRoomHandler(engine *app.Engine, tokens HostTokenIssuer, logger *slog.Logger) *RoomHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomHandler{engine: engine, tokens: tokens, logger: logger}
}

type createRoomRequest struct {
	QuizID string `json:"quizId"`
}

type createRoomResponse struct {
	Pin            string `json:"pin"`
	HostToken      string `json:"hostToken"`
	Title          string `json:"title"`
	TotalQuestions int    `json:"totalQuestions"`
}

// Register mounts the room routes on mux.
func (h *RoomHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /rooms", h.CreateRoom)
	mux.HandleFunc("GET /rooms/{pin}", h.GetRoom)
	mux.HandleFunc("GET /rooms/{pin}/leaderboard", h.GetLeaderboard)
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		h.writeError(w, errBadPayload)
		return
	}

	room, err := h.engine.CreateRoom(r.Context(), req.QuizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	token, err := h.tokens.Issue(room.Pin(), room.ID())
	if err != nil {
		h.logger.Error("issue host token failed", "pin", room.Pin(), "error", err)
		h.writeError(w, err)
		return
	}

	quiz := room.Quiz()
	writeJSON(w, http.StatusCreated, createRoomResponse{
		Pin:            room.Pin(),
		HostToken:      token,
		Title:          quiz.Title,
		TotalQuestions: len(quiz.Questions),
	})
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.engine.Room(r.PathValue("pin"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room.Snapshot())
}

func (h *RoomHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.engine.Leaderboard(r.Context(), r.PathValue("pin"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *RoomHandler) writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorPayload{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
