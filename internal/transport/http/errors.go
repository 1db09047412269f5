package http

import (
	"errors"
	"net/http"

	"quiz-live-service/internal/domain"
)

var (
	errBadPayload      = errors.New("invalid payload")
	errMissingNickname = errors.New("nickname is required")
	errUnsupportedType = errors.New("unsupported message type")
)

var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrRoomNotFound, "room_not_found", http.StatusNotFound},
	{domain.ErrQuizNotFound, "quiz_not_found", http.StatusNotFound},
	{domain.ErrInvalidState, "invalid_state", http.StatusConflict},
	{domain.ErrNotHost, "not_host", http.StatusForbidden},
	{domain.ErrNicknameTaken, "nickname_taken", http.StatusConflict},
	{domain.ErrParticipantNotFound, "participant_not_found", http.StatusNotFound},
	{domain.ErrStaleSubmission, "stale_submission", http.StatusConflict},
	{domain.ErrDuplicateSubmission, "duplicate_submission", http.StatusConflict},
	{domain.ErrInvalidOption, "invalid_option", http.StatusBadRequest},
	{domain.ErrEmptyQuiz, "empty_quiz", http.StatusUnprocessableEntity},
	{domain.ErrInvalidQuiz, "invalid_quiz", http.StatusUnprocessableEntity},
	{domain.ErrPinExhaustion, "pin_exhaustion", http.StatusServiceUnavailable},
	{domain.ErrShuttingDown, "shutting_down", http.StatusServiceUnavailable},
	{domain.ErrInternal, "internal", http.StatusInternalServerError},
	{errBadPayload, "bad_request", http.StatusBadRequest},
	{errMissingNickname, "bad_request", http.StatusBadRequest},
	{errUnsupportedType, "unsupported_type", http.StatusBadRequest},
}

// ErrorCode maps an engine error to the stable code sent to clients.
func ErrorCode(err error) string {
	code, _ := classify(err)
	return code
}

func classify(err error) (string, int) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.status
		}
	}
	return "internal", http.StatusInternalServerError
}
