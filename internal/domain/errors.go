package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a PIN is unknown or its room has ended.
	ErrRoomNotFound = errors.New("room not found")
	// ErrInvalidState is returned when an operation is not valid in the room's current phase.
	ErrInvalidState = errors.New("operation not valid in current room state")
	// ErrNotHost is returned when a host command comes from a non-host connection.
	ErrNotHost = errors.New("requester is not the room host")
	// ErrNicknameTaken is returned when another player already holds the nickname.
	ErrNicknameTaken = errors.New("nickname already taken in room")
	// ErrParticipantNotFound is returned when a player tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrStaleSubmission is returned for answers outside the open question window.
	ErrStaleSubmission = errors.New("answer window is closed for this question")
	// ErrDuplicateSubmission is returned when a player answers the same question twice.
	ErrDuplicateSubmission = errors.New("answer already submitted for this question")
	// ErrInvalidOption indicates a submitted option index is out of range.
	ErrInvalidOption = errors.New("option not found")
	// ErrPinExhaustion is returned when no free PIN was found within the retry budget.
	ErrPinExhaustion = errors.New("could not allocate a unique room pin")
	// ErrEmptyQuiz is returned when a room is requested for a quiz without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrInvalidQuiz wraps structural problems in quiz content.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInternal is returned when a room operation failed unexpectedly and the room was ended.
	ErrInternal = errors.New("internal room failure")
	// ErrShuttingDown is returned when rooms are requested while the registry drains.
	ErrShuttingDown = errors.New("registry is shutting down")
)
