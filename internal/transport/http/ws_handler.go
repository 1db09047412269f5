package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Inbound event types.
const (
	msgJoinRoom        = "join-room"
	msgReconnect       = "reconnect"
	msgAnswer          = "player:answer"
	msgStartGame       = "host:start_game"
	msgNextQuestion    = "host:next_question"
	msgShowLeaderboard = "host:show_leaderboard"
	msgEndGame         = "host:end_game"
)

// Private outbound event types; room broadcasts use domain.EventType.
const (
	msgJoined       = "joined"
	msgAnswerResult = "answer:result"
	msgError        = "error"
)

// HostVerifier decides whether a connection may issue host commands for the
// room roomID currently registered under pin.
type HostVerifier interface {
	IsHost(token, pin, roomID string) bool
}

type WSHandler struct {
	engine   *app.Engine
	hosts    HostVerifier
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, hosts HostVerifier, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		engine: engine,
		hosts:  hosts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	PlayerID string `json:"playerId"`
}

type reconnectPayload struct {
	PlayerID string `json:"playerId"`
}

type answerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	OptionIndex   int `json:"optionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// client is one websocket connection attached to a room.
type client struct {
	pin      string
	connID   string
	isHost   bool
	playerID string

	conn       *websocket.Conn
	send       chan outboundMessage[any]
	writerDone chan struct{}
}

// push queues msg unless the writer has already gone away.
func (c *client) push(msg outboundMessage[any]) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.writerDone:
		return false
	}
}

func (c *client) fail(err error) {
	c.push(outboundMessage[any]{Type: msgError, Payload: errorPayload{Code: ErrorCode(err), Message: err.Error()}})
}

// ServeWS upgrades HTTP requests to websockets and wires them into a room.
// Query: pin (required), hostToken (optional).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	pin := r.URL.Query().Get("pin")
	if pin == "" {
		http.Error(w, "missing pin", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	room, err := h.engine.Room(pin)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: msgError, Payload: errorPayload{Code: ErrorCode(err), Message: err.Error()}})
		return
	}

	c := &client{
		pin:        pin,
		connID:     uuid.NewString(),
		isHost:     h.hosts.IsHost(r.URL.Query().Get("hostToken"), pin, room.ID()),
		conn:       conn,
		send:       make(chan outboundMessage[any], sendBuffer),
		writerDone: make(chan struct{}),
	}
	logger := h.logger.With("pin", pin, "conn_id", c.connID, "host", c.isHost)

	sub, err := room.Subscribe(c.connID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: msgError, Payload: errorPayload{Code: ErrorCode(err), Message: err.Error()}})
		return
	}
	defer sub.Close()
	defer h.engine.Disconnect(r.Context(), pin, c.connID)
	logger.Info("connection attached")

	closeSignals := make(chan struct{})
	forwardDone := make(chan struct{})

	go h.writeLoop(c, logger)

	go func() {
		defer close(forwardDone)
		for {
			select {
			case ev, ok := <-sub.Events:
				if !ok {
					// room ended or dropped us; unblock the reader so the
					// connection winds down after the queue is flushed
					_ = conn.SetReadDeadline(time.Now())
					return
				}
				if !c.push(outboundMessage[any]{Type: string(ev.Type()), Payload: ev}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read ended", "error", err)
			}
			break
		}
		h.dispatch(r, c, inbound, logger)
	}

	close(closeSignals)
	<-forwardDone
	close(c.send)
	<-c.writerDone
	logger.Info("connection detached", "player_id", c.playerID)
}

// writeLoop is the only goroutine that writes to the connection.
func (h *WSHandler) writeLoop(c *client, logger *slog.Logger) {
	defer close(c.writerDone)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write failed", "error", err, "type", msg.Type)
				// the reader notices the closed socket and triggers the implicit leave
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (h *WSHandler) dispatch(r *http.Request, c *client, inbound inboundMessage, logger *slog.Logger) {
	ctx := r.Context()
	switch inbound.Type {
	case msgJoinRoom:
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.fail(errBadPayload)
			return
		}
		nickname := strings.TrimSpace(payload.Nickname)
		if nickname == "" {
			c.fail(errMissingNickname)
			return
		}
		joined, err := h.engine.Join(ctx, c.pin, domain.JoinRequest{
			Nickname:  nickname,
			AvatarRef: payload.Avatar,
			PlayerID:  payload.PlayerID,
			ConnID:    c.connID,
		})
		if err != nil {
			c.fail(err)
			return
		}
		c.playerID = joined.PlayerID
		c.push(outboundMessage[any]{Type: msgJoined, Payload: joined})

	case msgReconnect:
		var payload reconnectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.PlayerID == "" {
			c.fail(errBadPayload)
			return
		}
		joined, err := h.engine.Reconnect(ctx, c.pin, payload.PlayerID, c.connID)
		if err != nil {
			c.fail(err)
			return
		}
		c.playerID = joined.PlayerID
		c.push(outboundMessage[any]{Type: msgJoined, Payload: joined})

	case msgAnswer:
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.fail(errBadPayload)
			return
		}
		if c.playerID == "" {
			c.fail(domain.ErrParticipantNotFound)
			return
		}
		// the server clock stamps the submission; client timing is never trusted
		result, err := h.engine.SubmitAnswer(ctx, c.pin, domain.AnswerSubmission{
			PlayerID:      c.playerID,
			QuestionIndex: payload.QuestionIndex,
			OptionIndex:   payload.OptionIndex,
		})
		if err != nil {
			c.fail(err)
			return
		}
		c.push(outboundMessage[any]{Type: msgAnswerResult, Payload: result})

	case msgStartGame:
		h.hostCommand(c, inbound.Type, h.engine.StartGame(ctx, c.pin, c.isHost), logger)
	case msgNextQuestion:
		h.hostCommand(c, inbound.Type, h.engine.Advance(ctx, c.pin, c.isHost), logger)
	case msgShowLeaderboard:
		h.hostCommand(c, inbound.Type, h.engine.ShowLeaderboard(ctx, c.pin, c.isHost), logger)
	case msgEndGame:
		h.hostCommand(c, inbound.Type, h.engine.ForceEnd(ctx, c.pin, c.isHost), logger)

	default:
		c.fail(errUnsupportedType)
	}
}

func (h *WSHandler) hostCommand(c *client, command string, err error, logger *slog.Logger) {
	if err != nil {
		logger.Info("host command rejected", "command", command, "error", err)
		c.fail(err)
	}
}
