package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const hostRole = "host"

var errInvalidToken = errors.New("invalid host token")

// HostTokens issues and verifies the token a host presents to run a room.
// The engine only ever sees the resulting boolean.
type HostTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type hostClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// NewHostTokens signs with secret; an empty secret gets a random per-process key,
// which invalidates outstanding tokens on restart (rooms do not survive it either).
func NewHostTokens(secret string, ttl time.Duration) (*HostTokens, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &HostTokens{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a token proving host rights over the room roomID, reachable
// under pin. A later room that draws the same PIN has a different roomID.
func (h *HostTokens) Issue(pin, roomID string) (string, error) {
	now := h.now()
	claims := hostClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pin,
			ID:        roomID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
		Role: hostRole,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

// Verify checks that token grants host rights over the room roomID at pin.
func (h *HostTokens) Verify(token, pin, roomID string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.now),
	)
	claims := &hostClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return h.secret, nil
	})
	if err != nil || !parsed.Valid {
		return errInvalidToken
	}
	if claims.Role != hostRole || claims.Subject != pin || claims.ID != roomID {
		return errInvalidToken
	}
	return nil
}

// IsHost is the boolean form of Verify.
func (h *HostTokens) IsHost(token, pin, roomID string) bool {
	if token == "" || roomID == "" {
		return false
	}
	return h.Verify(token, pin, roomID) == nil
}
