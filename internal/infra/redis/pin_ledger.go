package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PinLedger reserves room PINs in Redis so that several engine instances
// behind one load balancer never hand out the same PIN.
// Keys: SET quiz:pin:{pin} {owner} NX EX ttl
type PinLedger struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends KEYS[1] to ARGV[2] ms while it still holds ARGV[1].
// A ttl of 0 only checks ownership.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

func NewPinLedger(client *redis.Client, owner string, ttl time.Duration) *PinLedger {
	return &PinLedger{client: client, owner: owner, ttl: ttl}
}

func (l *PinLedger) Reserve(ctx context.Context, pin string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(pin), l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx pin %s: %w", pin, err)
	}
	return ok, nil
}

// Release deletes the reservation only if this instance still owns it.
func (l *PinLedger) Release(ctx context.Context, pin string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(pin)}, l.owner).Err(); err != nil {
		return fmt.Errorf("release pin %s: %w", pin, err)
	}
	return nil
}

// Refresh extends the reservation of a live room. It reports false when the
// key expired or another instance took it over in the meantime.
func (l *PinLedger) Refresh(ctx context.Context, pin string) (bool, error) {
	held, err := refreshScript.Run(ctx, l.client, []string{l.key(pin)}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("refresh pin %s: %w", pin, err)
	}
	return held == 1, nil
}

func (l *PinLedger) key(pin string) string {
	return "quiz:pin:" + pin
}
