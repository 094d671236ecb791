package appointments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// Dedupe guards against the same conversational session booking the same
// appointment twice. The key is the full request tuple, so a genuinely
// different request (other time, other service) is never blocked.
type Dedupe struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewDedupe builds the booking dedupe guard.
func NewDedupe(rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *Dedupe {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Dedupe{rdb: rdb, ttl: ttl, logger: logger}
}

func (d *Dedupe) key(name, phone, date, timeOfDay, service, preference string) string {
	raw := strings.ToLower(strings.Join([]string{name, phone, date, timeOfDay, service, preference}, "|"))
	sum := sha256.Sum256([]byte(raw))
	return "booking:dedupe:" + hex.EncodeToString(sum[:])
}

// Seen returns the previously booked event ID for an identical request, if
// one exists. Redis being down degrades to "not seen" — a duplicate booking
// beats a refused one.
func (d *Dedupe) Seen(ctx context.Context, name, phone, date, timeOfDay, service, preference string) (string, bool) {
	if d.rdb == nil {
		return "", false
	}
	eventID, err := d.rdb.Get(ctx, d.key(name, phone, date, timeOfDay, service, preference)).Result()
	if err != nil {
		if err != redis.Nil {
			d.logger.Warn("dedupe: redis get failed", "error", err)
		}
		return "", false
	}
	return eventID, true
}

// Remember records a successful booking under its request tuple.
func (d *Dedupe) Remember(ctx context.Context, name, phone, date, timeOfDay, service, preference, eventID string) {
	if d.rdb == nil {
		return
	}
	key := d.key(name, phone, date, timeOfDay, service, preference)
	if err := d.rdb.Set(ctx, key, eventID, d.ttl).Err(); err != nil {
		d.logger.Warn("dedupe: redis set failed", "error", err)
	}
}

// Forget drops the dedupe entry, e.g. after the appointment is cancelled so
// the customer can immediately rebook the same slot.
func (d *Dedupe) Forget(ctx context.Context, name, phone, date, timeOfDay, service, preference string) {
	if d.rdb == nil {
		return
	}
	if err := d.rdb.Del(ctx, d.key(name, phone, date, timeOfDay, service, preference)).Err(); err != nil {
		d.logger.Warn("dedupe: redis del failed", "error", err)
	}
}
