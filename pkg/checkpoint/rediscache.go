package checkpoint

import (
	"context"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
)

// effectTTL bounds how long a Redis-cached effect id is trusted before a
// caller must fall back to the Postgres ledger. A session that's still
// active re-touches its own effect ids far more often than this.
const effectTTL = 24 * time.Hour

// RedisLedger is a fast front-cache over a durable Store's side-effect
// ledger. It satisfies pkg/react.IdempotencyLedger directly: Seen checks
// Redis first and falls back to the durable store on a miss (so a cold
// cache never wrongly reports "never dispatched"); Record writes through
// to both.
//
// pkg/react.Dispatch's effect ids are "session:iter:op-index" triples
// (e.g. "sess-42:3:0"); the session id is recovered by splitting on the
// first colon so the durable store's per-session ledger stays keyed the
// way spec.md §6 describes.
type RedisLedger struct {
	client  *redis.Client
	durable Store
	log     logr.Logger
}

// NewRedisLedger wires a Redis front-cache ahead of a durable Store.
// durable may be nil for a Redis-only deployment (tests, local runs); in
// that case a cache miss is treated as "not seen".
func NewRedisLedger(client *redis.Client, durable Store, log logr.Logger) *RedisLedger {
	return &RedisLedger{client: client, durable: durable, log: log}
}

func effectKey(effectID string) string {
	return "robobrain:effect:" + effectID
}

func sessionFromEffectID(effectID string) string {
	if i := strings.IndexByte(effectID, ':'); i >= 0 {
		return effectID[:i]
	}
	return effectID
}

func (r *RedisLedger) Seen(ctx context.Context, effectID string) (bool, error) {
	n, err := r.client.Exists(ctx, effectKey(effectID)).Result()
	if err != nil {
		r.log.Error(err, "redis effect lookup failed, falling back to durable store")
		if r.durable != nil {
			return r.durable.EffectExecuted(ctx, sessionFromEffectID(effectID), effectID)
		}
		return false, apperrors.Wrap(err, apperrors.ErrorTypeStore, "redis effect lookup failed with no durable fallback")
	}
	if n > 0 {
		return true, nil
	}
	if r.durable == nil {
		return false, nil
	}
	return r.durable.EffectExecuted(ctx, sessionFromEffectID(effectID), effectID)
}

func (r *RedisLedger) Record(ctx context.Context, effectID string) error {
	if err := r.client.Set(ctx, effectKey(effectID), 1, effectTTL).Err(); err != nil {
		r.log.Error(err, "redis effect record failed")
	}
	if r.durable != nil {
		return r.durable.MarkEffect(ctx, sessionFromEffectID(effectID), effectID)
	}
	return nil
}
