// Package cache holds the live passcode entries keyed by identifier.
//
// The Store contract keeps the usecase independent from the backing cache:
// production wires the Redis implementation, unit tests wire Memory.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is the passcode cache contract.
//
// At most one live code exists per identifier; Set replaces any previous
// entry and resets its TTL.
type Store interface {
	// Set stores the code under the identifier with the given TTL.
	Set(ctx context.Context, identifier, code string, ttl time.Duration) error
	// Get returns the live code, or goerror.ErrNotFound when absent/expired.
	Get(ctx context.Context, identifier string) (string, error)
	// Delete removes any live entry. Deleting an absent entry is not an error.
	Delete(ctx context.Context, identifier string) error
	// CompareAndDelete removes the entry only when its value equals code,
	// atomically. It reports whether the entry was consumed.
	CompareAndDelete(ctx context.Context, identifier, code string) (bool, error)
}

const keyPrefix = "passcode:"

// compareAndDeleteScript deletes the key only when it still holds the
// expected value, so concurrent verifies consume the code at most once.
var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is the Store implementation backed by go-redis.
type Redis struct {
	client *redis.Client
	ins    instrument.Instrumentation
}

// NewRedis creates a Redis store on top of an existing client.
func NewRedis(client *redis.Client, ins instrument.Instrumentation) *Redis {
	return &Redis{client: client, ins: ins}
}

func (r *Redis) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return r.ins.Tracer("passcode.outbound.cache").Start(ctx, name)
}

func (r *Redis) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *Redis) Set(ctx context.Context, identifier, code string, ttl time.Duration) (err error) {
	ctx, span := r.startSpan(ctx, "Set")
	defer func() { r.endSpan(span, err) }()

	err = r.client.Set(ctx, keyPrefix+identifier, code, ttl).Err()
	return err
}

func (r *Redis) Get(ctx context.Context, identifier string) (code string, err error) {
	ctx, span := r.startSpan(ctx, "Get")
	defer func() { r.endSpan(span, err) }()

	code, err = r.client.Get(ctx, keyPrefix+identifier).Result()
	if errors.Is(err, redis.Nil) {
		return "", goerror.ErrNotFound
	}
	return code, err
}

func (r *Redis) Delete(ctx context.Context, identifier string) (err error) {
	ctx, span := r.startSpan(ctx, "Delete")
	defer func() { r.endSpan(span, err) }()

	err = r.client.Del(ctx, keyPrefix+identifier).Err()
	return err
}

func (r *Redis) CompareAndDelete(ctx context.Context, identifier, code string) (ok bool, err error) {
	ctx, span := r.startSpan(ctx, "CompareAndDelete")
	defer func() { r.endSpan(span, err) }()

	n, err := compareAndDeleteScript.Run(ctx, r.client, []string{keyPrefix + identifier}, code).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
