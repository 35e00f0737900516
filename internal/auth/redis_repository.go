package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepository handles one-time token persistence in Redis.
// Each token is a hash keyed by its digest; a per-user pointer names the
// live token so issuing a new one can supersede it. Keys outlive the token by
// the janitor retention window so an expired token is reported as such.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// getTokenKeyPrefix is the key prefix shared by all tokens of purpose
func getTokenKeyPrefix(purpose Purpose) string {
	return fmt.Sprintf("one_time_token:%s:", purpose)
}

// getTokenKey generates the Redis key for a token hash
func getTokenKey(purpose Purpose, tokenHash string) string {
	return getTokenKeyPrefix(purpose) + tokenHash
}

// getUserTokenKey generates the Redis key pointing at the user's live token
func getUserTokenKey(purpose Purpose, userID uuid.UUID) string {
	return fmt.Sprintf("one_time_token:%s:user:%s", purpose, userID.String())
}

// KEYS[1] user pointer, KEYS[2] new token
// ARGV: token key prefix, hash, user id, issued ms, expires ms, ttl ms
var issueScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[1])
if prev then
	redis.call('DEL', ARGV[1] .. prev)
end
redis.call('HSET', KEYS[2], 'user_id', ARGV[3], 'issued_at', ARGV[4], 'expires_at', ARGV[5])
redis.call('PEXPIRE', KEYS[2], ARGV[6])
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[6])
return 1
`)

// KEYS[1] token
// ARGV: now ms, user pointer prefix, hash
var consumeScript = redis.NewScript(`
local data = redis.call('HMGET', KEYS[1], 'user_id', 'issued_at', 'expires_at')
if not data[1] then
	return {'invalid'}
end
if tonumber(data[3]) <= tonumber(ARGV[1]) then
	return {'expired'}
end
redis.call('DEL', KEYS[1])
local userKey = ARGV[2] .. data[1]
if redis.call('GET', userKey) == ARGV[3] then
	redis.call('DEL', userKey)
end
return {'ok', data[1], data[2], data[3]}
`)

// KEYS[1] user pointer
// ARGV: token key prefix
var invalidateScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[1])
if prev then
	redis.call('DEL', ARGV[1] .. prev)
	redis.call('DEL', KEYS[1])
end
return 1
`)

// Issue stores t and drops the user's previous live token in one script
func (r *RedisRepository) Issue(ctx context.Context, t *OneTimeToken) error {
	lifetime := t.ExpiresAt.Sub(t.IssuedAt)
	if lifetime <= 0 {
		return fmt.Errorf("token expiration time is not after issue time")
	}
	ttl := lifetime + expiredTokenRetention

	keys := []string{
		getUserTokenKey(t.Purpose, t.UserID),
		getTokenKey(t.Purpose, t.TokenHash),
	}
	err := issueScript.Run(ctx, r.client, keys,
		getTokenKeyPrefix(t.Purpose),
		t.TokenHash,
		t.UserID.String(),
		t.IssuedAt.UnixMilli(),
		t.ExpiresAt.UnixMilli(),
		ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	return nil
}

// Consume redeems the token with the given hash. Reading, checking and
// deleting happen inside one script so a token can be redeemed only once.
func (r *RedisRepository) Consume(ctx context.Context, purpose Purpose, tokenHash string, now time.Time) (*OneTimeToken, error) {
	res, err := consumeScript.Run(ctx, r.client,
		[]string{getTokenKey(purpose, tokenHash)},
		now.UnixMilli(),
		getTokenKeyPrefix(purpose)+"user:",
		tokenHash,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	switch res[0] {
	case "invalid":
		return nil, ErrTokenInvalid
	case "expired":
		return nil, ErrTokenExpired
	}
	if len(res) != 4 {
		return nil, fmt.Errorf("unexpected consume reply: %v", res)
	}

	userID, err := uuid.Parse(res[1])
	if err != nil {
		return nil, ErrTokenInvalid
	}
	issuedAt, err := parseUnixMilli(res[2])
	if err != nil {
		return nil, err
	}
	expiresAt, err := parseUnixMilli(res[3])
	if err != nil {
		return nil, err
	}

	consumedAt := now
	return &OneTimeToken{
		UserID:     userID,
		Purpose:    purpose,
		TokenHash:  tokenHash,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		ConsumedAt: &consumedAt,
	}, nil
}

// InvalidateAll drops the user's live token of purpose, if any
func (r *RedisRepository) InvalidateAll(ctx context.Context, userID uuid.UUID, purpose Purpose, now time.Time) error {
	err := invalidateScript.Run(ctx, r.client,
		[]string{getUserTokenKey(purpose, userID)},
		getTokenKeyPrefix(purpose),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to invalidate tokens: %w", err)
	}

	return nil
}

// DeleteExpired is a no-op that lets the janitor run against either store.
// Keys carry a TTL of lifetime plus the retention window, so Redis drops
// them on its own.
func (r *RedisRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func parseUnixMilli(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
