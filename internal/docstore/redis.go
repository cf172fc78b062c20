package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisCompareAndSetScript replaces a document hash atomically.
// KEYS[1] = document key
// ARGV[1] = expected version ("" = must not exist)
// ARGV[2] = new value
// Returns the new version, or -1 on version mismatch.
var redisCompareAndSetScript = redis.NewScript(`
local key = KEYS[1]
local expected = ARGV[1]
local current = redis.call("HGET", key, "version")

if expected == "" then
    if current then
        return -1
    end
elseif current ~= expected then
    return -1
end

local next = 1
if current then
    next = tonumber(current) + 1
end

redis.call("HSET", key, "value", ARGV[2], "version", tostring(next))
return next
`)

// redisStore keeps each document in a hash with value and version fields.
type redisStore struct {
	client redis.UniversalClient
	prefix string
	logger zerolog.Logger
}

// NewRedisClient creates a client for the given server.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisStore creates a Redis-backed store. Keys are namespaced with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, logger zerolog.Logger) Store {
	return &redisStore{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("component", "redis-store").Logger(),
	}
}

// Get retrieves a document by key.
func (s *redisStore) Get(ctx context.Context, key string) (Document, error) {
	vals, err := s.client.HMGet(ctx, s.prefix+key, "value", "version").Result()
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to read document")
		return Document{}, fmt.Errorf("failed to read document %s: %w", key, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Document{}, ErrNotFound
	}

	value, ok1 := vals[0].(string)
	version, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return Document{}, fmt.Errorf("malformed document %s in redis", key)
	}

	return Document{Value: []byte(value), Version: version}, nil
}

// PutIfVersion runs the compare-and-set script.
func (s *redisStore) PutIfVersion(ctx context.Context, key string, value []byte, version string) (string, error) {
	res, err := redisCompareAndSetScript.Run(ctx, s.client, []string{s.prefix + key}, version, value).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrVersionConflict
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to write document")
		return "", fmt.Errorf("failed to write document %s: %w", key, err)
	}
	if res < 0 {
		s.logger.Debug().Str("key", key).Str("version", version).Msg("document version conflict")
		return "", ErrVersionConflict
	}

	return strconv.FormatInt(res, 10), nil
}

// Close closes the client.
func (s *redisStore) Close() error {
	return s.client.Close()
}
