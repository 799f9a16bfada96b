// Package redis provides a durable core.ResultStore backed by Redis.
//
// Results are stored as JSON under sceneloop:result:{scene}:{agent} so the
// dashboard can read them without Go-specific decoding, with a per-scene set
// tracking which agent types have completed. Each scene owns a disjoint key
// namespace, so concurrent scene runs never contend on the same keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/store"
)

const (
	resultPrefix = "sceneloop:result:"
	scenePrefix  = "sceneloop:scene:"
)

// Options configures the redis-backed store.
type Options struct {
	// TTL bounds how long results are retained. Zero means no expiry.
	TTL time.Duration
}

// Store implements core.ResultStore on top of a redis client.
type Store struct {
	rdb  *redis.Client
	opts Options
}

// New creates a Store from an existing redis client.
func New(rdb *redis.Client, optFns ...func(o *Options)) *Store {
	opts := Options{TTL: 24 * time.Hour}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{rdb: rdb, opts: opts}
}

// NewFromURL creates a Store by parsing a redis connection URL.
func NewFromURL(url string, optFns ...func(o *Options)) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis store: %w", err)
	}
	return New(redis.NewClient(opt), optFns...), nil
}

func resultKey(sceneID string, agentType core.AgentType) string {
	return resultPrefix + sceneID + ":" + string(agentType)
}

func sceneKey(sceneID string) string {
	return scenePrefix + sceneID + ":agents"
}

// Save persists the normalized result and registers the agent type in the
// scene's completion set.
func (s *Store) Save(ctx context.Context, sceneID string, agentType core.AgentType, resp *core.AgentResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("redis store: encode result: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, resultKey(sceneID, agentType), data, s.opts.TTL)
	pipe.SAdd(ctx, sceneKey(sceneID), string(agentType))
	if s.opts.TTL > 0 {
		pipe.Expire(ctx, sceneKey(sceneID), s.opts.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: save %s/%s: %w", sceneID, agentType, err)
	}
	return nil
}

// Get returns the stored result or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, sceneID string, agentType core.AgentType) (*core.AgentResponse, error) {
	data, err := s.rdb.Get(ctx, resultKey(sceneID, agentType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: get %s/%s: %w", sceneID, agentType, err)
	}
	var resp core.AgentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("redis store: decode result %s/%s: %w", sceneID, agentType, err)
	}
	return &resp, nil
}

// List returns the agent types recorded for the scene.
func (s *Store) List(ctx context.Context, sceneID string) ([]core.AgentType, error) {
	members, err := s.rdb.SMembers(ctx, sceneKey(sceneID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: list %s: %w", sceneID, err)
	}
	types := make([]core.AgentType, 0, len(members))
	for _, m := range members {
		types = append(types, core.AgentType(m))
	}
	return types, nil
}

// Delete removes the result and its completion-set entry.
func (s *Store) Delete(ctx context.Context, sceneID string, agentType core.AgentType) error {
	removed, err := s.rdb.Del(ctx, resultKey(sceneID, agentType)).Result()
	if err != nil {
		return fmt.Errorf("redis store: delete %s/%s: %w", sceneID, agentType, err)
	}
	if removed == 0 {
		return store.ErrNotFound
	}
	if err := s.rdb.SRem(ctx, sceneKey(sceneID), string(agentType)).Err(); err != nil {
		return fmt.Errorf("redis store: delete %s/%s: %w", sceneID, agentType, err)
	}
	return nil
}

// Interface compliance (compile-time assertion)
var _ core.ResultStore = (*Store)(nil)
