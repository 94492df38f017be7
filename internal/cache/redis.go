package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/emrgen/canvas/internal/compress"
	"github.com/emrgen/canvas/internal/graph"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	workspaceVersionHash = "workspace:version"
	defaultTTL           = time.Hour
)

func workspaceKey(id string) string {
	return "workspace:state:" + id
}

var _ WorkspaceCache = (*RedisWorkspaceCache)(nil)

type RedisWorkspaceCache struct {
	client  *redis.Client
	encoder compress.Compress
	ttl     time.Duration
}

func NewRedisWorkspaceCache(client *redis.Client, encoder compress.Compress) *RedisWorkspaceCache {
	if encoder == nil {
		encoder = compress.NewGZip()
	}
	return &RedisWorkspaceCache{client: client, encoder: encoder, ttl: defaultTTL}
}

func (r *RedisWorkspaceCache) GetState(ctx context.Context, workspaceID string) (*graph.State, error) {
	res := r.client.Get(ctx, workspaceKey(workspaceID))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}
	data, err := r.encoder.Decode(buf)
	if err != nil {
		return nil, err
	}

	state := &graph.State{}
	if err := json.Unmarshal(data, state); err != nil {
		logrus.Warnf("cache: dropping unreadable state of workspace %s: %v", workspaceID, err)
		return nil, r.DeleteState(ctx, workspaceID)
	}

	return state, nil
}

// SetState caches the state unless a newer version is already cached.
func (r *RedisWorkspaceCache) SetState(ctx context.Context, workspaceID string, version uint64, state graph.State) error {
	exists, err := r.client.Exists(ctx, workspaceKey(workspaceID)).Result()
	if err != nil {
		return err
	}
	cached, err := r.GetVersion(ctx, workspaceID)
	if err != nil {
		return err
	}
	if exists > 0 && cached > version {
		logrus.Debugf("cache: workspace %s has version %d cached, skipping %d", workspaceID, cached, version)
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	encoded, err := r.encoder.Encode(data)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := p.Set(ctx, workspaceKey(workspaceID), encoded, r.ttl).Err(); err != nil {
			return err
		}

		return p.HSet(ctx, workspaceVersionHash, workspaceID, version).Err()
	})

	return err
}

func (r *RedisWorkspaceCache) GetVersion(ctx context.Context, workspaceID string) (uint64, error) {
	res := r.client.HGet(ctx, workspaceVersionHash, workspaceID)
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return 0, nil
		}
		return 0, res.Err()
	}

	return strconv.ParseUint(res.Val(), 10, 64)
}

func (r *RedisWorkspaceCache) DeleteState(ctx context.Context, workspaceID string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := p.Del(ctx, workspaceKey(workspaceID)).Err(); err != nil {
			return err
		}
		return p.HDel(ctx, workspaceVersionHash, workspaceID).Err()
	})
	return err
}
