package service

import (
	"context"
	"dsa_hub_backend/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const contentProgressKeyPrefix = "content_progress:"

// ProgressStore 处理进度写入 Redis，未配置 Redis 时为空操作
type ProgressStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewProgressStore(rdb *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{Redis: rdb, TTL: ttl}
}

func progressKey(contentID uint) string {
	return fmt.Sprintf("%s%d", contentProgressKeyPrefix, contentID)
}

func (s *ProgressStore) Set(ctx context.Context, p model.ProcessingProgress) error {
	if s == nil || s.Redis == nil {
		return nil
	}
	p.UpdatedAt = time.Now().Unix()
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, progressKey(p.ContentID), data, s.TTL).Err()
}

func (s *ProgressStore) Get(ctx context.Context, contentID uint) (*model.ProcessingProgress, bool, error) {
	if s == nil || s.Redis == nil {
		return nil, false, nil
	}
	data, err := s.Redis.Get(ctx, progressKey(contentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p model.ProcessingProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (s *ProgressStore) Delete(ctx context.Context, contentID uint) error {
	if s == nil || s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, progressKey(contentID)).Err()
}
