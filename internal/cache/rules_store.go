// Package cache 基于 Redis 保存运行时可调整的分房规则
package cache

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/paiban/roomassign/internal/config"
	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/rules"
)

// DefaultRulesKey 规则配置的默认键
const DefaultRulesKey = "roomassign:rules"

// NewClient 创建Redis客户端
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping 测试Redis连接
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// RulesStore 规则存储
//
// 未保存过规则时返回默认规则。
type RulesStore struct {
	client   *redis.Client
	key      string
	defaults *rules.Config
}

// NewRulesStore 创建规则存储；defaults 为空时使用 rules.DefaultConfig()
func NewRulesStore(client *redis.Client, key string, defaults *rules.Config) *RulesStore {
	if key == "" {
		key = DefaultRulesKey
	}
	if defaults == nil {
		defaults = rules.DefaultConfig()
	}
	return &RulesStore{client: client, key: key, defaults: defaults.Clone()}
}

// Get 读取当前规则
func (s *RulesStore) Get(ctx context.Context) (*rules.Config, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return s.defaults.Clone(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "读取规则失败")
	}

	cfg := &rules.Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "解析规则失败")
	}
	return cfg, nil
}

// Put 校验并保存规则
func (s *RulesStore) Put(ctx context.Context, cfg *rules.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "序列化规则失败")
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "保存规则失败")
	}
	return nil
}

// Reset 删除已保存的规则，恢复默认
func (s *RulesStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "重置规则失败")
	}
	return nil
}
