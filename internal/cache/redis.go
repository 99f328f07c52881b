package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
	MaxRetries  int
}

// Redis 基于 Redis 的共享缓存，多个实例可以共用
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
	logger *logrus.Logger
}

type redisEntry struct {
	ResultSet *search.ResultSet `json:"result_set"`
	CreatedAt time.Time         `json:"created_at"`
	TTL       time.Duration     `json:"ttl"`
}

// NewRedis 创建 Redis 缓存。连接失败不会报错，Get/Put 返回错误后由调用方降级
func NewRedis(cfg RedisConfig, logger *logrus.Logger) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "bizsearch"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  cfg.MaxRetries,
	})
	return &Redis{client: client, prefix: cfg.Prefix, now: time.Now, logger: logger}
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	return r.client.Close()
}

// Key 返回 (query, max) 对应的 Redis key
func (r *Redis) Key(normalizedQuery string, maxResults int) string {
	sum := sha256.Sum256([]byte(strconv.Itoa(maxResults) + ":" + normalizedQuery))
	return r.prefix + ":" + hex.EncodeToString(sum[:])
}

// Get 读取缓存，key 不存在或已过期返回 (nil, nil)
func (r *Redis) Get(ctx context.Context, normalizedQuery string, maxResults int) (*search.ResultSet, error) {
	data, err := r.client.Get(ctx, r.Key(normalizedQuery, maxResults)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		r.logger.WithError(err).Warn("⚠️ Dropping undecodable cache entry")
		return nil, nil
	}
	// Redis 的过期精度是毫秒级，这里再按条目自身的 TTL 判断一次
	if r.now().Sub(entry.CreatedAt) > entry.TTL {
		return nil, nil
	}
	return entry.ResultSet, nil
}

// Put 写入缓存，Redis key 的过期时间等于 ttl
func (r *Redis) Put(ctx context.Context, normalizedQuery string, maxResults int, rs *search.ResultSet, ttl time.Duration) error {
	if rs == nil {
		return fmt.Errorf("cache put: nil result set")
	}
	data, err := json.Marshal(redisEntry{ResultSet: rs, CreatedAt: r.now(), TTL: ttl})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, r.Key(normalizedQuery, maxResults), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
