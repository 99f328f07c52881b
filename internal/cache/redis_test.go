package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedis_KeyIsStableAndDistinct(t *testing.T) {
	r := NewRedis(RedisConfig{Addr: "127.0.0.1:1", Prefix: "test"}, nil)
	defer r.Close()

	k1 := r.Key("golang", 5)
	assert.Equal(t, k1, r.Key("golang", 5))
	assert.NotEqual(t, k1, r.Key("golang", 10))
	assert.NotEqual(t, k1, r.Key("rust", 5))
	assert.Regexp(t, `^test:[0-9a-f]{64}$`, k1)
}

func TestRedis_UnreachableReturnsErrors(t *testing.T) {
	r := NewRedis(RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1}, nil)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rs, err := r.Get(ctx, "golang", 5)
	assert.Error(t, err)
	assert.Nil(t, rs)

	assert.Error(t, r.Put(ctx, "golang", 5, resultSet("golang"), time.Minute))
	assert.Error(t, r.Ping(ctx))
}
