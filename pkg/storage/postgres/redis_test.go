package postgres

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docvault/pkg/storage"
)

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      storage.Config
		wantDB   int
		wantPool int
		wantErr  bool
	}{
		{name: "url only", cfg: storage.Config{RedisURL: "redis://localhost:6379/2"}, wantDB: 2},
		{name: "overrides", cfg: storage.Config{RedisURL: "redis://localhost:6379/2", RedisDB: 5, RedisPoolSize: 7}, wantDB: 5, wantPool: 7},
		{name: "missing url", cfg: storage.Config{}, wantErr: true},
		{name: "bad url", cfg: storage.Config{RedisURL: "not-a-url"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := redisOptions(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDB, opts.DB)
			if tt.wantPool > 0 {
				assert.Equal(t, tt.wantPool, opts.PoolSize)
			}
		})
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), storage.Config{
		RedisURL:      "redis://" + mr.Addr(),
		RedisPoolSize: 4,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 4, client.Options().PoolSize)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	assert.True(t, mr.Exists("k"))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(context.Background(), storage.Config{RedisURL: "redis://" + addr})
	assert.ErrorContains(t, err, "redis unreachable")
}
