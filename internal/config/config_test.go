package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Cache.Expiry)
	assert.Equal(t, time.Hour, cfg.Cache.SweepInterval)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.DebounceDelay)
	assert.Equal(t, "sqlite", cfg.Snapshot.Store)
	assert.Empty(t, cfg.Upstream.ProxyChain)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("UPSTREAM_PROXY_CHAIN", "https://corsproxy.io/?url=,")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("SNAPSHOT_STORE", "redis")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://corsproxy.io/?url=", ""}, cfg.Upstream.ProxyChain)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "localhost:6380", cfg.Snapshot.RedisAddress())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero attempts", map[string]string{"RETRY_MAX_ATTEMPTS": "0"}},
		{"zero expiry", map[string]string{"CACHE_EXPIRY": "0s"}},
		{"unknown store", map[string]string{"SNAPSHOT_STORE": "mongodb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSNs(t *testing.T) {
	s := SnapshotConfig{
		PostgresUser: "u", PostgresPassword: "p", PostgresHost: "db", PostgresPort: 5432,
		PostgresName: "chronolookup", PostgresSSLMode: "disable",
		MySQLUser: "root", MySQLPassword: "pw", MySQLHost: "mysql", MySQLPort: 3306, MySQLName: "chronolookup",
	}
	assert.Equal(t, "postgres://u:p@db:5432/chronolookup?sslmode=disable", s.PostgresDSN())
	assert.Equal(t, "root:pw@tcp(mysql:3306)/chronolookup?parseTime=true", s.MySQLDSN())
}
