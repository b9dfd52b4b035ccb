package fingov

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	type testCase struct {
		name      string
		mutate    func(c *Config)
		expectErr string
	}
	tests := []testCase{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "sqlite without path", mutate: func(c *Config) { c.Store.Driver = StoreSQLite }, expectErr: "store.path"},
		{name: "sqlite with path", mutate: func(c *Config) { c.Store.Driver = StoreSQLite; c.Store.Path = "/tmp/fingov.db" }},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "postgres" }, expectErr: "store.driver"},
		{name: "redis without addr", mutate: func(c *Config) { c.Lock.Driver = LockRedis; c.Lock.Redis.Addr = "" }, expectErr: "lock.redis.addr"},
		{name: "unknown lock", mutate: func(c *Config) { c.Lock.Driver = "zk" }, expectErr: "lock.driver"},
		{name: "negative retry", mutate: func(c *Config) { c.Retry.MaxAttempts = -1 }, expectErr: "retry.maxAttempts"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expectErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.expectErr)
			}
		})
	}
	var nilConfig *Config
	assert.NoError(t, nilConfig.Validate())
}
