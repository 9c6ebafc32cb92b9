package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "REQUEST_TIMEOUT", "BANDIT_STORE", "DB_ENABLED", "CORS_ALLOW_ORIGINS"} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, StoreMemory, cfg.Bandit.Store)
	assert.Equal(t, 2.0, cfg.Bandit.MaxObservedReward)
	assert.Equal(t, 1.0, cfg.Bandit.RewardClick)
	assert.Equal(t, 5, cfg.Bandit.DefaultK)
	assert.Equal(t, uint32(5), cfg.Bandit.BreakerFailureThreshold)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.Server.AllowOrigins)
}

func TestLoad_BanditOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BANDIT_STORE", "Badger")
	t.Setenv("BANDIT_MAX_OBSERVED_REWARD", "5")
	t.Setenv("BANDIT_REWARD_ADD_TO_CART", "5")
	t.Setenv("BANDIT_BREAKER_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreBadger, cfg.Bandit.Store)
	assert.Equal(t, 5.0, cfg.Bandit.MaxObservedReward)
	assert.Equal(t, 30*time.Second, cfg.Bandit.BreakerTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing jwt secret", map[string]string{}, "missing jwt secret"},
		{"unknown store", map[string]string{"JWT_SECRET": "s", "BANDIT_STORE": "mongo"}, `unknown bandit store "mongo"`},
		{"postgres without database", map[string]string{"JWT_SECRET": "s", "BANDIT_STORE": "postgres"}, "postgres bandit store requires DB_ENABLED=true"},
		{"database without password", map[string]string{"JWT_SECRET": "s", "DB_ENABLED": "true"}, "missing database password"},
		{"zero ceiling", map[string]string{"JWT_SECRET": "s", "BANDIT_MAX_OBSERVED_REWARD": "0"}, "bandit max observed reward must be greater than 0"},
		{"bad number", map[string]string{"JWT_SECRET": "s", "BANDIT_REWARD_CLICK": "lots"}, "invalid bandit_reward_click"},
		{"negative reward", map[string]string{"JWT_SECRET": "s", "BANDIT_REWARD_VIEW": "-1"}, "bandit rewards cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.EqualError(t, err, tt.want)
		})
	}
}
