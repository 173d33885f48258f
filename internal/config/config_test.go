package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nciso/server/internal/reports"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8089", cfg.Port)
	assert.Equal(t, "technical-documents", cfg.StorageBucket)
	assert.Equal(t, 10, cfg.RateLimitPerSecond)
	assert.Equal(t, reports.DefaultThresholds(), cfg.CurrentThresholds())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "nciso-prod")
	t.Setenv("DATABASE_URL", "postgres://localhost/nciso")
	t.Setenv("SUPABASE_URL", "https://p.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("RATE_LIMIT_PER_SECOND", "25")
	t.Setenv("THRESHOLDS_GAP_GOOD", "70")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.True(t, cfg.DatabaseConfigured())
	assert.False(t, cfg.SupabaseConfigured(), "service role key missing")
	assert.Equal(t, 25, cfg.RateLimitPerSecond)
	assert.Equal(t, float64(70), cfg.CurrentThresholds().GapGood)

	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.SupabaseConfigured())
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"out of range", "THRESHOLDS_LOW_EFFECTIVENESS", "140"},
		{"bands not descending", "THRESHOLDS_GAP_FAIR", "95"},
		{"zero rate limit", "RATE_LIMIT_PER_SECOND", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestThresholdSwap(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	custom := reports.DefaultThresholds()
	custom.LowEffectiveness = 60
	cfg.storeThresholds(custom)
	assert.Equal(t, float64(60), cfg.CurrentThresholds().LowEffectiveness)
}
