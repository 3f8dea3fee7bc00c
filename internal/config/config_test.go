package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 50, cfg.OutboxClaimBatch)
	assert.Equal(t, 8, cfg.OutboxMaxAttempts)
	assert.Equal(t, int64(10), cfg.LowStockThreshold)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestParseOrigins(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{"*"}},
		{"*", []string{"*"}},
		{"https://a.example, https://b.example", []string{"https://a.example", "https://b.example"}},
		{" , ,", []string{"*"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseOrigins(c.in))
	}
}
