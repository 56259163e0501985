package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			env:  map[string]string{"DATABASE_URI": "postgres://localhost/scorekeeper"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, EnvLocal, cfg.Env)
				assert.Equal(t, defaultRunAddress, cfg.Server.RunAddress)
				assert.Equal(t, "http://"+defaultRunAddress, cfg.Server.PublicBaseURL)
				assert.Equal(t, defaultSessionTTL, cfg.Session.TTL)
				assert.True(t, cfg.IsLocal())
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"DATABASE_URI":    "postgres://db/scorekeeper",
				"APP_ENV":         EnvProd,
				"RUN_ADDRESS":     ":9000",
				"PUBLIC_BASE_URL": "https://scores.example.com",
				"SESSION_TTL":     "1h",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProd())
				assert.Equal(t, ":9000", cfg.Server.RunAddress)
				assert.Equal(t, "https://scores.example.com", cfg.Server.PublicBaseURL)
				assert.Equal(t, time.Hour, cfg.Session.TTL)
			},
		},
		{
			name:    "missing database uri",
			env:     map[string]string{"DATABASE_URI": ""},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(filepath.Join(t.TempDir(), ".env"))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
