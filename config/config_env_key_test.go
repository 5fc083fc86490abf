package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master":  map[string]any{"userName": "lavra"},
		},
		"secretKey": map[string]any{"access": "", "refresh": ""},
		"auth":      map[string]any{"refreshTokenTTL": "168h", "maxActiveSessions": 0},
		"http": map[string]any{
			"rateLimit": map[string]any{"requests": 60},
		},
		"worker": map[string]any{"cleanupCron": "@hourly"},
	}

	tests := map[string]string{
		"POSTGRES_SSLMODE":         "postgres.sslMode",
		"POSTGRES_MASTER_USERNAME": "postgres.master.userName",
		"SECRETKEY_ACCESS":         "secretKey.access",
		"SECRETKEY_REFRESH":        "secretKey.refresh",
		"AUTH_REFRESHTOKENTTL":     "auth.refreshTokenTTL",
		"AUTH_MAXACTIVESESSIONS":   "auth.maxActiveSessions",
		"HTTP_RATELIMIT_REQUESTS":  "http.rateLimit.requests",
		"WORKER_CLEANUPCRON":       "worker.cleanupCron",
		"STORAGE_DRIVER":           "storage.driver",
	}

	for envKey, want := range tests {
		t.Run(envKey, func(t *testing.T) {
			assert.Equal(t, want, canonicalizeEnvKey(envKey, existing))
		})
	}
}
