package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvRequiresStage(t *testing.T) {
	t.Setenv("DEPLOY_STAGE", "")
	_, err := FromEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DEPLOY_STAGE")
}

func TestFromEnvRejectsUnknownStage(t *testing.T) {
	t.Setenv("DEPLOY_STAGE", "staging")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestDevelopmentDefaults(t *testing.T) {
	t.Setenv("DEPLOY_STAGE", "development")
	cfg, err := FromEnv()
	require.NoError(t, err)

	require.Equal(t, Development, cfg.Stage)
	require.Equal(t, "./reservation_polling_data.txt", cfg.LedgerPath)
	require.Equal(t, time.Duration(0), cfg.BrowserTimeout)
	require.Empty(t, cfg.ChromePath)
	require.False(t, cfg.SessionCacheEnabled())
}

func TestProductionDefaults(t *testing.T) {
	t.Setenv("DEPLOY_STAGE", "production")
	cfg, err := FromEnv()
	require.NoError(t, err)

	require.Equal(t, Production, cfg.Stage)
	require.Equal(t, "/var/lib/ikon-notifier/reservation_polling_data.txt", cfg.LedgerPath)
	require.Equal(t, 90*time.Second, cfg.BrowserTimeout)
	require.Equal(t, "chromium-browser", cfg.ChromePath)
}

func TestProductionForbidsUnboundedBrowserWait(t *testing.T) {
	t.Setenv("DEPLOY_STAGE", "production")
	t.Setenv("BROWSER_TIMEOUT_SECONDS", "0")
	_, err := FromEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unbounded")
}

func TestSessionKeysMustComeInPairs(t *testing.T) {
	t.Setenv("DEPLOY_STAGE", "development")
	t.Setenv("SESSION_HASH_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	_, err := FromEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SESSION_BLOCK_KEY")
}

func TestSessionKeysDecoded(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	t.Setenv("DEPLOY_STAGE", "development")
	t.Setenv("SESSION_HASH_KEY", key)
	t.Setenv("SESSION_BLOCK_KEY", key)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.True(t, cfg.SessionCacheEnabled())
	require.Len(t, cfg.SessionHashKey, 32)
	require.Len(t, cfg.SessionBlockKey, 32)
}

func TestRequireAccount(t *testing.T) {
	t.Setenv("DEPLOY_STAGE", "development")
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Error(t, cfg.RequireAccount())

	t.Setenv("IKON_USERNAME", "skier@example.com")
	t.Setenv("IKON_PASSWORD", "hunter2")
	cfg, err = FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.RequireAccount())
}
