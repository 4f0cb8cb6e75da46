package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"REBALANCE_DATA_DIR", "DATA_DIR", "INPUT_DIR", "LOG_LEVEL", "LOG_PRETTY",
		"NCNT", "MXRT", "INFLATION", "SP_HIGH", "SP_CLOSE", "SP_TODAY",
		"HTTP_PORT", "HTTP_DEV_MODE", "BACKUP_BUCKET", "BACKUP_PREFIX",
	}
	saved := make(map[string]string, len(keys))
	for _, k := range keys {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	os.Setenv("REBALANCE_DATA_DIR", tmp)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	absTmp, err := filepath.Abs(tmp)
	require.NoError(t, err)
	assert.Equal(t, absTmp, cfg.DataDir)
	assert.Equal(t, filepath.Join(absTmp, "inputs"), cfg.InputDir)
	assert.Equal(t, defaultNCNT, cfg.NCNT)
	assert.Equal(t, defaultMXRT, cfg.MXRT)
	assert.Equal(t, defaultInflation, cfg.Inflation)
	assert.Equal(t, defaultHTTPPort, cfg.HTTPPort)
	assert.Nil(t, cfg.SPHigh)
	assert.Nil(t, cfg.SPClose)
	assert.Nil(t, cfg.SPToday)
}

func TestLoad_DataDirPrecedence(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	os.Setenv("DATA_DIR", filepath.Join(tmp, "old"))
	os.Setenv("REBALANCE_DATA_DIR", filepath.Join(tmp, "new"))

	cfg, err := Load()
	require.NoError(t, err)

	absNew, err := filepath.Abs(filepath.Join(tmp, "new"))
	require.NoError(t, err)
	assert.Equal(t, absNew, cfg.DataDir)
}

func TestLoad_DataDirResolvedToAbsoluteAndCreated(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	target := filepath.Join(tmp, "nested", "data")
	os.Setenv("REBALANCE_DATA_DIR", target)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.DataDir))

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_MarketAnchorsOptional(t *testing.T) {
	clearEnv(t)
	os.Setenv("REBALANCE_DATA_DIR", t.TempDir())
	os.Setenv("SP_TODAY", "4500.25")
	os.Setenv("SP_CLOSE", "4490.10")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.SPToday)
	require.NotNil(t, cfg.SPClose)
	assert.Equal(t, 4500.25, *cfg.SPToday)
	assert.Equal(t, 4490.10, *cfg.SPClose)
	assert.Nil(t, cfg.SPHigh)
}

func TestLoad_TuningParamOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("REBALANCE_DATA_DIR", t.TempDir())
	os.Setenv("NCNT", "500")
	os.Setenv("MXRT", "5")
	os.Setenv("INFLATION", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.NCNT)
	assert.Equal(t, 5, cfg.MXRT)
	assert.Equal(t, 2.5, cfg.Inflation)
}
