package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insight/pkg/config"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insight.log")
	logger, err := New(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("refresh finished")
	logger.Debug("dropped below level")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "refresh finished")
	assert.NotContains(t, string(raw), "dropped below level")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestRotatorCarriesLimits(t *testing.T) {
	r := Rotator(config.LogConfig{File: "x.log", MaxSizeMB: 5, MaxBackups: 2, MaxAgeDays: 3, Compress: true})
	assert.Equal(t, "x.log", r.Filename)
	assert.Equal(t, 5, r.MaxSize)
	assert.Equal(t, 2, r.MaxBackups)
	assert.True(t, r.Compress)
}
