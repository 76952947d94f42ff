package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GATE_MIN_CONFIDENCE", "0.8")
	t.Setenv("GATE_MIN_MEASUREMENTS", "7")
	t.Setenv("REMOTE_VARIANTS", " v3, ,v2 ")
	t.Setenv("OCR_PAGE_TIMEOUT", "10s")
	t.Setenv("OCR_ENABLED", "false")
	t.Setenv("BATCH_WORKERS", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, 0.8, cfg.Pipeline.GateMinConfidence)
	assert.Equal(t, 7, cfg.Pipeline.GateMinMeasurements)
	assert.Equal(t, []string{"v3", "v2"}, cfg.Remote.Variants)
	assert.Equal(t, 10*time.Second, cfg.OCR.PageTimeout)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, 2, cfg.Pipeline.BatchWorkers)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejects(t *testing.T) {
	cfg := LoadConfig()
	cfg.Pipeline.GateMinConfidence = 1.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = LoadConfig()
	cfg.Database.DSN = "x"
	cfg.Database.Driver = "mysql"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = LoadConfig()
	cfg.OCR.MaxPages = 0
	assert.Error(t, cfg.Validate())
}
