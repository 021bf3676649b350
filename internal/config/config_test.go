package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsStrideAtOrAboveTicket(t *testing.T) {
	cfg := Default()
	cfg.MaxStride = cfg.MaxTicket
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveTables(t *testing.T) {
	cfg := Default()
	cfg.NPROC = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadWithNoFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().NPROC, cfg.NPROC)
	assert.Equal(t, Default().Quantum, cfg.Quantum)
}
