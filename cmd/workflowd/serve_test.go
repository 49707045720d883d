package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/workflowd/internal/config"
	"github.com/fyrsmithlabs/workflowd/internal/logging"
)

func TestBuildRetriever_NoSourcesConfigured(t *testing.T) {
	logger, _ := logging.NewTestLogger(zapcore.InfoLevel)
	r, err := buildRetriever(config.NewDefaultConfig(), logger)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestBuildRetriever_VectorDirEnablesVectorSource(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Retrieval.VectorDir = t.TempDir()
	logger, _ := logging.NewTestLogger(zapcore.InfoLevel)

	r, err := buildRetriever(cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, r)
}
