package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmith/stackctl/internal/config"
	"github.com/opsmith/stackctl/internal/creds"
)

func TestDown(t *testing.T) {
	mock := swapFactories(t)

	var gotRequired []string
	origNew := newOrchestrator
	newOrchestrator = func(cfg *config.Config, overrides map[string]string, required []string) environmentRunner {
		gotRequired = required
		return origNew(cfg, overrides, required)
	}

	err := Down(context.Background(), DownFlags{DryRun: true, Force: true, DeleteStorage: true})
	require.NoError(t, err)

	require.NotNil(t, mock.downOpts)
	assert.True(t, mock.downOpts.DryRun)
	assert.True(t, mock.downOpts.Force)
	assert.True(t, mock.downOpts.DeleteStorage)

	// Destroy needs only the cloud pair, not SSH or admin material.
	assert.Equal(t, []string{creds.KeyAWSAccessKeyID, creds.KeyAWSSecretAccessKey}, gotRequired)
}

func TestDown_InvalidSecretOverride(t *testing.T) {
	swapFactories(t)

	err := Down(context.Background(), DownFlags{Secrets: []string{"=value"}})

	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
}
