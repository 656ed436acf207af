package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmith/stackctl/internal/config"
	platformaws "github.com/opsmith/stackctl/internal/platform/aws"
)

type sweeperMock struct {
	instances  []platformaws.Instance
	findTags   map[string]string
	terminated []string
}

func (m *sweeperMock) FindByTags(_ context.Context, tags map[string]string) ([]platformaws.Instance, error) {
	m.findTags = tags
	return m.instances, nil
}

func (m *sweeperMock) Terminate(_ context.Context, ids []string) error {
	m.terminated = ids
	return nil
}

func swapCleanupFactories(t *testing.T, mock *sweeperMock) *[]string {
	t.Helper()
	swapFactories(t)

	origSweeper := newComputeSweeper
	origConfirm := confirmCleanup
	t.Cleanup(func() {
		newComputeSweeper = origSweeper
		confirmCleanup = origConfirm
	})

	newComputeSweeper = func(_ context.Context, _ *config.Config) (computeSweeper, error) {
		return mock, nil
	}

	phrases := &[]string{}
	confirmCleanup = func(_, phrase string) (bool, error) {
		*phrases = append(*phrases, phrase)
		return true, nil
	}
	return phrases
}

func TestCleanup_TerminatesTaggedInstances(t *testing.T) {
	mock := &sweeperMock{instances: []platformaws.Instance{
		{ID: "i-0123", Name: "staging-ci", State: "running"},
		{ID: "i-0456", Name: "staging-app", State: "stopped"},
	}}
	phrases := swapCleanupFactories(t, mock)

	err := Cleanup(context.Background(), CleanupFlags{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"stackctl:environment": "staging"}, mock.findTags)
	assert.Equal(t, []string{"cleanup staging"}, *phrases)
	assert.Equal(t, []string{"i-0123", "i-0456"}, mock.terminated)
}

func TestCleanup_DryRunTerminatesNothing(t *testing.T) {
	mock := &sweeperMock{instances: []platformaws.Instance{{ID: "i-0123", State: "running"}}}
	phrases := swapCleanupFactories(t, mock)

	err := Cleanup(context.Background(), CleanupFlags{DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, *phrases)
	assert.Nil(t, mock.terminated)
}

func TestCleanup_NoMatches(t *testing.T) {
	mock := &sweeperMock{}
	phrases := swapCleanupFactories(t, mock)

	err := Cleanup(context.Background(), CleanupFlags{})
	require.NoError(t, err)
	assert.Empty(t, *phrases)
	assert.Nil(t, mock.terminated)
}

func TestCleanup_DeclinedConfirmationCancels(t *testing.T) {
	mock := &sweeperMock{instances: []platformaws.Instance{{ID: "i-0123", State: "running"}}}
	swapCleanupFactories(t, mock)
	confirmCleanup = func(_, _ string) (bool, error) { return false, nil }

	err := Cleanup(context.Background(), CleanupFlags{})
	require.NoError(t, err)
	assert.Nil(t, mock.terminated)
}

func TestCleanup_ConfirmationUnavailableIsAnError(t *testing.T) {
	mock := &sweeperMock{instances: []platformaws.Instance{{ID: "i-0123", State: "running"}}}
	swapCleanupFactories(t, mock)
	confirmCleanup = func(_, _ string) (bool, error) { return false, errors.New("stdin is not a terminal") }

	err := Cleanup(context.Background(), CleanupFlags{})
	require.Error(t, err)
	assert.Nil(t, mock.terminated)
}

func TestCleanup_ForceSkipsConfirmation(t *testing.T) {
	mock := &sweeperMock{instances: []platformaws.Instance{{ID: "i-0123", State: "running"}}}
	phrases := swapCleanupFactories(t, mock)

	err := Cleanup(context.Background(), CleanupFlags{Force: true})
	require.NoError(t, err)
	assert.Empty(t, *phrases)
	assert.Equal(t, []string{"i-0123"}, mock.terminated)
}
