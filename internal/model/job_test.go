package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestJobStatusCanTransition(t *testing.T) {
	cases := []struct {
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusPending, false},
		// 终态之后不允许任何迁移
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusFailed, JobStatusPending, false},
		{JobStatusFailed, JobStatusCompleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestJobSummaryScan(t *testing.T) {
	src := JobSummary{
		WhatsAppActive:   3,
		TelegramActive:   2,
		WhatsAppBusiness: 1,
		Inactive:         4,
		Errors:           1,
	}

	val, err := src.Value()
	require.NoError(t, err)

	var fromBytes JobSummary
	require.NoError(t, fromBytes.Scan(val))
	assert.Equal(t, src, fromBytes)

	// jsonb 驱动可能给 string
	var fromString JobSummary
	require.NoError(t, fromString.Scan(string(val.([]byte))))
	assert.Equal(t, src, fromString)

	var bad JobSummary
	assert.Error(t, bad.Scan(42))
}
