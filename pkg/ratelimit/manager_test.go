package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryAfter_DeltaSeconds(t *testing.T) {
	d, err := ParseRetryAfter("120")
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, d)
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	future := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC1123)
	d, err := ParseRetryAfter(future)
	require.NoError(t, err)
	assert.Greater(t, d, time.Hour)
	assert.LessOrEqual(t, d, 2*time.Hour+time.Minute)
}

func TestParseRetryAfter_Invalid(t *testing.T) {
	_, err := ParseRetryAfter("not-a-retry-after-value")
	assert.Error(t, err)
}
