package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/assignment-tracker/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter_DefaultPrefix(t *testing.T) {
	limiter := NewLimiter(nil, "", 5, time.Minute)

	require.NotNil(t, limiter)
	assert.Equal(t, defaultKeyPrefix, limiter.keyPrefix)
	assert.Equal(t, 5, limiter.limit)
	assert.Equal(t, time.Minute, limiter.window)
}

func TestOpen_DisabledWithoutAddr(t *testing.T) {
	limiter, client, err := Open(context.Background(), config.RateLimitConfig{})

	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.Nil(t, client)
}
