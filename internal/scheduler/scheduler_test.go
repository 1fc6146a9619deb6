package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidCronExpression(t *testing.T) {
	_, err := New("not a cron expr", func(context.Context) {}, nil)
	assert.Error(t, err)
}

func TestEmptyExpressionDisablesScheduling(t *testing.T) {
	s, err := New("", func(context.Context) {}, nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() { s.Start(); s.Stop() })
}

func TestTickSkipsOverlappingRun(t *testing.T) {
	var calls int32
	s, err := New("@every 1h", func(context.Context) { atomic.AddInt32(&calls, 1) }, nil)
	require.NoError(t, err)

	s.running.Store(true)
	s.tick()
	assert.Equal(t, int32(0), calls, "tick must skip while a run is already in flight")

	s.running.Store(false)
	s.tick()
	assert.Equal(t, int32(1), calls)
}
