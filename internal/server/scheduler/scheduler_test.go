package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCleaner struct {
	reset, refresh, attempts atomic.Int32
	fail                     bool
}

func (c *countingCleaner) PurgeResetTokens(context.Context) (int64, error) {
	c.reset.Add(1)
	return 1, nil
}

func (c *countingCleaner) PurgeRefreshTokens(context.Context) (int64, error) {
	c.refresh.Add(1)
	if c.fail {
		return 0, errors.New("db down")
	}
	return 0, nil
}

func (c *countingCleaner) PruneAttempts(context.Context) (int64, error) {
	c.attempts.Add(1)
	return 3, nil
}

func TestRunNow(t *testing.T) {
	c := &countingCleaner{fail: true}
	s := New(c, time.Hour, logging.Nop{})

	s.RunNow()

	assert.Equal(t, int32(1), c.reset.Load())
	assert.Equal(t, int32(1), c.refresh.Load())
	assert.Equal(t, int32(1), c.attempts.Load())
}

func TestStart_RunsJobsImmediately(t *testing.T) {
	c := &countingCleaner{}
	s := New(c, time.Hour, logging.Nop{})

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return c.reset.Load() >= 1 && c.refresh.Load() >= 1 && c.attempts.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, s.scheduler.Jobs(), 3)
}
