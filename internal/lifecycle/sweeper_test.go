package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingAnonymizer struct {
	calls  atomic.Int32
	result SweepResult
	err    error
}

func (c *countingAnonymizer) AnonymizeExpired(context.Context) (SweepResult, error) {
	c.calls.Add(1)
	return c.result, c.err
}

func TestSweeper_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	target := &countingAnonymizer{result: SweepResult{Scanned: 1, Anonymized: 1}}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewSweeper(target, 5*time.Millisecond).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return target.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweeper_DisabledReturnsImmediately(t *testing.T) {
	target := &countingAnonymizer{}
	NewSweeper(target, 0).Run(context.Background())
	assert.Zero(t, target.calls.Load())
}

func TestSweeper_RunOnceReportsErrors(t *testing.T) {
	boom := errors.New("db down")
	target := &countingAnonymizer{result: SweepResult{Scanned: 2}, err: boom}

	result, err := NewSweeper(target, time.Minute).RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, result.Scanned)
}
