package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDrainsInOrderOnCancel(t *testing.T) {
	var order []string
	started := make(chan struct{})
	r := New(Options{
		Drainers: []Drainer{
			DrainerFunc(func() error { order = append(order, "session"); return nil }),
			nil,
			DrainerFunc(func() error { order = append(order, "spawner"); return errors.New("hook failed") }),
		},
		OnStart: func(context.Context) error { close(started); return nil },
		OnStop:  func() { order = append(order, "stop") },
	})
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- r.Run(ctx) }()

	<-started
	require.Eventually(t, func() bool { return r.Phase() == PhaseRunning }, time.Second, time.Millisecond)
	cancel()
	err := <-result
	assert.EqualError(t, err, "hook failed")
	assert.Equal(t, []string{"session", "spawner", "stop"}, order)
	assert.Equal(t, PhaseStopped, r.Phase())
	assert.EqualError(t, r.Stop(), "hook failed", "stop is idempotent")
}

func TestRunTwiceFails(t *testing.T) {
	r := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	assert.Error(t, r.Run(ctx))
}

func TestStartFailureDrains(t *testing.T) {
	drained := false
	r := New(Options{
		Drainers: []Drainer{DrainerFunc(func() error { drained = true; return nil })},
		OnStart:  func(context.Context) error { return errors.New("no mic") },
	})
	err := r.Run(context.Background())
	assert.EqualError(t, err, "no mic")
	assert.True(t, drained)
	assert.Equal(t, PhaseStopped, r.Phase())
}

func TestDrainTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := New(Options{
		Timeout:  10 * time.Millisecond,
		Drainers: []Drainer{DrainerFunc(func() error { <-block; return nil })},
	})
	assert.EqualError(t, r.Stop(), "runner: drain timeout")
}

func TestBannerIsWritten(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, false)
	assert.Contains(t, buf.String(), "Version: "+Version)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "draining", PhaseDraining.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
