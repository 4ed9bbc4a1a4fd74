package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestStart_RunsImmediately(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 1)

	s := New(time.Hour, time.Second, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("job context has no deadline")
		}
		runs.Add(1)
		select {
		case done <- struct{}{}:
		default:
		}
		return errors.New("failures are logged, not fatal")
	}, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
	if runs.Load() != 1 {
		t.Errorf("job ran %d times, want 1", runs.Load())
	}
}

func TestStart_InvalidInterval(t *testing.T) {
	s := New(0, 0, func(context.Context) error { return nil }, nil)
	if err := s.Start(); err == nil {
		t.Error("Start() accepted a zero interval")
	}
}
