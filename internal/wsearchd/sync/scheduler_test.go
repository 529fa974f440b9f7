package sync_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	werrors "github.com/wrale/wrale-search/internal/wsearchd/errors"
	wsync "github.com/wrale/wrale-search/internal/wsearchd/sync"
	"github.com/wrale/wrale-search/internal/wsearchd/testutil/mocks"
)

func TestScheduler_RunOnStartAndTicks(t *testing.T) {
	runner := new(mocks.Runner)
	runs := make(chan struct{}, 10)
	runner.On("RunNow", mock.Anything).Run(func(mock.Arguments) {
		runs <- struct{}{}
	}).Return(&wsync.Result{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s := wsync.NewScheduler(runner, 20*time.Millisecond, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-runs:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected run %d", i+1)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_FailuresDoNotStopLoop(t *testing.T) {
	runner := new(mocks.Runner)
	runs := make(chan struct{}, 10)
	runner.On("RunNow", mock.Anything).Run(func(mock.Arguments) {
		runs <- struct{}{}
	}).Return(nil, werrors.ErrSyncInProgress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := wsync.NewScheduler(runner, 10*time.Millisecond, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go s.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-runs:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected run %d", i+1)
		}
	}
}
