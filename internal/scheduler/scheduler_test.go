package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/batch-sub-translator/internal/engine"
	"github.com/MimeLyc/batch-sub-translator/internal/job"
)

type countingWarmer struct {
	calls atomic.Int32
}

func (w *countingWarmer) Warmup(context.Context) error {
	w.calls.Add(1)
	return nil
}

func TestScheduler_RunsAllJobs(t *testing.T) {
	t.Parallel()

	var ran atomic.Int32
	s := New(2, func(ctx context.Context, path string) (*engine.Result, error) {
		ran.Add(1)
		return &engine.Result{OutputPath: path + ".pt-BR", Stats: job.Stats{TotalLines: 3}}, nil
	}, nil)

	for _, p := range []string{"/tv/a.srt", "/tv/b.srt", "/tv/c.srt"} {
		_, created := s.Enqueue(p)
		assert.True(t, created)
	}
	s.Start()
	s.Wait()
	defer s.Stop()

	assert.Equal(t, int32(3), ran.Load())

	sum := s.Summary()
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 3, sum.Succeeded)
	assert.Equal(t, 9, sum.Stats.TotalLines)
}

func TestScheduler_DeduplicatesByPath(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	s := New(1, func(ctx context.Context, path string) (*engine.Result, error) {
		<-block
		return &engine.Result{OutputPath: path}, nil
	}, nil)

	first, created := s.Enqueue("/tv/a.srt")
	require.True(t, created)
	second, created := s.Enqueue("/tv/a.srt")
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	s.Start()
	close(block)
	s.Wait()
	s.Stop()

	// terminal jobs release the dedupe slot
	_, created = s.Enqueue("/tv/a.srt")
	assert.True(t, created)
}

func TestScheduler_FailuresAreRecorded(t *testing.T) {
	t.Parallel()

	s := New(1, func(ctx context.Context, path string) (*engine.Result, error) {
		if path == "/tv/bad.srt" {
			return nil, errors.New("parse error")
		}
		return &engine.Result{OutputPath: path}, nil
	}, nil)

	bad, _ := s.Enqueue("/tv/bad.srt")
	s.Enqueue("/tv/good.srt")
	s.Start()
	s.Wait()
	defer s.Stop()

	got, ok := s.Get(bad.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "parse error", got.Error)

	sum := s.Summary()
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Succeeded)
}

func TestScheduler_SkippedFilesAreCounted(t *testing.T) {
	t.Parallel()

	s := New(1, func(ctx context.Context, path string) (*engine.Result, error) {
		return &engine.Result{OutputPath: path, Skipped: true}, nil
	}, nil)

	s.Enqueue("/tv/done.srt")
	s.Start()
	s.Wait()
	defer s.Stop()

	assert.Equal(t, 1, s.Summary().Skipped)
}

func TestScheduler_WarmupRunsOnce(t *testing.T) {
	t.Parallel()

	w := &countingWarmer{}
	s := New(2, func(ctx context.Context, path string) (*engine.Result, error) {
		return &engine.Result{OutputPath: path}, nil
	}, w)

	for _, p := range []string{"/tv/a.srt", "/tv/b.srt", "/tv/c.srt", "/tv/d.srt"} {
		s.Enqueue(p)
	}
	s.Start()
	s.Wait()
	defer s.Stop()

	assert.Equal(t, int32(1), w.calls.Load())
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	s := New(1, func(ctx context.Context, path string) (*engine.Result, error) {
		return &engine.Result{OutputPath: path}, nil
	}, nil)
	s.Start()
	s.Stop()
	s.Stop()
}

func TestClampParallelism(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, clampParallelism(0))
	assert.Equal(t, 1, clampParallelism(-3))
	assert.Equal(t, 1, clampParallelism(1))
	assert.Equal(t, 2, clampParallelism(2))
	assert.Equal(t, 2, clampParallelism(8))
}

func TestScheduler_EnqueueAfterStart(t *testing.T) {
	t.Parallel()

	var ran atomic.Int32
	s := New(1, func(ctx context.Context, path string) (*engine.Result, error) {
		ran.Add(1)
		return &engine.Result{OutputPath: path}, nil
	}, nil)

	s.Start()
	s.Enqueue("/tv/late.srt")

	deadline := time.After(2 * time.Second)
	for ran.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("late job never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
	s.Wait()
	s.Stop()
}
