package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/MimeLyc/batch-sub-translator/internal/backend"
	"github.com/MimeLyc/batch-sub-translator/internal/engine"
	"github.com/MimeLyc/batch-sub-translator/internal/job"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// Local models keep the GPU busy; more than two concurrent files only
// adds contention.
const (
	minParallelism = 1
	maxParallelism = 2

	drainTimeout = 30 * time.Second
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// FileJob tracks one subtitle file through the queue.
type FileJob struct {
	ID         string
	Path       string
	Status     Status
	Error      string
	OutputPath string
	Stats      job.Stats
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Runner translates one file; the scheduler stays ignorant of how.
type Runner func(ctx context.Context, path string) (*engine.Result, error)

// Scheduler runs file jobs through a bounded worker pool with
// per-path deduplication and a warm-up call before the first job.
type Scheduler struct {
	workerCount int
	sem         *semaphore.Weighted
	run         Runner
	warmer      backend.Warmer

	mu         sync.RWMutex
	jobs       map[string]*FileJob
	dedupe     map[string]string
	idCounter  uint64
	started    bool
	pendingIDs chan string
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	warmupOnce sync.Once

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

func New(parallelism int, run Runner, warmer backend.Warmer) *Scheduler {
	workers := clampParallelism(parallelism)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		workerCount: workers,
		sem:         semaphore.NewWeighted(int64(workers)),
		run:         run,
		warmer:      warmer,
		jobs:        make(map[string]*FileJob),
		dedupe:      make(map[string]string),
		pendingIDs:  make(chan string, 1024),
		stopCh:      make(chan struct{}),
		baseCtx:     ctx,
		baseCancel:  cancel,
	}
}

func clampParallelism(n int) int {
	if n < minParallelism {
		return minParallelism
	}
	if n > maxParallelism {
		return maxParallelism
	}
	return n
}

// Enqueue adds a file unless the same path is already pending or
// running. The second return reports whether a new job was created.
func (s *Scheduler) Enqueue(path string) (*FileJob, bool) {
	now := time.Now()

	s.mu.Lock()
	if id, ok := s.dedupe[path]; ok {
		if existing, exists := s.jobs[id]; exists {
			snapshot := cloneJob(existing)
			s.mu.Unlock()
			return snapshot, false
		}
		delete(s.dedupe, path)
	}

	id := fmt.Sprintf("job-%d", atomic.AddUint64(&s.idCounter, 1))
	fj := &FileJob{
		ID:        id,
		Path:      path,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = fj
	s.dedupe[path] = id
	started := s.started
	snapshot := cloneJob(fj)
	s.mu.Unlock()

	if started {
		s.enqueuePendingID(id)
	}
	return snapshot, true
}

func (s *Scheduler) Get(id string) (*FileJob, bool) {
	s.mu.RLock()
	fj, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(fj), true
}

func (s *Scheduler) List() []*FileJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := make([]*FileJob, 0, len(s.jobs))
	for _, fj := range s.jobs {
		ret = append(ret, cloneJob(fj))
	}
	return ret
}

// Start launches the workers and feeds them everything already queued.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true

	pending := make([]string, 0, len(s.jobs))
	for id, fj := range s.jobs {
		if fj.Status == StatusPending {
			pending = append(pending, id)
		}
	}
	s.mu.Unlock()

	for _, id := range pending {
		s.enqueuePendingID(id)
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// Stop lets running jobs drain for up to 30 seconds, then cancels them.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(drainTimeout):
			log.Warn("drain timed out after %s, cancelling running jobs", drainTimeout)
			s.baseCancel()
			<-done
		}
		s.baseCancel()
	})
}

// Wait blocks until every queued job reached a terminal state.
func (s *Scheduler) Wait() {
	for {
		select {
		case <-s.stopCh:
			return
		case <-time.After(50 * time.Millisecond):
		}
		s.mu.RLock()
		active := 0
		for _, fj := range s.jobs {
			if fj.Status == StatusPending || fj.Status == StatusRunning {
				active++
			}
		}
		s.mu.RUnlock()
		if active == 0 {
			return
		}
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case id := <-s.pendingIDs:
			fj, ok := s.markRunning(id)
			if !ok {
				continue
			}
			s.execute(fj)
		}
	}
}

func (s *Scheduler) execute(fj *FileJob) {
	if err := s.sem.Acquire(s.baseCtx, 1); err != nil {
		s.markFailed(fj.ID, err)
		return
	}
	defer s.sem.Release(1)

	s.warmupOnce.Do(func() {
		if s.warmer == nil {
			return
		}
		log.Info("warming up backend before first file")
		if err := s.warmer.Warmup(s.baseCtx); err != nil {
			log.Warn("warmup failed: %v", err)
		}
	})

	result, err := s.run(s.baseCtx, fj.Path)
	if err != nil {
		s.markFailed(fj.ID, err)
		return
	}
	s.markDone(fj.ID, result)
}

func (s *Scheduler) enqueuePendingID(id string) {
	select {
	case s.pendingIDs <- id:
	default:
		go func() { s.pendingIDs <- id }()
	}
}

func (s *Scheduler) markRunning(id string) (*FileJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fj, ok := s.jobs[id]
	if !ok || fj.Status != StatusPending {
		return nil, false
	}
	fj.Status = StatusRunning
	fj.UpdatedAt = time.Now()
	return cloneJob(fj), true
}

func (s *Scheduler) markDone(id string, result *engine.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fj, ok := s.jobs[id]
	if !ok {
		return
	}
	fj.Status = StatusSuccess
	if result != nil {
		fj.OutputPath = result.OutputPath
		fj.Stats = result.Stats
		if result.Skipped {
			fj.Status = StatusSkipped
		}
	}
	fj.Error = ""
	fj.UpdatedAt = time.Now()
	s.releaseDedupeLocked(fj)
}

func (s *Scheduler) markFailed(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fj, ok := s.jobs[id]
	if !ok {
		return
	}
	fj.Status = StatusFailed
	if err != nil {
		fj.Error = err.Error()
	}
	fj.UpdatedAt = time.Now()
	s.releaseDedupeLocked(fj)
}

func (s *Scheduler) releaseDedupeLocked(fj *FileJob) {
	if fj == nil || fj.Path == "" {
		return
	}
	if id, ok := s.dedupe[fj.Path]; ok && id == fj.ID {
		delete(s.dedupe, fj.Path)
	}
}

// Summary aggregates terminal job counts for the run report.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Stats     job.Stats
}

func (s *Scheduler) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for _, fj := range s.jobs {
		sum.Total++
		switch fj.Status {
		case StatusSuccess:
			sum.Succeeded++
			addStats(&sum.Stats, fj.Stats)
		case StatusSkipped:
			sum.Skipped++
		case StatusFailed:
			sum.Failed++
		}
	}
	return sum
}

func addStats(dst *job.Stats, src job.Stats) {
	dst.TotalLines += src.TotalLines
	dst.CacheHits += src.CacheHits
	dst.CacheMisses += src.CacheMisses
	dst.ValidationRejections += src.ValidationRejections
	dst.APIFailures += src.APIFailures
	dst.SuccessfulTranslations += src.SuccessfulTranslations
	dst.SelfConsistencyTriggered += src.SelfConsistencyTriggered
	dst.RetryCount += src.RetryCount
	dst.ClassifiedDialogue += src.ClassifiedDialogue
	dst.ClassifiedSFX += src.ClassifiedSFX
	dst.ClassifiedMusic += src.ClassifiedMusic
	dst.ClassifiedTag += src.ClassifiedTag
	dst.ClassifiedUntranslatable += src.ClassifiedUntranslatable
}

func cloneJob(fj *FileJob) *FileJob {
	if fj == nil {
		return nil
	}
	tmp := *fj
	return &tmp
}
