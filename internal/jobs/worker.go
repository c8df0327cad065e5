package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/assembler"
	"github.com/local/casebinder/internal/metrics"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrStopped   = errors.New("worker stopped")
)

type job struct {
	id  string
	req Request
	ctx context.Context
}

// Worker runs submitted jobs one at a time on a single goroutine.
type Worker struct {
	runner Runner
	status StatusStore
	queue  chan job

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	stopped bool

	stop chan struct{}
	done chan struct{}
}

func NewWorker(runner Runner, status StatusStore, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Worker{
		runner:  runner,
		status:  status,
		queue:   make(chan job, queueSize),
		cancels: make(map[string]context.CancelFunc),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (w *Worker) Start() { go w.loop() }

// Stop cancels every pending job and waits for the running one to reach a
// case boundary, or for ctx to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		for _, cancel := range w.cancels {
			cancel()
		}
		close(w.stop)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues req and returns its job id.
func (w *Worker) Submit(ctx context.Context, req Request) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return "", ErrStopped
	}

	id := uuid.NewString()
	jobCtx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	st := Status{Status: StateQueued, Message: "queued", Start: &now,
		Metadata: map[string]any{"input": req.Input, "output": req.Output}}
	if err := w.status.Set(ctx, id, st); err != nil {
		cancel()
		return "", fmt.Errorf("failed to record job: %w", err)
	}

	select {
	case w.queue <- job{id: id, req: req, ctx: jobCtx}:
	default:
		cancel()
		end := time.Now()
		st.Status, st.Message, st.End = StateFailed, ErrQueueFull.Error(), &end
		_ = w.status.Set(ctx, id, st)
		return "", ErrQueueFull
	}
	w.cancels[id] = cancel
	metrics.JobQueued()
	log.Info().Str("job_id", id).Str("input", req.Input).Msg("job queued")
	return id, nil
}

// Cancel requests cancellation. A running job stops at the next case
// boundary. It returns false when the job is unknown or already finished.
func (w *Worker) Cancel(ctx context.Context, id string) (bool, error) {
	w.mu.Lock()
	cancel, ok := w.cancels[id]
	w.mu.Unlock()
	if !ok {
		return false, nil
	}
	cancel()
	log.Info().Str("job_id", id).Msg("job cancellation requested")
	return true, nil
}

// Status returns the recorded status of a job.
func (w *Worker) Status(ctx context.Context, id string) (Status, bool, error) {
	return w.status.Get(ctx, id)
}

func (w *Worker) loop() {
	defer close(w.done)
	log.Info().Msg("job worker started")
	for {
		select {
		case <-w.stop:
			w.drain()
			log.Info().Msg("job worker stopped")
			return
		case j := <-w.queue:
			w.run(j)
		}
	}
}

// drain marks jobs still queued at shutdown as cancelled.
func (w *Worker) drain() {
	for {
		select {
		case j := <-w.queue:
			w.finish(j, Status{Status: StateCancelled, Message: "cancelled: worker stopped"})
		default:
			return
		}
	}
}

func (w *Worker) run(j job) {
	ctx := context.Background()
	st, _, _ := w.status.Get(ctx, j.id)
	if j.ctx.Err() != nil {
		st.Status, st.Message = StateCancelled, "cancelled before start"
		w.finish(j, st)
		return
	}

	st.Status, st.Message = StateProcessing, "scanning input"
	_ = w.status.Set(ctx, j.id, st)
	log.Info().Str("job_id", j.id).Msg("job started")

	progress := func(p assembler.Progress) {
		st.Progress = p.Done * 90 / max(p.Total, 1)
		st.Message = fmt.Sprintf("processed %d/%d cases", p.Done, p.Total)
		st.Metadata = withMeta(st.Metadata, map[string]any{"cases_done": p.Done, "cases_total": p.Total, "last_case": p.CaseID})
		_ = w.status.Set(ctx, j.id, st)
	}

	res, err := w.runner.Run(j.ctx, j.req, progress)
	st.Metadata = withMeta(st.Metadata, map[string]any{
		"success_count": res.Report.SuccessCount,
		"pages":         res.Report.Pages,
		"skipped":       res.Report.Skipped,
		"cases_total":   res.Cases,
	})
	switch {
	case err == nil:
		st.Status, st.Progress, st.Message = StateSuccess, 100, "completed"
		st.Metadata["result_path"] = res.Output
	case errors.Is(err, context.Canceled):
		st.Status, st.Message = StateCancelled, "cancelled"
	default:
		st.Status, st.Message = StateFailed, err.Error()
	}
	w.finish(j, st)
}

func (w *Worker) finish(j job, st Status) {
	end := time.Now()
	st.End = &end
	if err := w.status.Set(context.Background(), j.id, st); err != nil {
		log.Error().Err(err).Str("job_id", j.id).Msg("failed to record job status")
	}

	w.mu.Lock()
	if cancel, ok := w.cancels[j.id]; ok {
		cancel()
		delete(w.cancels, j.id)
	}
	w.mu.Unlock()
	metrics.JobFinished()
	log.Info().Str("job_id", j.id).Str("status", st.Status).Str("message", st.Message).Msg("job finished")
}

func withMeta(dst map[string]any, kv map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(kv))
	}
	for k, v := range kv {
		dst[k] = v
	}
	return dst
}
