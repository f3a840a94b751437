package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clip-analyzer/internal/domain"
	"clip-analyzer/internal/jobs"
)

// DefaultConcurrency bounds per-chunk parallelism when the caller does not
// override it.
const DefaultConcurrency = 3

// Dispatcher runs one operation for one clip and returns its payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, clipID string, kind domain.OperationKind, options map[string]any) (map[string]any, error)
}

// Request describes one submitted batch.
type Request struct {
	ClipIDs     []string
	Operation   domain.OperationKind
	Options     map[string]any
	Concurrency int

	// RetryOnFailure is accepted at submission and carried through, but no
	// retry policy is currently applied to the dispatch path.
	RetryOnFailure bool

	// OnProgress, when set, is invoked synchronously after every per-clip
	// outcome with the current job record snapshot. Callers must not
	// mutate the snapshot's Errors slice.
	OnProgress func(domain.JobRecord)

	// OnDone, when set, receives the archived batch result after the job
	// record has left the registry.
	OnDone func(domain.BatchResult)
}

// Engine coordinates concurrent batch execution: it owns the job registry
// and history, and drives one chunked scheduler goroutine per job. Jobs do
// not share a concurrency budget; each runs with its own limit.
type Engine struct {
	mu         sync.Mutex
	dispatcher Dispatcher
	registry   *jobs.Registry
	history    *jobs.History
}

// NewEngine creates an engine with an empty registry and history.
func NewEngine(dispatcher Dispatcher) *Engine {
	return &Engine{
		dispatcher: dispatcher,
		registry:   jobs.NewRegistry(),
		history:    jobs.NewHistory(),
	}
}

// SetDispatcher swaps the dispatcher used by subsequently submitted jobs.
// In-flight jobs keep the dispatcher they started with.
func (e *Engine) SetDispatcher(dispatcher Dispatcher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatcher = dispatcher
}

// Submit registers a new batch and starts its scheduler in the background.
// The job id is returned before any clip is processed; callers poll
// Progress or subscribe via Request.OnProgress. The operation kind is not
// validated here; unknown kinds fail per clip at dispatch time.
func (e *Engine) Submit(req Request) (string, error) {
	if len(req.ClipIDs) == 0 {
		return "", fmt.Errorf("batch contains no clips")
	}

	jobID := jobs.NewJobID()
	e.registry.Create(jobID, len(req.ClipIDs))

	e.mu.Lock()
	dispatcher := e.dispatcher
	e.mu.Unlock()

	go e.run(jobID, dispatcher, req)
	return jobID, nil
}

// Progress returns a snapshot of a live job, or false when the id is
// unknown or the job has already been archived.
func (e *Engine) Progress(jobID string) (domain.JobRecord, bool) {
	return e.registry.Snapshot(jobID)
}

// Cancel requests cooperative cancellation of a running job. Returns true
// only when the job was running; the scheduler observes the flag at the
// next chunk boundary, so one more chunk's worth of work may still finish.
func (e *Engine) Cancel(jobID string) bool {
	return e.registry.Cancel(jobID)
}

// History returns the most recent archived batches, oldest-first.
func (e *Engine) History(limit int) []domain.BatchResult {
	return e.history.Recent(limit)
}

// ClearHistory empties the archive. Active jobs are unaffected.
func (e *Engine) ClearHistory() {
	e.history.Clear()
}

// Statistics recomputes aggregate metrics from history plus active jobs on
// every call.
func (e *Engine) Statistics() domain.Statistics {
	totals := e.history.Totals()

	stats := domain.Statistics{
		TotalJobs:           totals.Entries + e.registry.ActiveCount(),
		RunningJobs:         e.registry.RunningCount(),
		CompletedJobs:       totals.Completed,
		FailedJobs:          totals.Failed,
		TotalClipsProcessed: totals.ClipsProcessed,
	}
	if totals.Entries > 0 {
		stats.AverageExecutionTimeMs = float64(totals.ExecutionTimeMs) / float64(totals.Entries)
	}
	if stats.TotalJobs > 0 {
		stats.SuccessRate = float64(stats.CompletedJobs) / float64(stats.TotalJobs) * 100
	}
	return stats
}

// chunkOutcome separates per-clip results from faults that escaped the
// per-clip boundary.
type chunkOutcome struct {
	result domain.ClipResult
	fault  error
}

// run drives one job's scheduler loop: chunks processed strictly in order,
// clips within a chunk dispatched concurrently. On exit the record leaves
// the registry and the batch result enters history in the same step.
func (e *Engine) run(jobID string, dispatcher Dispatcher, req Request) {
	startedAt := time.Now()
	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var results []domain.ClipResult
	schedulerFault := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				schedulerFault = true
				e.registry.AppendError(jobID, fmt.Sprintf("scheduler fault: %v", r))
			}
		}()

		e.registry.MarkRunning(jobID)
		for start := 0; start < len(req.ClipIDs); start += concurrency {
			if status, ok := e.registry.Status(jobID); !ok || status == domain.BatchStatusCancelled {
				return
			}
			end := min(start+concurrency, len(req.ClipIDs))
			results = append(results, e.runChunk(jobID, dispatcher, req, req.ClipIDs[start:end])...)
		}
	}()

	status := domain.BatchStatusCompleted
	if current, ok := e.registry.Status(jobID); ok && current == domain.BatchStatusCancelled {
		status = domain.BatchStatusCancelled
	}
	if schedulerFault {
		status = domain.BatchStatusFailed
	}

	record, ok := e.registry.Finalize(jobID, status)
	if !ok {
		return
	}

	result := domain.BatchResult{
		JobID:           jobID,
		Status:          status,
		Results:         results,
		Errors:          record.Errors,
		TotalProcessed:  record.Completed + record.Failed,
		SuccessCount:    record.Completed,
		FailureCount:    record.Failed,
		ExecutionTimeMs: time.Since(startedAt).Milliseconds(),
		Summary: domain.BatchSummary{
			Operation:  req.Operation,
			ClipIDs:    req.ClipIDs,
			StartedAt:  record.StartTime,
			FinishedAt: time.Now(),
		},
	}
	e.history.Archive(result)

	if req.OnDone != nil {
		req.OnDone(result)
	}
}

// runChunk dispatches every clip in the chunk concurrently, then collects
// outcomes in completion order. Each outcome updates the job record and
// notifies the progress listener before the next outcome is consumed; a
// single clip's failure never aborts the chunk.
func (e *Engine) runChunk(jobID string, dispatcher Dispatcher, req Request, clipIDs []string) []domain.ClipResult {
	outcomes := make(chan chunkOutcome, len(clipIDs))
	ctx := context.Background()

	for _, clipID := range clipIDs {
		go func(clipID string) {
			defer func() {
				if r := recover(); r != nil {
					outcomes <- chunkOutcome{fault: fmt.Errorf("dispatch panic for clip %s: %v", clipID, r)}
				}
			}()

			data, err := dispatcher.Dispatch(ctx, clipID, req.Operation, req.Options)
			if err != nil {
				outcomes <- chunkOutcome{result: domain.ClipResult{ClipID: clipID, ErrorMessage: err.Error()}}
				return
			}
			outcomes <- chunkOutcome{result: domain.ClipResult{ClipID: clipID, Success: true, Data: data}}
		}(clipID)
	}

	results := make([]domain.ClipResult, 0, len(clipIDs))
	for range clipIDs {
		outcome := <-outcomes
		if outcome.fault != nil {
			panic(outcome.fault)
		}

		var snapshot domain.JobRecord
		var ok bool
		if outcome.result.Success {
			snapshot, ok = e.registry.RecordSuccess(jobID, outcome.result.ClipID)
		} else {
			snapshot, ok = e.registry.RecordFailure(jobID, outcome.result.ClipID, outcome.result.ErrorMessage)
		}
		results = append(results, outcome.result)
		if ok && req.OnProgress != nil {
			req.OnProgress(snapshot)
		}
	}
	return results
}
