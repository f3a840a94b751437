package jobs

import (
	"fmt"
	"sync"
	"time"

	"clip-analyzer/internal/domain"
)

// Registry is the in-memory table of active batch jobs, keyed by job id.
// It is shared between the submission caller, each job's scheduler
// goroutine, and cancel callers, so every access goes through the mutex.
// Records leave the registry exactly once, via Finalize.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.JobRecord
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*domain.JobRecord)}
}

// Create inserts a pending record for a newly submitted batch.
func (r *Registry) Create(jobID string, total int) domain.JobRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := &domain.JobRecord{
		JobID:     jobID,
		Total:     total,
		Status:    domain.BatchStatusPending,
		StartTime: time.Now(),
	}
	r.jobs[jobID] = record
	return *record
}

// Snapshot returns a copy of the live record, or false when the id is
// unknown or the job has already been archived. The Errors slice shares
// backing storage with the live record; callers must not mutate it.
func (r *Registry) Snapshot(jobID string) (domain.JobRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.jobs[jobID]
	if !ok {
		return domain.JobRecord{}, false
	}
	return *record, true
}

// Status returns only the current status for a job.
func (r *Registry) Status(jobID string) (domain.BatchStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.jobs[jobID]
	if !ok {
		return "", false
	}
	return record.Status, true
}

// MarkRunning moves a pending job to running. Cancelled or missing jobs
// are left untouched.
func (r *Registry) MarkRunning(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.jobs[jobID]
	if !ok || record.Status != domain.BatchStatusPending {
		return
	}
	record.Status = domain.BatchStatusRunning
}

// Cancel flips a running job to cancelled and reports whether it did.
// Pending jobs, terminal jobs, and unknown ids all return false.
func (r *Registry) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.jobs[jobID]
	if !ok || record.Status != domain.BatchStatusRunning {
		return false
	}
	record.Status = domain.BatchStatusCancelled
	return true
}

// RecordSuccess counts one finished clip and marks it as the most recently
// handled item. Returns a snapshot for progress listeners.
func (r *Registry) RecordSuccess(jobID, clipID string) (domain.JobRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.jobs[jobID]
	if !ok {
		return domain.JobRecord{}, false
	}
	record.Completed++
	record.CurrentClip = clipID
	return *record, true
}

// RecordFailure counts one failed clip and appends its formatted error.
func (r *Registry) RecordFailure(jobID, clipID, message string) (domain.JobRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.jobs[jobID]
	if !ok {
		return domain.JobRecord{}, false
	}
	record.Failed++
	record.Errors = append(record.Errors, fmt.Sprintf("%s: %s", clipID, message))
	return *record, true
}

// AppendError records a scheduler-level fault message on the job.
func (r *Registry) AppendError(jobID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.jobs[jobID]
	if !ok {
		return
	}
	record.Errors = append(record.Errors, message)
}

// Finalize applies the terminal status and removes the record from the
// registry, returning a copy for archival. The caller archives the
// corresponding batch result; a job id is never present in both the
// registry and history at once.
func (r *Registry) Finalize(jobID string, status domain.BatchStatus) (domain.JobRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.jobs[jobID]
	if !ok {
		return domain.JobRecord{}, false
	}
	record.Status = status
	delete(r.jobs, jobID)
	return *record, true
}

// ActiveCount returns how many jobs are currently tracked.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// RunningCount returns how many tracked jobs are in running state.
func (r *Registry) RunningCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, record := range r.jobs {
		if record.Status == domain.BatchStatusRunning {
			count++
		}
	}
	return count
}
