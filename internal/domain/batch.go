package domain

import "time"

// BatchStatus tracks the lifecycle of one batch analysis job.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// Terminal reports whether a status ends the job lifecycle.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled:
		return true
	default:
		return false
	}
}

// JobRecord is the live progress state of one in-flight batch.
// Completed+Failed never exceeds Total.
type JobRecord struct {
	JobID       string      `json:"jobId"`
	Total       int         `json:"total"`
	Completed   int         `json:"completed"`
	Failed      int         `json:"failed"`
	Status      BatchStatus `json:"status"`
	CurrentClip string      `json:"currentClip,omitempty"`
	StartTime   time.Time   `json:"startTime"`
	Errors      []string    `json:"errors,omitempty"`
}

// ClipResult is the outcome of one clip within a batch.
type ClipResult struct {
	ClipID       string         `json:"clipId"`
	Success      bool           `json:"success"`
	Data         map[string]any `json:"data,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// BatchSummary captures what was requested and when it ran.
type BatchSummary struct {
	Operation  OperationKind `json:"operation"`
	ClipIDs    []string      `json:"clipIds"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// BatchResult is the immutable terminal summary of a finished batch.
// Results order reflects completion order within each chunk; chunks
// themselves appear in submission order.
type BatchResult struct {
	JobID           string       `json:"jobId"`
	Status          BatchStatus  `json:"status"`
	Results         []ClipResult `json:"results"`
	Errors          []string     `json:"errors,omitempty"`
	TotalProcessed  int          `json:"totalProcessed"`
	SuccessCount    int          `json:"successCount"`
	FailureCount    int          `json:"failureCount"`
	ExecutionTimeMs int64        `json:"executionTimeMs"`
	Summary         BatchSummary `json:"summary"`
}

// Statistics aggregates history and active jobs; recomputed on each query.
type Statistics struct {
	TotalJobs              int     `json:"totalJobs"`
	RunningJobs            int     `json:"runningJobs"`
	CompletedJobs          int     `json:"completedJobs"`
	FailedJobs             int     `json:"failedJobs"`
	AverageExecutionTimeMs float64 `json:"averageExecutionTimeMs"`
	TotalClipsProcessed    int     `json:"totalClipsProcessed"`
	SuccessRate            float64 `json:"successRate"`
}
