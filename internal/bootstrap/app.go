package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"clip-analyzer/internal/analysis"
	"clip-analyzer/internal/batch"
	"clip-analyzer/internal/config"
	"clip-analyzer/internal/diagnostics"
	"clip-analyzer/internal/domain"
	"clip-analyzer/internal/jobs"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var modelDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Transcription models",
		Pattern:     "*.bin;*.gguf",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the batch engine, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Engine      *batch.Engine
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker

	mu         sync.Mutex
	events     *jobs.EventBus
	runtimeCtx context.Context
}

// BatchRequest is the submission shape the frontend sends.
type BatchRequest struct {
	ClipIDs        []string       `json:"clipIds"`
	Operation      string         `json:"operation"`
	Options        map[string]any `json:"options,omitempty"`
	Concurrency    int            `json:"concurrency,omitempty"`
	RetryOnFailure bool           `json:"retryOnFailure,omitempty"`
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".clip-analyzer", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	app := &App{
		Settings:    settings,
		Store:       store,
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		events:      jobs.NewEventBus(1000),
	}
	app.Engine = batch.NewEngine(app.buildDispatcher(settings))
	return app, nil
}

// buildDispatcher assembles the analysis stack for the given settings and
// routes backend command logs into the event bus.
func (a *App) buildDispatcher(settings domain.Settings) *analysis.Dispatcher {
	backend := analysis.NewExecBackend(settings.BackendPath, func(log analysis.CommandLog) {
		a.publishEvent(jobs.Event{
			Type:         jobs.EventTypeLog,
			Message:      "Backend command completed",
			InvocationID: log.InvocationID,
			Command:      log.Command,
			Args:         log.Args,
			ExitCode:     log.ExitCode,
			Stdout:       log.Stdout,
			Stderr:       log.Stderr,
		})
	})
	resolver := analysis.NewMediaDirResolver(settings.MediaDir)
	return analysis.NewDispatcher(backend, resolver, settings.ModelPath, settings.Language)
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Clip Analyzer",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, refreshes diagnostics,
// and rebuilds the dispatcher for subsequently submitted batches.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	a.Engine.SetDispatcher(a.buildDispatcher(normalized))
	return normalized, nil
}

// ListOperations returns the operation kinds the dispatcher understands.
func (a *App) ListOperations() []domain.OperationKind {
	return domain.KnownOperations()
}

// SubmitBatch starts a new batch and returns its job id immediately.
func (a *App) SubmitBatch(req BatchRequest) (string, error) {
	jobID, err := a.Engine.Submit(batch.Request{
		ClipIDs:        req.ClipIDs,
		Operation:      domain.OperationKind(req.Operation),
		Options:        req.Options,
		Concurrency:    req.Concurrency,
		RetryOnFailure: req.RetryOnFailure,
		OnProgress:     a.publishProgress,
		OnDone:         a.publishResult,
	})
	if err != nil {
		return "", err
	}

	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  domain.BatchStatusPending,
		Message: "Batch submitted",
	})
	return jobID, nil
}

// GetBatchProgress returns the live record for a job, or nil when the id is
// unknown or the job has already been archived.
func (a *App) GetBatchProgress(jobID string) *domain.JobRecord {
	record, ok := a.Engine.Progress(jobID)
	if !ok {
		return nil
	}
	return &record
}

// CancelBatch requests cooperative cancellation of a running batch.
func (a *App) CancelBatch(jobID string) bool {
	cancelled := a.Engine.Cancel(jobID)
	if cancelled {
		a.publishEvent(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeStatus,
			Status:  domain.BatchStatusCancelled,
			Message: "Cancellation requested",
		})
	}
	return cancelled
}

// GetStatistics recomputes aggregate batch metrics.
func (a *App) GetStatistics() domain.Statistics {
	return a.Engine.Statistics()
}

// GetBatchHistory returns the most recent archived batches.
func (a *App) GetBatchHistory(limit int) []domain.BatchResult {
	return a.Engine.History(limit)
}

// ClearBatchHistory empties the archive.
func (a *App) ClearBatchHistory() {
	a.Engine.ClearHistory()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// PickMediaDirectory opens a native directory picker for the clip library.
func (a *App) PickMediaDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select media directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickModelFile opens a native file dialog for transcription model selection.
func (a *App) PickModelFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select transcription model",
		Filters: modelDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenMediaFolder opens the given path (or configured media dir) in file manager.
func (a *App) OpenMediaFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.MediaDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("media path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve media path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()
	return report, nil
}

// publishProgress forwards one per-clip outcome to UI subscribers.
func (a *App) publishProgress(record domain.JobRecord) {
	a.publishEvent(jobs.Event{
		JobID:     record.JobID,
		Type:      jobs.EventTypeProgress,
		Status:    record.Status,
		ClipID:    record.CurrentClip,
		Completed: record.Completed,
		Failed:    record.Failed,
		Total:     record.Total,
	})
}

// publishResult announces the terminal outcome of an archived batch.
func (a *App) publishResult(result domain.BatchResult) {
	message := fmt.Sprintf("Batch finished: %d succeeded, %d failed", result.SuccessCount, result.FailureCount)
	a.publishEvent(jobs.Event{
		JobID:     result.JobID,
		Type:      jobs.EventTypeResult,
		Status:    result.Status,
		Completed: result.SuccessCount,
		Failed:    result.FailureCount,
		Total:     len(result.Summary.ClipIDs),
		Message:   message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "batch:event", published)
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and restores required defaults.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.BackendPath = strings.TrimSpace(settings.BackendPath)
	settings.MediaDir = strings.TrimSpace(settings.MediaDir)
	settings.ModelPath = strings.TrimSpace(settings.ModelPath)
	settings.Language = strings.TrimSpace(settings.Language)
	if settings.BackendPath == "" {
		settings.BackendPath = config.DefaultBackendTool
	}
	if settings.Language == "" {
		settings.Language = "auto"
	}
	return settings
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
