package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"clip-analyzer/internal/domain"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	readDir  func(string) ([]os.DirEntry, error)
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath: exec.LookPath,
		stat:     os.Stat,
		readDir:  os.ReadDir,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkBackend(settings.BackendPath),
		c.checkTool("ffmpeg"),
		c.checkTool("ffprobe"),
		c.checkModelPath(settings.ModelPath),
		c.checkMediaDir(settings.MediaDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkBackend verifies the analysis backend executable. A bare name is
// resolved on PATH; an explicit path is checked directly.
func (c *Checker) checkBackend(backendPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "tool_backend",
		Name: "Analysis backend",
	}

	trimmed := strings.TrimSpace(backendPath)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Analysis backend path is empty."
		item.Hint = "Set the backend executable path or name in settings."
		return item
	}

	if strings.ContainsRune(trimmed, os.PathSeparator) {
		info, err := c.stat(trimmed)
		if err != nil || info.IsDir() {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Backend executable not found: %s", trimmed)
			item.Hint = "Install the analysis backend and point settings at its executable."
			return item
		}

		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Found at %s", trimmed)
		return item
	}

	path, err := c.lookPath(trimmed)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend not found in PATH: %s", trimmed)
		item.Hint = "Install the analysis backend and ensure it is available on PATH."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before starting batch analysis.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkModelPath validates configured model file or model directory.
func (c *Checker) checkModelPath(modelPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_path",
		Name: "Model path",
	}

	if strings.TrimSpace(modelPath) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model path is empty."
		item.Hint = "Set a valid model file path or a directory containing transcription models."
		return item
	}

	info, err := c.stat(modelPath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Model path does not exist: %s", modelPath)
		} else {
			item.Message = fmt.Sprintf("Cannot access model path: %s", modelPath)
		}
		item.Hint = "Download a transcription model and configure the path in settings."
		return item
	}

	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Model file found: %s", modelPath)
		return item
	}

	entries, err := c.readDir(modelPath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot read model directory: %s", modelPath)
		item.Hint = "Check permissions for the model directory."
		return item
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Model directory is valid: %s", modelPath)
			return item
		}
	}

	item.Status = domain.DiagnosticStatusFail
	item.Message = fmt.Sprintf("No model files found in directory: %s", modelPath)
	item.Hint = "Place a .bin or .gguf model file in this directory or point to a model file directly."
	return item
}

// checkMediaDir validates the media directory clip paths resolve into.
func (c *Checker) checkMediaDir(mediaDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "media_dir",
		Name: "Media directory",
	}

	if strings.TrimSpace(mediaDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Media directory is empty."
		item.Hint = "Set the directory clip identifiers resolve into."
		return item
	}

	info, err := c.stat(mediaDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Media directory does not exist: %s", mediaDir)
		} else {
			item.Message = fmt.Sprintf("Cannot access media directory: %s", mediaDir)
		}
		item.Hint = "Create the media directory or point settings at an existing one."
		return item
	}
	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Media path is not a directory: %s", mediaDir)
		item.Hint = "Point settings at a directory, not a file."
		return item
	}

	if _, err := c.readDir(mediaDir); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Media directory is not readable: %s", mediaDir)
		item.Hint = "Check permissions for the media directory."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Readable directory: %s", mediaDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	readDir func(string) ([]os.DirEntry, error),
) *Checker {
	return &Checker{
		lookPath: lookPath,
		stat:     stat,
		readDir:  readDir,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
