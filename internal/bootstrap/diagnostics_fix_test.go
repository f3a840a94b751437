package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"clip-analyzer/internal/domain"
)

// TestResolveModelDownloadTargetForModelFilePath ensures explicit model files are preserved.
func TestResolveModelDownloadTargetForModelFilePath(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "ggml-model.bin")

	targetFile, settingsPath, err := resolveModelDownloadTarget(target)
	if err != nil {
		t.Fatalf("resolve target: %v", err)
	}
	if targetFile != target {
		t.Fatalf("targetFile = %s, want %s", targetFile, target)
	}
	if settingsPath != target {
		t.Fatalf("settingsPath = %s, want %s", settingsPath, target)
	}
}

// TestResolveModelDownloadTargetForDirectory ensures folder paths download into default model file.
func TestResolveModelDownloadTargetForDirectory(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "models")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir model dir: %v", err)
	}

	targetFile, settingsPath, err := resolveModelDownloadTarget(modelDir)
	if err != nil {
		t.Fatalf("resolve target: %v", err)
	}
	wantTarget := filepath.Join(modelDir, defaultModelFilename)
	if targetFile != wantTarget {
		t.Fatalf("targetFile = %s, want %s", targetFile, wantTarget)
	}
	if settingsPath != modelDir {
		t.Fatalf("settingsPath = %s, want %s", settingsPath, modelDir)
	}
}

// TestResolveModelDownloadTargetRejectsNonModelFile ensures invalid file paths are rejected.
func TestResolveModelDownloadTargetRejectsNonModelFile(t *testing.T) {
	root := t.TempDir()
	badFile := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(badFile, []byte("not a model"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, _, err := resolveModelDownloadTarget(badFile); err == nil {
		t.Fatal("expected error for non-model file path")
	}
}

// TestInstallOrFixMediaDirCreatesDirectory ensures media dir fix creates missing directories.
func TestInstallOrFixMediaDirCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	mediaDir := filepath.Join(root, "nested", "clips")

	settings := domain.Settings{
		MediaDir: mediaDir,
		Language: "auto",
	}
	fixed, changed, err := installOrFixMediaDir(settings)
	if err != nil {
		t.Fatalf("fix media dir: %v", err)
	}
	if changed {
		t.Fatal("expected settings to remain unchanged")
	}
	if fixed.MediaDir != mediaDir {
		t.Fatalf("MediaDir = %s, want %s", fixed.MediaDir, mediaDir)
	}
	if _, err := os.Stat(mediaDir); err != nil {
		t.Fatalf("stat media dir: %v", err)
	}
}

// TestInstallOrFixMediaDirDefaultsEmptyPath ensures empty paths get the default directory.
func TestInstallOrFixMediaDirDefaultsEmptyPath(t *testing.T) {
	settings := domain.Settings{Language: "auto"}

	fixed, changed, err := installOrFixMediaDir(settings)
	if err != nil {
		// Creating under the real home directory may fail in restricted
		// environments; the settings decision still applies.
		t.Logf("fix media dir: %v", err)
	}
	if !changed {
		t.Fatal("expected settings change for empty media dir")
	}
	if fixed.MediaDir == "" {
		t.Fatal("expected MediaDir to be populated")
	}
}
