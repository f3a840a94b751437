package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"clip-analyzer/internal/domain"
)

// fakeBackend records invocations and answers from a per-command script.
type fakeBackend struct {
	mu        sync.Mutex
	responses map[string]map[string]any
	failWith  map[string]error
	calls     []recordedCall
}

type recordedCall struct {
	command string
	params  map[string]any
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses: map[string]map[string]any{},
		failWith:  map[string]error{},
	}
}

// Invoke records the call and replies per script.
func (b *fakeBackend) Invoke(ctx context.Context, command string, params map[string]any) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, recordedCall{command: command, params: params})
	if err := b.failWith[command]; err != nil {
		return nil, err
	}
	if response, ok := b.responses[command]; ok {
		return response, nil
	}
	return map[string]any{}, nil
}

func (b *fakeBackend) callsFor(command string) []recordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []recordedCall
	for _, call := range b.calls {
		if call.command == command {
			out = append(out, call)
		}
	}
	return out
}

func newTestDispatcher(backend Backend) *Dispatcher {
	d := NewDispatcher(backend, NewMediaDirResolver("/media"), "/models/ggml-base.en.bin", "en")
	d.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return d
}

// TestDispatchUnknownOperation verifies per-clip failure for unknown kinds.
func TestDispatchUnknownOperation(t *testing.T) {
	d := newTestDispatcher(newFakeBackend())

	_, err := d.Dispatch(context.Background(), "clip-1", domain.OperationKind("frame_export"), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "Unknown batch operation: frame_export" {
		t.Fatalf("error = %q", got)
	}
}

// TestDispatchSingleCallResolvesInputPath verifies path resolution wiring.
func TestDispatchSingleCallResolvesInputPath(t *testing.T) {
	backend := newFakeBackend()
	d := newTestDispatcher(backend)

	if _, err := d.Dispatch(context.Background(), "clip-1", domain.OperationVideoAnalysis, nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	calls := backend.callsFor(cmdAnalyzeVideoQuick)
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	want := "/media/clip-1.mp4"
	if got := calls[0].params["input_path"]; got != want {
		t.Fatalf("input_path = %v, want %s", got, want)
	}
}

// TestDispatchSceneDetectionDefaults verifies defaults and option override.
func TestDispatchSceneDetectionDefaults(t *testing.T) {
	backend := newFakeBackend()
	d := newTestDispatcher(backend)

	if _, err := d.Dispatch(context.Background(), "clip-1", domain.OperationSceneDetection, nil); err != nil {
		t.Fatalf("dispatch defaults: %v", err)
	}
	if _, err := d.Dispatch(context.Background(), "clip-1", domain.OperationSceneDetection, map[string]any{"threshold": 0.5}); err != nil {
		t.Fatalf("dispatch override: %v", err)
	}

	calls := backend.callsFor(cmdDetectScenes)
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].params["threshold"] != 0.3 || calls[0].params["min_scene_length"] != 1.0 {
		t.Fatalf("default params = %v", calls[0].params)
	}
	if calls[1].params["threshold"] != 0.5 {
		t.Fatalf("override params = %v", calls[1].params)
	}
	if calls[1].params["min_scene_length"] != 1.0 {
		t.Fatalf("override lost default: %v", calls[1].params)
	}
}

// TestDispatchTranscriptionRunsTwoSteps verifies the extract/transcribe chain.
func TestDispatchTranscriptionRunsTwoSteps(t *testing.T) {
	backend := newFakeBackend()
	backend.responses[cmdExtractAudio] = map[string]any{"audio_path": "/tmp/clip-1.wav"}
	backend.responses[cmdTranscribe] = map[string]any{"text": "hello world", "language": "en"}
	d := newTestDispatcher(backend)

	result, err := d.Dispatch(context.Background(), "clip-1", domain.OperationTranscription, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result["text"] != "hello world" {
		t.Fatalf("result = %v", result)
	}

	extracts := backend.callsFor(cmdExtractAudio)
	if len(extracts) != 1 {
		t.Fatalf("extract calls = %d, want 1", len(extracts))
	}
	if extracts[0].params["format"] != "wav" {
		t.Fatalf("extract params = %v", extracts[0].params)
	}

	transcribes := backend.callsFor(cmdTranscribe)
	if len(transcribes) != 1 {
		t.Fatalf("transcribe calls = %d, want 1", len(transcribes))
	}
	params := transcribes[0].params
	if params["audio_path"] != "/tmp/clip-1.wav" {
		t.Fatalf("audio_path = %v, want extracted path", params["audio_path"])
	}
	if params["model"] != "/models/ggml-base.en.bin" || params["language"] != "en" {
		t.Fatalf("model/language = %v/%v", params["model"], params["language"])
	}
	if params["response_format"] != "verbose_json" || params["timestamp_granularity"] != "segment" {
		t.Fatalf("transcribe defaults = %v", params)
	}
}

// TestDispatchTranscriptionFallsBackToClipPath verifies behavior when the
// extraction step reports no audio path.
func TestDispatchTranscriptionFallsBackToClipPath(t *testing.T) {
	backend := newFakeBackend()
	backend.responses[cmdTranscribe] = map[string]any{"text": "x"}
	d := newTestDispatcher(backend)

	if _, err := d.Dispatch(context.Background(), "clip-1", domain.OperationTranscription, nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	transcribes := backend.callsFor(cmdTranscribe)
	if transcribes[0].params["audio_path"] != "/media/clip-1.mp4" {
		t.Fatalf("audio_path = %v, want clip path fallback", transcribes[0].params["audio_path"])
	}
}

// TestDispatchSubtitleGeneration verifies line packing and payload shape.
func TestDispatchSubtitleGeneration(t *testing.T) {
	backend := newFakeBackend()
	backend.responses[cmdTranscribe] = map[string]any{
		"text": "the quick brown fox jumps over the lazy dog near the riverbank at dawn",
	}
	d := newTestDispatcher(backend)

	result, err := d.Dispatch(context.Background(), "clip-1", domain.OperationSubtitleGeneration, map[string]any{"max_line_length": 20})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	lines, ok := result["lines"].([]string)
	if !ok {
		t.Fatalf("lines type = %T", result["lines"])
	}
	if len(lines) < 2 {
		t.Fatalf("lines = %v, want multiple", lines)
	}
	for _, line := range lines {
		if len(line) > 20 {
			t.Fatalf("line %q exceeds limit", line)
		}
	}
	if rejoined := strings.Join(lines, " "); rejoined != result["text"] {
		t.Fatalf("rejoined = %q, want original text", rejoined)
	}
	if result["lineCount"] != len(lines) || result["maxLineLength"] != 20 {
		t.Fatalf("metadata = %v/%v", result["lineCount"], result["maxLineLength"])
	}
}

// TestDispatchLanguageDetection verifies detected language and fixed confidence.
func TestDispatchLanguageDetection(t *testing.T) {
	backend := newFakeBackend()
	backend.responses[cmdTranscribe] = map[string]any{"text": "hola", "language": "es"}
	d := newTestDispatcher(backend)

	result, err := d.Dispatch(context.Background(), "clip-1", domain.OperationLanguageDetection, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result["language"] != "es" {
		t.Fatalf("language = %v, want es", result["language"])
	}
	if result["confidence"] != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", result["confidence"])
	}
}

// TestDispatchLanguageDetectionUnknownFallback verifies the missing-language path.
func TestDispatchLanguageDetectionUnknownFallback(t *testing.T) {
	backend := newFakeBackend()
	backend.responses[cmdTranscribe] = map[string]any{"text": "..."}
	d := newTestDispatcher(backend)

	result, err := d.Dispatch(context.Background(), "clip-1", domain.OperationLanguageDetection, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result["language"] != "unknown" {
		t.Fatalf("language = %v, want unknown", result["language"])
	}
}

// TestDispatchComprehensiveMergesSections verifies the merged payload shape.
func TestDispatchComprehensiveMergesSections(t *testing.T) {
	backend := newFakeBackend()
	backend.responses[cmdAnalyzeVideoQuick] = map[string]any{"fps": 30.0}
	backend.responses[cmdAnalyzeAudio] = map[string]any{"channels": 2.0}
	backend.responses[cmdAnalyzeQuality] = map[string]any{"score": 0.8}
	d := newTestDispatcher(backend)

	result, err := d.Dispatch(context.Background(), "clip-1", domain.OperationComprehensiveAnalysis, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if result["clipId"] != "clip-1" {
		t.Fatalf("clipId = %v", result["clipId"])
	}
	if result["timestamp"] != "2025-06-01T12:00:00Z" {
		t.Fatalf("timestamp = %v", result["timestamp"])
	}
	video, ok := result["video"].(map[string]any)
	if !ok || video["fps"] != 30.0 {
		t.Fatalf("video section = %v", result["video"])
	}
	if _, ok := result["audio"]; !ok {
		t.Fatal("missing audio section")
	}
	if _, ok := result["quality"]; !ok {
		t.Fatal("missing quality section")
	}
}

// TestDispatchComprehensiveReportsFailingSection verifies error propagation.
func TestDispatchComprehensiveReportsFailingSection(t *testing.T) {
	backend := newFakeBackend()
	backend.failWith[cmdAnalyzeAudio] = fmt.Errorf("no audio stream")
	d := newTestDispatcher(backend)

	_, err := d.Dispatch(context.Background(), "clip-1", domain.OperationComprehensiveAnalysis, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "audio analysis") {
		t.Fatalf("error = %v, want audio analysis prefix", err)
	}
}

// TestDispatchRejectsEmptyClipID verifies resolver validation surfaces.
func TestDispatchRejectsEmptyClipID(t *testing.T) {
	d := newTestDispatcher(newFakeBackend())

	if _, err := d.Dispatch(context.Background(), "  ", domain.OperationVideoAnalysis, nil); err == nil {
		t.Fatal("expected error for empty clip id")
	}
}
