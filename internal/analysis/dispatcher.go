package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clip-analyzer/internal/domain"
)

// Backend command names, by operation kind.
const (
	cmdAnalyzeVideoQuick = "analyze_video_quick"
	cmdAnalyzeAudio      = "analyze_audio"
	cmdAnalyzeQuality    = "analyze_quality"
	cmdDetectScenes      = "detect_scenes"
	cmdAnalyzeMotion     = "analyze_motion"
	cmdTranscribe        = "transcribe"
	cmdExtractAudio      = "extract_audio"
)

const (
	defaultMaxLineLength = 42
	languageConfidence   = 0.95
	defaultAudioFormat   = "wav"
)

// sceneDetectionDefaults are applied under caller-supplied options.
var sceneDetectionDefaults = map[string]any{
	"threshold":        0.3,
	"min_scene_length": 1.0,
}

// Dispatcher maps an operation kind to the backend invocations that
// implement it, including multi-step compositions.
type Dispatcher struct {
	backend  Backend
	resolver PathResolver
	model    string
	language string
	now      func() time.Time
}

// NewDispatcher creates a dispatcher using the configured transcription
// model and language hint for transcription-based operations.
func NewDispatcher(backend Backend, resolver PathResolver, model, language string) *Dispatcher {
	return &Dispatcher{
		backend:  backend,
		resolver: resolver,
		model:    model,
		language: language,
		now:      time.Now,
	}
}

// Dispatch runs one operation for one clip and returns its result payload.
// An unrecognized kind fails here, per clip, not at submission time.
func (d *Dispatcher) Dispatch(ctx context.Context, clipID string, kind domain.OperationKind, options map[string]any) (map[string]any, error) {
	switch kind {
	case domain.OperationVideoAnalysis:
		return d.singleCall(ctx, clipID, cmdAnalyzeVideoQuick, nil, options)
	case domain.OperationAudioAnalysis:
		return d.singleCall(ctx, clipID, cmdAnalyzeAudio, nil, options)
	case domain.OperationQualityAnalysis:
		return d.singleCall(ctx, clipID, cmdAnalyzeQuality, nil, options)
	case domain.OperationSceneDetection:
		return d.singleCall(ctx, clipID, cmdDetectScenes, sceneDetectionDefaults, options)
	case domain.OperationMotionAnalysis:
		return d.singleCall(ctx, clipID, cmdAnalyzeMotion, nil, options)
	case domain.OperationTranscription:
		return d.transcribe(ctx, clipID, options)
	case domain.OperationSubtitleGeneration:
		return d.generateSubtitles(ctx, clipID, options)
	case domain.OperationLanguageDetection:
		return d.detectLanguage(ctx, clipID, options)
	case domain.OperationComprehensiveAnalysis:
		return d.comprehensive(ctx, clipID, options)
	default:
		return nil, fmt.Errorf("Unknown batch operation: %s", kind)
	}
}

// singleCall resolves the clip path and issues one backend command with
// caller options merged over per-kind defaults.
func (d *Dispatcher) singleCall(ctx context.Context, clipID, command string, defaults, options map[string]any) (map[string]any, error) {
	path, err := d.resolver.Resolve(clipID)
	if err != nil {
		return nil, err
	}

	params := mergeParams(defaults, options)
	params["input_path"] = path
	return d.backend.Invoke(ctx, command, params)
}

// transcribe extracts a normalized audio track, then runs the transcription
// command against it.
func (d *Dispatcher) transcribe(ctx context.Context, clipID string, options map[string]any) (map[string]any, error) {
	path, err := d.resolver.Resolve(clipID)
	if err != nil {
		return nil, err
	}

	extracted, err := d.backend.Invoke(ctx, cmdExtractAudio, map[string]any{
		"input_path": path,
		"format":     defaultAudioFormat,
	})
	if err != nil {
		return nil, err
	}

	audioPath := stringField(extracted, "audio_path")
	if audioPath == "" {
		audioPath = path
	}

	params := mergeParams(map[string]any{
		"model":                 d.model,
		"language":              d.language,
		"response_format":       "verbose_json",
		"temperature":           0.0,
		"timestamp_granularity": "segment",
	}, options)
	params["audio_path"] = audioPath
	return d.backend.Invoke(ctx, cmdTranscribe, params)
}

// generateSubtitles transcribes the clip and packs the text into lines.
func (d *Dispatcher) generateSubtitles(ctx context.Context, clipID string, options map[string]any) (map[string]any, error) {
	transcript, err := d.transcribe(ctx, clipID, options)
	if err != nil {
		return nil, err
	}

	text := stringField(transcript, "text")
	limit := intOption(options, "max_line_length", defaultMaxLineLength)
	lines := packSubtitleLines(text, limit)

	return map[string]any{
		"text":          text,
		"lines":         lines,
		"lineCount":     len(lines),
		"maxLineLength": limit,
	}, nil
}

// detectLanguage transcribes the clip and reports the backend's detected
// language with a fixed confidence value.
func (d *Dispatcher) detectLanguage(ctx context.Context, clipID string, options map[string]any) (map[string]any, error) {
	transcript, err := d.transcribe(ctx, clipID, options)
	if err != nil {
		return nil, err
	}

	language := stringField(transcript, "language")
	if language == "" {
		language = "unknown"
	}

	return map[string]any{
		"language":   language,
		"confidence": languageConfidence,
	}, nil
}

// comprehensive runs video, audio, and quality analysis concurrently and
// merges the three payloads. The three calls are always parallel,
// independent of the batch concurrency limit.
func (d *Dispatcher) comprehensive(ctx context.Context, clipID string, options map[string]any) (map[string]any, error) {
	parts := []struct {
		key     string
		command string
	}{
		{"video", cmdAnalyzeVideoQuick},
		{"audio", cmdAnalyzeAudio},
		{"quality", cmdAnalyzeQuality},
	}

	payloads := make([]map[string]any, len(parts))
	errs := make([]error, len(parts))

	var wg sync.WaitGroup
	for i := range parts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payloads[i], errs[i] = d.singleCall(ctx, clipID, parts[i].command, nil, options)
		}(i)
	}
	wg.Wait()

	merged := map[string]any{
		"clipId":    clipID,
		"timestamp": d.now().UTC().Format(time.RFC3339),
	}
	for i := range parts {
		if errs[i] != nil {
			return nil, fmt.Errorf("%s analysis: %w", parts[i].key, errs[i])
		}
		if payloads[i] == nil {
			payloads[i] = map[string]any{}
		}
		merged[parts[i].key] = payloads[i]
	}
	return merged, nil
}

// mergeParams layers caller options over per-kind defaults.
func mergeParams(defaults, options map[string]any) map[string]any {
	params := make(map[string]any, len(defaults)+len(options))
	for key, value := range defaults {
		params[key] = value
	}
	for key, value := range options {
		params[key] = value
	}
	return params
}

// stringField returns a string payload field, or empty when absent.
func stringField(payload map[string]any, key string) string {
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return value
}

// intOption reads a numeric option, tolerating JSON float decoding.
func intOption(options map[string]any, key string, fallback int) int {
	switch value := options[key].(type) {
	case int:
		if value > 0 {
			return value
		}
	case int64:
		if value > 0 {
			return int(value)
		}
	case float64:
		if value > 0 {
			return int(value)
		}
	}
	return fallback
}
