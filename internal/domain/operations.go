package domain

// OperationKind selects which analysis, or composition of analyses,
// runs for each clip in a batch.
type OperationKind string

const (
	OperationVideoAnalysis         OperationKind = "video_analysis"
	OperationAudioAnalysis         OperationKind = "audio_analysis"
	OperationQualityAnalysis       OperationKind = "quality_analysis"
	OperationSceneDetection        OperationKind = "scene_detection"
	OperationMotionAnalysis        OperationKind = "motion_analysis"
	OperationTranscription         OperationKind = "transcription"
	OperationSubtitleGeneration    OperationKind = "subtitle_generation"
	OperationLanguageDetection     OperationKind = "language_detection"
	OperationComprehensiveAnalysis OperationKind = "comprehensive_analysis"
)

// KnownOperations lists every operation kind the dispatcher understands,
// in menu display order. Submission does not validate against this list;
// unknown kinds fail per clip at dispatch time.
func KnownOperations() []OperationKind {
	return []OperationKind{
		OperationVideoAnalysis,
		OperationAudioAnalysis,
		OperationQualityAnalysis,
		OperationSceneDetection,
		OperationMotionAnalysis,
		OperationTranscription,
		OperationSubtitleGeneration,
		OperationLanguageDetection,
		OperationComprehensiveAnalysis,
	}
}
