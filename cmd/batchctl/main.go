package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"clip-analyzer/internal/analysis"
	"clip-analyzer/internal/batch"
	"clip-analyzer/internal/config"
	"clip-analyzer/internal/domain"
)

// batchctl runs one batch headlessly: it reads backend configuration from
// the environment, submits the requested operation for a list of clip ids,
// streams per-clip progress to stderr, and prints the archived result.
func main() {
	_ = godotenv.Load()

	var (
		operation   = flag.String("op", string(domain.OperationVideoAnalysis), "batch operation kind")
		concurrency = flag.Int("concurrency", 0, "clips processed in parallel per chunk (0 = default)")
		listOps     = flag.Bool("list-ops", false, "print known operation kinds and exit")
	)
	flag.Parse()

	if *listOps {
		for _, kind := range domain.KnownOperations() {
			fmt.Println(kind)
		}
		return
	}

	clipIDs := flag.Args()
	if len(clipIDs) == 0 {
		log.Fatal("usage: batchctl [-op kind] [-concurrency n] clip-id [clip-id ...]")
	}

	defaults := config.DefaultSettings()
	backendPath := getenv("CLIP_ANALYZER_BACKEND", defaults.BackendPath)
	mediaDir := getenv("CLIP_ANALYZER_MEDIA_DIR", defaults.MediaDir)
	modelPath := getenv("CLIP_ANALYZER_MODEL", defaults.ModelPath)
	language := getenv("CLIP_ANALYZER_LANGUAGE", defaults.Language)

	backend := analysis.NewExecBackend(backendPath, func(cl analysis.CommandLog) {
		log.Printf("backend %s exit=%d invocation=%s", cl.Command, cl.ExitCode, cl.InvocationID)
	})
	resolver := analysis.NewMediaDirResolver(mediaDir)
	dispatcher := analysis.NewDispatcher(backend, resolver, modelPath, language)
	engine := batch.NewEngine(dispatcher)

	done := make(chan domain.BatchResult, 1)
	jobID, err := engine.Submit(batch.Request{
		ClipIDs:     clipIDs,
		Operation:   domain.OperationKind(*operation),
		Concurrency: *concurrency,
		OnProgress: func(record domain.JobRecord) {
			log.Printf("job %s: %d/%d done, %d failed (last clip %s)",
				record.JobID, record.Completed+record.Failed, record.Total, record.Failed, record.CurrentClip)
		},
		OnDone: func(result domain.BatchResult) {
			done <- result
		},
	})
	if err != nil {
		log.Fatalf("submit batch: %v", err)
	}
	log.Printf("submitted job %s (%d clips, operation %s)", jobID, len(clipIDs), *operation)

	result := <-done
	printResult(result)
	printStatistics(engine.Statistics())

	if result.Status != domain.BatchStatusCompleted || result.FailureCount > 0 {
		os.Exit(1)
	}
}

func printResult(result domain.BatchResult) {
	fmt.Printf("job:        %s\n", result.JobID)
	fmt.Printf("status:     %s\n", result.Status)
	fmt.Printf("processed:  %d (%d ok, %d failed)\n", result.TotalProcessed, result.SuccessCount, result.FailureCount)
	fmt.Printf("duration:   %s\n", time.Duration(result.ExecutionTimeMs)*time.Millisecond)
	if len(result.Errors) > 0 {
		fmt.Printf("errors:\n  %s\n", strings.Join(result.Errors, "\n  "))
	}
}

func printStatistics(stats domain.Statistics) {
	fmt.Printf("jobs total: %d, completed %d, failed %d\n", stats.TotalJobs, stats.CompletedJobs, stats.FailedJobs)
	fmt.Printf("success:    %.1f%%, avg %.0fms, %d clips processed\n",
		stats.SuccessRate, stats.AverageExecutionTimeMs, stats.TotalClipsProcessed)
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
