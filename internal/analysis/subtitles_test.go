package analysis

import (
	"strings"
	"testing"
)

// TestPackSubtitleLinesRespectsLimit verifies greedy packing bounds.
func TestPackSubtitleLinesRespectsLimit(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	lines := packSubtitleLines(text, 15)

	if len(lines) < 2 {
		t.Fatalf("lines = %v, want multiple", lines)
	}
	for _, line := range lines {
		if len(line) > 15 {
			t.Fatalf("line %q exceeds 15 characters", line)
		}
	}
	if strings.Join(lines, " ") != text {
		t.Fatalf("rejoined lines = %q, want original word sequence", strings.Join(lines, " "))
	}
}

// TestPackSubtitleLinesKeepsOverlongWordsIntact verifies words are never split.
func TestPackSubtitleLinesKeepsOverlongWordsIntact(t *testing.T) {
	lines := packSubtitleLines("supercalifragilisticexpialidocious yes", 10)

	if len(lines) != 2 {
		t.Fatalf("lines = %v, want 2", lines)
	}
	if lines[0] != "supercalifragilisticexpialidocious" {
		t.Fatalf("line 0 = %q, want intact long word", lines[0])
	}
}

// TestPackSubtitleLinesEmptyText verifies blank input produces no lines.
func TestPackSubtitleLinesEmptyText(t *testing.T) {
	if lines := packSubtitleLines("   ", 42); len(lines) != 0 {
		t.Fatalf("lines = %v, want none", lines)
	}
}

// TestPackSubtitleLinesNonPositiveLimit verifies fallback to the default width.
func TestPackSubtitleLinesNonPositiveLimit(t *testing.T) {
	text := strings.Repeat("word ", 30)
	lines := packSubtitleLines(text, 0)

	for _, line := range lines {
		if len(line) > defaultMaxLineLength {
			t.Fatalf("line %q exceeds default limit", line)
		}
	}
}
