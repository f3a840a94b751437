package analysis

import "strings"

// packSubtitleLines greedily packs words into lines no longer than maxLen
// characters, flushing a line whenever appending the next word would
// exceed the limit. Joining the lines back with single spaces reproduces
// the original word sequence.
func packSubtitleLines(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = defaultMaxLineLength
	}

	words := strings.Fields(text)
	lines := make([]string, 0, len(words)/4+1)
	var current strings.Builder

	for _, word := range words {
		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}
		if current.Len()+1+len(word) > maxLen {
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
			continue
		}
		current.WriteByte(' ')
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
