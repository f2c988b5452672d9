package chunker

import (
	"strings"
	"unicode"
)

// splitSentences splits text after '.', '?' or '!' when followed by whitespace.
// Blank sentences are dropped.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	flush := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
	}

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		flush(i + 1)
		// Skip the whitespace run after the terminator.
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		flush(len(runes))
	}

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// combineSentences returns, for every sentence, the sentence joined with up
// to buffer neighbours on each side.
func combineSentences(sentences []string, buffer int) []string {
	combined := make([]string, len(sentences))
	for i := range sentences {
		lo := max(i-buffer, 0)
		hi := min(i+buffer+1, len(sentences))
		combined[i] = strings.Join(sentences[lo:hi], " ")
	}
	return combined
}
