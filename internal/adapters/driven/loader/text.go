package loader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// pageBreak separates pages in plain text and markdown files.
const pageBreak = "\f"

// ParseText reads a UTF-8 text file and splits it into pages on form feeds.
// A file without form feeds is a single page.
func ParseText(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("read %s: not valid UTF-8 text", path)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(text, pageBreak), nil
}
