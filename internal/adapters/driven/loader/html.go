package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// htmlNoise is removed before conversion. None of it is readable content.
const htmlNoise = "head, script, style, noscript, svg, iframe, nav, footer"

// ParseHTML converts an HTML file to markdown text as a single page.
// Headings, lists and tables keep their structure so chunks stay readable.
func ParseHTML(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	doc.Find(htmlNoise).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	text := md.NewConverter("", true, nil).Convert(body)
	return []string{collapseBlankLines(text)}, nil
}

// collapseBlankLines trims each line and keeps at most one blank line in a row.
func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
