package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ingestPaths uploads files into the session and prints the batch summary.
// A report is printed even when the batch fails.
func ingestPaths(ctx context.Context, w io.Writer, session driving.ChatSession, paths []string) error {
	blobs := make([]domain.FileBlob, len(paths))
	for i, p := range paths {
		blobs[i] = domain.FileBlob{Path: p}
	}

	report, err := session.Ingest(ctx, blobs)
	if report != nil {
		fmt.Fprintln(w, report.Summary())
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

// printSources lists the answer's citations, one per line.
func printSources(w io.Writer, answer *domain.Answer) {
	if answer == nil || len(answer.Citations) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, c := range answer.Citations {
		fmt.Fprintf(w, "  - %s\n", c.Label())
	}
}

// sourceOutput is a citation in structured output.
type sourceOutput struct {
	Name string `json:"name" yaml:"name"`
	Page int    `json:"page" yaml:"page"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// answerOutput is an answer in structured output.
type answerOutput struct {
	Question       string         `json:"question" yaml:"question"`
	RewrittenQuery string         `json:"rewritten_query,omitempty" yaml:"rewritten_query,omitempty"`
	Answer         string         `json:"answer" yaml:"answer"`
	Sources        []sourceOutput `json:"sources" yaml:"sources"`
}

func newAnswerOutput(a *domain.Answer) answerOutput {
	out := answerOutput{
		Question: a.Question,
		Answer:   a.Text,
		Sources:  make([]sourceOutput, 0, len(a.Citations)),
	}
	if a.RewrittenQuery != a.Question {
		out.RewrittenQuery = a.RewrittenQuery
	}
	for _, c := range a.Citations {
		out.Sources = append(out.Sources, sourceOutput{Name: c.Name, Page: c.Page, Path: c.Source})
	}
	return out
}

// lockedWriter serialises writes from the chat loop and the folder watcher.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
