package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Paths []string `json:"paths" jsonschema:"absolute paths of the files to upload (pdf, txt or md)"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	Files       []FileOutput `json:"files"`
	ChunksAdded int          `json:"chunks_added"`
	TotalChunks int          `json:"total_chunks"`
	Summary     string       `json:"summary"`
}

// FileOutput is the outcome of one uploaded file.
type FileOutput struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// QuestionInput is the input schema for the retrieve and ask tools.
type QuestionInput struct {
	Question string `json:"question" jsonschema:"the question, possibly a follow-up to earlier ones"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Query    string          `json:"query"`
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput is a single retrieved passage.
type PassageOutput struct {
	Content string `json:"content"`
	Name    string `json:"name"`
	Page    int    `json:"page"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer         string   `json:"answer"`
	RewrittenQuery string   `json:"rewritten_query"`
	Sources        []string `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Upload files into the session index",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the passages most relevant to a question",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the uploaded files, with citations",
	}, s.handleAsk)
}

// handleIngest handles the ingest tool invocation.
// Files that fail to load are reported per file; the call only fails when
// nothing could be indexed.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if len(input.Paths) == 0 {
		return nil, IngestOutput{}, errors.New("no paths given")
	}

	blobs := make([]domain.FileBlob, len(input.Paths))
	for i, p := range input.Paths {
		blobs[i] = domain.FileBlob{Path: p}
	}

	report, err := s.ports.Session.Ingest(ctx, blobs)
	if err != nil {
		if report != nil {
			return nil, IngestOutput{}, fmt.Errorf("%w\n%s", err, report.Summary())
		}
		return nil, IngestOutput{}, err
	}

	output := IngestOutput{
		Files:       make([]FileOutput, len(report.Files)),
		ChunksAdded: report.ChunksAdded,
		TotalChunks: report.TotalChunks,
		Summary:     report.Summary(),
	}
	for i, f := range report.Files {
		output.Files[i] = FileOutput{Name: f.Name, Pages: len(f.Documents)}
		if f.Err != nil {
			output.Files[i].Error = f.Err.Error()
		}
	}

	return nil, output, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	chunks, query, err := s.ports.Session.Retrieve(ctx, input.Question)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Query:    query,
		Passages: make([]PassageOutput, len(chunks)),
		Count:    len(chunks),
	}
	for i := range chunks {
		output.Passages[i] = PassageOutput{
			Content: chunks[i].Content,
			Name:    chunks[i].Metadata.Name,
			Page:    chunks[i].Metadata.Page + 1,
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation. The answer is returned whole.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Session.Ask(ctx, input.Question, nil)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:         answer.Text,
		RewrittenQuery: answer.RewrittenQuery,
		Sources:        make([]string, len(answer.Citations)),
	}
	for i, c := range answer.Citations {
		output.Sources[i] = c.Label()
	}

	return nil, output, nil
}
