package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for session resources.
	uriScheme = "sercha-rag://"

	historyURI = uriScheme + "history"
	sessionURI = uriScheme + "session"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         historyURI,
		Name:        "history",
		Description: "Conversation history of the session",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	s.server.AddResource(&mcp.Resource{
		URI:         sessionURI,
		Name:        "session",
		Description: "Session identifier, folder and index size",
		MIMEType:    "application/json",
	}, s.handleSessionResource)
}

// handleHistoryResource returns the conversation turns in order.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	turns, err := s.ports.Session.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	type turnInfo struct {
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}

	infos := make([]turnInfo, len(turns))
	for i, t := range turns {
		infos[i] = turnInfo{Role: t.Role, Content: t.Content, CreatedAt: t.CreatedAt}
	}

	return jsonResult(req.Params.URI, infos)
}

// handleSessionResource describes the session.
func (s *Server) handleSessionResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	info := struct {
		ID     string `json:"id"`
		Folder string `json:"folder"`
		Chunks int    `json:"chunks"`
	}{
		ID:     s.ports.Session.ID(),
		Folder: s.ports.Session.Folder(),
		Chunks: s.ports.Session.ChunkCount(),
	}

	return jsonResult(req.Params.URI, info)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
