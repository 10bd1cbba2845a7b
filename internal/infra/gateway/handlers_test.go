package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"context7mcp/internal/domain"
	"context7mcp/internal/infra/fanout"
)

type fakeCatalog struct {
	hits    map[string][]domain.SearchHit
	docs    map[string]string
	failure error
}

func (f *fakeCatalog) Search(ctx context.Context, name, _ string) (domain.SearchResult, error) {
	if f.failure != nil {
		return domain.SearchResult{}, f.failure
	}
	return domain.SearchResult{StatusCode: 200, Results: f.hits[name]}, nil
}

func (f *fakeCatalog) FetchDocs(ctx context.Context, req domain.DocRequest, _ string) (string, bool, error) {
	if f.failure != nil {
		return "", false, f.failure
	}
	text, ok := f.docs[req.LibraryID]
	return text, ok, nil
}

func newTestGateway(t *testing.T, catalog *fakeCatalog) (*Gateway, *mcp.ClientSession) {
	t.Helper()
	batch := fanout.NewCoordinator(catalog, domain.FanOutConfig{MaxConcurrent: 4}, nil, zap.NewNop())
	g := NewGateway(catalog, batch, domain.HTTPConfig{}, zap.NewNop())
	session := connectClient(t, g.Server())
	return g, session
}

func connectClient(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestGateway_ListsAllTools(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{})

	res, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make(map[string]*mcp.Tool, len(res.Tools))
	for _, tool := range res.Tools {
		names[tool.Name] = tool
	}
	for _, want := range []string{
		"get_default_prompt",
		"resolve_library_id",
		"get_library_docs",
		"resolve_multiple_library_ids",
		"get_multiple_library_docs",
	} {
		require.Contains(t, names, want)
	}

	// Every advertised input schema must decode as a JSON Schema object.
	for name, tool := range names {
		raw, err := json.Marshal(tool.InputSchema)
		require.NoError(t, err, name)
		var schema jsonschema.Schema
		require.NoError(t, json.Unmarshal(raw, &schema), name)
		require.Equal(t, "object", schema.Type, name)
	}
}

func TestResolveLibraryID_FormatsMatches(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{
		hits: map[string][]domain.SearchHit{
			"fastapi": {{Title: "FastAPI", ID: "/tiangolo/fastapi", Description: "Web framework"}},
		},
	})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_library_id",
		Arguments: map[string]any{"libraryName": "fastapi"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := resultText(t, res)
	require.Contains(t, text, "- Title: FastAPI")
	require.Contains(t, text, "- ID: /tiangolo/fastapi")
}

func TestResolveLibraryID_NoMatches(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_library_id",
		Arguments: map[string]any{"libraryName": "nonexistent"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "No matching libraries found.", resultText(t, res))
}

func TestResolveLibraryID_MissingName(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_library_id",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "libraryName is required", resultText(t, res))
}

func TestGetLibraryDocs_ReturnsText(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{
		docs: map[string]string{"/tiangolo/fastapi": "routing docs"},
	})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "get_library_docs",
		Arguments: map[string]any{
			"libraryID": "/tiangolo/fastapi",
			"tokens":    2500,
			"topic":     "routing",
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, "routing docs", resultText(t, res))
}

func TestGetLibraryDocs_Absent(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_library_docs",
		Arguments: map[string]any{"libraryID": "/missing/lib"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "Documentation not found.", resultText(t, res))
}

func TestResolveMultipleLibraryIDs_OneBlockPerName(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{
		hits: map[string][]domain.SearchHit{
			"fastapi":    {{Title: "FastAPI", ID: "/tiangolo/fastapi"}},
			"sqlalchemy": {{Title: "SQLAlchemy", ID: "/sqlalchemy/sqlalchemy"}},
		},
	})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_multiple_library_ids",
		Arguments: map[string]any{"libraryNames": []string{"fastapi", "sqlalchemy"}},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 2)

	first, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.Contains(t, first.Text, "/tiangolo/fastapi")
	second, ok := res.Content[1].(*mcp.TextContent)
	require.True(t, ok)
	require.Contains(t, second.Text, "/sqlalchemy/sqlalchemy")
}

func TestResolveMultipleLibraryIDs_FailFastMessageCarriesAllNames(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{
		hits: map[string][]domain.SearchHit{
			"fastapi": {{Title: "FastAPI", ID: "/tiangolo/fastapi"}},
		},
	})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_multiple_library_ids",
		Arguments: map[string]any{"libraryNames": []string{"fastapi", "unknown"}},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	text := resultText(t, res)
	require.Contains(t, text, "fastapi")
	require.Contains(t, text, "unknown")
}

func TestGetMultipleLibraryDocs_BestEffortPlaceholders(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{
		docs: map[string]string{"/tiangolo/fastapi": "fastapi docs"},
	})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "get_multiple_library_docs",
		Arguments: map[string]any{
			"libraryIDs": []string{"/tiangolo/fastapi", "/missing/lib"},
			"tokens":     []int{2500, 2500},
			"topics":     []string{"routing", "none"},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 2)

	second, ok := res.Content[1].(*mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, "Documentation not found for /missing/lib with topic 'none'.", second.Text)
}

func TestGetMultipleLibraryDocs_LengthMismatch(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "get_multiple_library_docs",
		Arguments: map[string]any{
			"libraryIDs": []string{"a", "b"},
			"tokens":     []int{1},
			"topics":     []string{"x", "y"},
		},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "must match")
}

func TestToolError_UpstreamFailureIsGeneric(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{failure: errors.New("connection refused")})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_multiple_library_ids",
		Arguments: map[string]any{"libraryNames": []string{"fastapi"}},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "Internal server error", resultText(t, res))
}

func TestToolError_UnclassifiedIsGeneric(t *testing.T) {
	catalog := &fakeCatalog{failure: errors.New("socket buffer exhausted")}
	g := NewGateway(catalog, &staticBatch{err: errors.New("socket buffer exhausted")}, domain.HTTPConfig{}, zap.NewNop())
	session := connectClient(t, g.Server())

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_multiple_library_ids",
		Arguments: map[string]any{"libraryNames": []string{"fastapi"}},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "Internal server error", resultText(t, res))
}

func TestGetDefaultPrompt_ToolAndPromptAgree(t *testing.T) {
	_, session := newTestGateway(t, &fakeCatalog{})
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "get_default_prompt"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	toolText := resultText(t, res)
	require.Contains(t, toolText, "Library Identification")

	prompt, err := session.GetPrompt(ctx, &mcp.GetPromptParams{Name: "default_prompt"})
	require.NoError(t, err)
	require.Len(t, prompt.Messages, 1)
	content, ok := prompt.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, toolText, content.Text)
}

type staticBatch struct {
	resolved []string
	fetched  []string
	err      error
}

func (s *staticBatch) ResolveMany(ctx context.Context, names []string, _ string) ([]string, error) {
	return s.resolved, s.err
}

func (s *staticBatch) FetchMany(ctx context.Context, batch domain.FetchBatch, _ string) ([]string, error) {
	return s.fetched, s.err
}
