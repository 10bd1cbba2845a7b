package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"context7mcp/internal/domain"
	"context7mcp/internal/infra/catalog"
)

type resolveLibraryIDArgs struct {
	LibraryName string `json:"libraryName"`
}

type getLibraryDocsArgs struct {
	LibraryID string `json:"libraryID"`
	Tokens    int    `json:"tokens"`
	Topic     string `json:"topic"`
}

type resolveMultipleLibraryIDsArgs struct {
	LibraryNames []string `json:"libraryNames"`
}

type getMultipleLibraryDocsArgs struct {
	LibraryIDs []string `json:"libraryIDs"`
	Tokens     []int    `json:"tokens"`
	Topics     []string `json:"topics"`
}

func (g *Gateway) handleGetDefaultPrompt(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g.logger.Debug("tool call", zap.String("tool", "get_default_prompt"))
	return textResult(defaultPrompt), nil
}

func (g *Gateway) handleResolveLibraryID(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args resolveLibraryIDArgs
	if result := decodeArgs(req, &args); result != nil {
		return result, nil
	}
	name := strings.TrimSpace(args.LibraryName)
	if name == "" {
		return errorResult("libraryName is required"), nil
	}
	g.logger.Debug("tool call", zap.String("tool", "resolve_library_id"), zap.String("library_name", name))

	res, err := g.catalog.Search(ctx, name, clientAddrFromContext(ctx))
	if err != nil {
		return g.toolError("resolve_library_id", err), nil
	}
	if len(res.Results) == 0 {
		return errorResult("No matching libraries found."), nil
	}
	return textResult(catalog.FormatSearchResults(res)), nil
}

func (g *Gateway) handleGetLibraryDocs(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getLibraryDocsArgs
	if result := decodeArgs(req, &args); result != nil {
		return result, nil
	}
	if strings.TrimSpace(args.LibraryID) == "" {
		return errorResult("libraryID is required"), nil
	}
	g.logger.Debug("tool call", zap.String("tool", "get_library_docs"),
		zap.String("library_id", args.LibraryID), zap.String("topic", args.Topic))

	text, found, err := g.catalog.FetchDocs(ctx, domain.DocRequest{
		LibraryID: args.LibraryID,
		Tokens:    args.Tokens,
		Topic:     args.Topic,
	}, clientAddrFromContext(ctx))
	if err != nil {
		return g.toolError("get_library_docs", err), nil
	}
	if !found {
		return errorResult("Documentation not found."), nil
	}
	return textResult(text), nil
}

func (g *Gateway) handleResolveMultipleLibraryIDs(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args resolveMultipleLibraryIDsArgs
	if result := decodeArgs(req, &args); result != nil {
		return result, nil
	}
	if len(args.LibraryNames) == 0 {
		return errorResult("libraryNames must not be empty"), nil
	}
	g.logger.Debug("tool call", zap.String("tool", "resolve_multiple_library_ids"),
		zap.Int("count", len(args.LibraryNames)))

	results, err := g.batch.ResolveMany(ctx, args.LibraryNames, clientAddrFromContext(ctx))
	if err != nil {
		return g.toolError("resolve_multiple_library_ids", err), nil
	}
	return multiTextResult(results), nil
}

func (g *Gateway) handleGetMultipleLibraryDocs(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getMultipleLibraryDocsArgs
	if result := decodeArgs(req, &args); result != nil {
		return result, nil
	}
	g.logger.Debug("tool call", zap.String("tool", "get_multiple_library_docs"),
		zap.Int("count", len(args.LibraryIDs)))

	results, err := g.batch.FetchMany(ctx, domain.FetchBatch{
		LibraryIDs: args.LibraryIDs,
		Tokens:     args.Tokens,
		Topics:     args.Topics,
	}, clientAddrFromContext(ctx))
	if err != nil {
		return g.toolError("get_multiple_library_docs", err), nil
	}
	return multiTextResult(results), nil
}

// decodeArgs unmarshals the raw tool arguments, returning a tool error
// result on malformed input. Absent arguments decode to zero values.
func decodeArgs(req *mcp.CallToolRequest, target any) *mcp.CallToolResult {
	raw := req.Params.Arguments
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	return nil
}

// toolError maps a backend failure onto the tool-call boundary.
// Caller-addressable errors carry their message; upstream and unclassified
// failures are logged and reported as a generic internal failure.
func (g *Gateway) toolError(tool string, err error) *mcp.CallToolResult {
	code, ok := domain.CodeFrom(err)
	if ok && code != domain.CodeUnavailable && code != domain.CodeInternal {
		return errorResult(userMessage(err))
	}
	g.logger.Error("tool call failed", zap.String("tool", tool), zap.Error(err))
	return errorResult("Internal server error")
}

func userMessage(err error) string {
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Message != "" {
		return derr.Message
	}
	return err.Error()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// multiTextResult keeps one content block per input index so callers can
// correlate each block with the request that produced it.
func multiTextResult(texts []string) *mcp.CallToolResult {
	content := make([]mcp.Content, len(texts))
	for i, text := range texts {
		content[i] = &mcp.TextContent{Text: text}
	}
	return &mcp.CallToolResult{Content: content}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}
