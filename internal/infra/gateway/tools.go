package gateway

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (g *Gateway) registerTools() {
	defaultPromptTool := DefaultPromptTool()
	g.server.AddTool(&defaultPromptTool, g.handleGetDefaultPrompt)

	resolveTool := ResolveLibraryIDTool()
	g.server.AddTool(&resolveTool, g.handleResolveLibraryID)

	docsTool := GetLibraryDocsTool()
	g.server.AddTool(&docsTool, g.handleGetLibraryDocs)

	resolveManyTool := ResolveMultipleLibraryIDsTool()
	g.server.AddTool(&resolveManyTool, g.handleResolveMultipleLibraryIDs)

	docsManyTool := GetMultipleLibraryDocsTool()
	g.server.AddTool(&docsManyTool, g.handleGetMultipleLibraryDocs)
}

// DefaultPromptTool returns the MCP tool definition for get_default_prompt.
func DefaultPromptTool() mcp.Tool {
	return mcp.Tool{
		Name: "get_default_prompt",
		Description: "Provides the default instructional prompt used by the Context7 assistant. " +
			"It describes the overall query-resolution workflow, library matching strategies, " +
			"multi-library handling, and general guidelines to follow while answering software related questions.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	}
}

// ResolveLibraryIDTool returns the MCP tool definition for resolve_library_id.
func ResolveLibraryIDTool() mcp.Tool {
	return mcp.Tool{
		Name: "resolve_library_id",
		Description: "Receives a single library name as input, queries the Context7 search API for matching entries, " +
			"and returns a human-readable summary containing metadata. Each match contains the canonical Context7 " +
			"library ID, title, potential descriptions, trust score, and available versions.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"libraryName": map[string]any{
					"type": "string",
					"description": "The plain name or keyword of the target library to search for within Context7's registry. " +
						"Examples include common project names such as 'FastAPI' or 'SQLAlchemy'.",
				},
			},
			"required": []string{"libraryName"},
		},
	}
}

// GetLibraryDocsTool returns the MCP tool definition for get_library_docs.
func GetLibraryDocsTool() mcp.Tool {
	return mcp.Tool{
		Name: "get_library_docs",
		Description: "Given a valid Context7 library ID, retrieves sections of documentation text. " +
			"Optionally accepts a topic keyword to narrow retrieval and a maximum token budget " +
			"to constrain the size of the response.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"libraryID": map[string]any{
					"type": "string",
					"description": "Canonical Context7 ID string identifying a library. Typically prefixed with a username " +
						"or organization. Example: '/tiangolo/fastapi'.",
				},
				"tokens": map[string]any{
					"type": "integer",
					"description": "Maximum token budget for the returned content. The server enforces a configured minimum, " +
						"so very small requested values are adjusted upwards. Omit to use the configured default.",
				},
				"topic": map[string]any{
					"type": "string",
					"description": "Optional keyword used to filter content to specific documentation topics, " +
						"such as 'async requests' or 'ORM integration'.",
				},
			},
			"required": []string{"libraryID"},
		},
	}
}

// ResolveMultipleLibraryIDsTool returns the MCP tool definition for
// resolve_multiple_library_ids.
func ResolveMultipleLibraryIDsTool() mcp.Tool {
	return mcp.Tool{
		Name: "resolve_multiple_library_ids",
		Description: "Queries multiple library names concurrently against Context7's API. Each string provided in " +
			"'libraryNames' is resolved independently, and results are returned in a list aligned to the request order. " +
			"Each element includes metadata describing ID, title, versions, and trust score if available.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"libraryNames": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
					"description": "List of plain library names or identifiers to search for. Each entry is submitted " +
						"separately to the backend search API.",
				},
			},
			"required": []string{"libraryNames"},
		},
	}
}

// GetMultipleLibraryDocsTool returns the MCP tool definition for
// get_multiple_library_docs.
func GetMultipleLibraryDocsTool() mcp.Tool {
	return mcp.Tool{
		Name: "get_multiple_library_docs",
		Description: "Retrieves documentation for multiple libraries in parallel. Requires equal-length arrays of " +
			"library IDs, token budgets, and topic filters. The result is a list aligned to the input order, " +
			"with fetched documentation or explanatory error messages.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"libraryIDs": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
					"description": "Array of valid Context7 library IDs, such as '/tiangolo/fastapi' or " +
						"'/sqlalchemy/sqlalchemy'. Must correspond index-wise with 'tokens' and 'topics'.",
				},
				"tokens": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "integer"},
					"description": "Array of token budgets, one per library ID. Each integer indicates how many tokens " +
						"to retrieve per documentation query. Must be the same length as 'libraryIDs'.",
				},
				"topics": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
					"description": "Topics array providing query refinements for each library requested. Each entry " +
						"corresponds to the index of 'libraryIDs' and 'tokens'.",
				},
			},
			"required": []string{"libraryIDs", "tokens", "topics"},
		},
	}
}
