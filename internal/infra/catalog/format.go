package catalog

import (
	"fmt"
	"strings"

	"context7mcp/internal/domain"
)

const blockSeparator = "\n----------\n"

// FormatSearchResults renders search hits as human-readable blocks. Title,
// ID, and Description always appear; snippet count, trust score, and
// versions only when present. Empty input yields an empty string.
func FormatSearchResults(result domain.SearchResult) string {
	blocks := make([]string, 0, len(result.Results))
	for _, hit := range result.Results {
		lines := []string{
			"- Title: " + hit.Title,
			"- ID: " + hit.ID,
			"- Description: " + hit.Description,
		}
		if hit.TotalSnippets > 0 {
			lines = append(lines, fmt.Sprintf("- Code Snippets: %d", hit.TotalSnippets))
		}
		if hit.TrustScore != 0 {
			lines = append(lines, fmt.Sprintf("- Trust Score: %g", hit.TrustScore))
		}
		if len(hit.Versions) > 0 {
			lines = append(lines, "- Versions: "+strings.Join(hit.Versions, ", "))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, blockSeparator)
}
