package domain

// SearchHit is one entry of the catalog's search response. Produced by the
// remote service, consumed once by the formatter; never mutated.
type SearchHit struct {
	Title         string   `json:"title"`
	ID            string   `json:"id"`
	Description   string   `json:"description"`
	TotalSnippets int      `json:"totalSnippets,omitempty"`
	TrustScore    float64  `json:"trustScore,omitempty"`
	Versions      []string `json:"versions,omitempty"`
}

// SearchResult is the decoded body of the catalog search endpoint.
// StatusCode carries the upstream status for non-success responses, which
// are reported as an empty result set rather than an error; callers decide
// whether emptiness means "not found".
type SearchResult struct {
	Results []SearchHit `json:"results"`
	Error   string      `json:"error,omitempty"`

	StatusCode int `json:"-"`
}

// DocRequest describes a single documentation fetch. LibraryID may carry a
// leading path separator; the client strips exactly one before transmission.
// Tokens below the configured minimum are clamped upward.
type DocRequest struct {
	LibraryID string
	Tokens    int
	Topic     string
}

// FetchBatch is the aligned-sequence form of a multi-library fetch. All
// three slices must have equal length; this is validated before any
// upstream call is dispatched.
type FetchBatch struct {
	LibraryIDs []string
	Tokens     []int
	Topics     []string
}

func (b FetchBatch) Len() int { return len(b.LibraryIDs) }

func (b FetchBatch) Aligned() bool {
	return len(b.LibraryIDs) == len(b.Tokens) && len(b.Tokens) == len(b.Topics)
}
