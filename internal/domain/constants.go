package domain

const (
	DefaultUpstreamBaseURL       = "https://context7.com/api"
	DefaultTokens                = 5000
	DefaultMinimumTokens         = 1000
	DefaultRequestTimeoutSeconds = 30
	DefaultFanOutMaxConcurrent   = 8

	DefaultHTTPAddr = "127.0.0.1:8090"
	DefaultHTTPPath = "/mcp"

	DefaultObservabilityListenAddress = "0.0.0.0:9090"
)

// Header names and fixed values used on outbound catalog requests.
const (
	HeaderClientIP      = "mcp-client-ip"
	HeaderAuthorization = "Authorization"
	HeaderSource        = "X-Context7-Source"
	SourceName          = "mcp-server"

	// DocContentType is the fixed type parameter sent on documentation
	// fetches; the upstream also supports json, which we never request.
	DocContentType = "txt"
)
