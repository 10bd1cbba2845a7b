package domain

// Config is the process-wide configuration, loaded once at startup and
// injected into each component. Components never read ambient global state.
type Config struct {
	Upstream      UpstreamConfig      `yaml:"upstream"`
	FanOut        FanOutConfig        `yaml:"fanout"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// UpstreamConfig holds everything the catalog client needs to reach the
// remote Context7 service.
type UpstreamConfig struct {
	BaseURL string `yaml:"baseURL"`
	// APIKey is the optional bearer credential attached to every call.
	APIKey string `yaml:"apiKey"`
	// ClientIPEncryptionKey is the hex-encoded AES key used to encrypt
	// caller addresses. Must decode to 16, 24, or 32 bytes.
	ClientIPEncryptionKey string `yaml:"clientIPEncryptionKey"`
	DefaultTokens         int    `yaml:"defaultTokens"`
	MinimumTokens         int    `yaml:"minimumTokens"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
}

type FanOutConfig struct {
	// MaxConcurrent bounds the number of simultaneous upstream calls a
	// single batch may have in flight.
	MaxConcurrent int `yaml:"maxConcurrent"`
}

type HTTPConfig struct {
	Addr           string    `yaml:"addr"`
	Path           string    `yaml:"path"`
	Token          string    `yaml:"token"`
	AllowedOrigins []string  `yaml:"allowedOrigins"`
	JSONResponse   bool      `yaml:"jsonResponse"`
	TLS            TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

type ObservabilityConfig struct {
	ListenAddress string `yaml:"listenAddress"`
	EnableMetrics bool   `yaml:"enableMetrics"`
	// TraceEndpoint is an optional OTLP/HTTP collector endpoint; empty
	// disables trace export.
	TraceEndpoint string `yaml:"traceEndpoint"`
}

// Redacted returns a copy safe for printing: secret material is replaced
// with a placeholder.
func (c Config) Redacted() Config {
	out := c
	if out.Upstream.APIKey != "" {
		out.Upstream.APIKey = "***"
	}
	if out.Upstream.ClientIPEncryptionKey != "" {
		out.Upstream.ClientIPEncryptionKey = "***"
	}
	if out.HTTP.Token != "" {
		out.HTTP.Token = "***"
	}
	return out
}
