// Package config loads and watches the process configuration. The file is
// YAML with ${ENV} expansion; every value has a default so a minimal file
// (or none at all, with environment variables) is enough to start.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"context7mcp/internal/domain"
	"context7mcp/internal/infra/identity"
)

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CONTEXT7")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream.baseURL", domain.DefaultUpstreamBaseURL)
	v.SetDefault("upstream.apiKey", "")
	v.SetDefault("upstream.clientIPEncryptionKey", "")
	v.SetDefault("upstream.defaultTokens", domain.DefaultTokens)
	v.SetDefault("upstream.minimumTokens", domain.DefaultMinimumTokens)
	v.SetDefault("upstream.requestTimeoutSeconds", domain.DefaultRequestTimeoutSeconds)
	v.SetDefault("fanout.maxConcurrent", domain.DefaultFanOutMaxConcurrent)
	v.SetDefault("http.addr", domain.DefaultHTTPAddr)
	v.SetDefault("http.path", domain.DefaultHTTPPath)
	v.SetDefault("http.token", "")
	v.SetDefault("http.allowedOrigins", []string{})
	v.SetDefault("http.jsonResponse", false)
	v.SetDefault("http.tls.enabled", false)
	v.SetDefault("http.tls.certFile", "")
	v.SetDefault("http.tls.keyFile", "")
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.enableMetrics", true)
	v.SetDefault("observability.traceEndpoint", "")
}

type rawConfig struct {
	Upstream struct {
		BaseURL               string `mapstructure:"baseURL"`
		APIKey                string `mapstructure:"apiKey"`
		ClientIPEncryptionKey string `mapstructure:"clientIPEncryptionKey"`
		DefaultTokens         int    `mapstructure:"defaultTokens"`
		MinimumTokens         int    `mapstructure:"minimumTokens"`
		RequestTimeoutSeconds int    `mapstructure:"requestTimeoutSeconds"`
	} `mapstructure:"upstream"`
	FanOut struct {
		MaxConcurrent int `mapstructure:"maxConcurrent"`
	} `mapstructure:"fanout"`
	HTTP struct {
		Addr           string   `mapstructure:"addr"`
		Path           string   `mapstructure:"path"`
		Token          string   `mapstructure:"token"`
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
		JSONResponse   bool     `mapstructure:"jsonResponse"`
		TLS            struct {
			Enabled  bool   `mapstructure:"enabled"`
			CertFile string `mapstructure:"certFile"`
			KeyFile  string `mapstructure:"keyFile"`
		} `mapstructure:"tls"`
	} `mapstructure:"http"`
	Observability struct {
		ListenAddress string `mapstructure:"listenAddress"`
		EnableMetrics bool   `mapstructure:"enableMetrics"`
		TraceEndpoint string `mapstructure:"traceEndpoint"`
	} `mapstructure:"observability"`
}

// Load reads, expands, decodes, and validates the config file. An empty
// path loads defaults plus CONTEXT7_* environment overrides only.
func (l *Loader) Load(ctx context.Context, path string) (domain.Config, error) {
	v := newConfigViper()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		expanded, missing, err := expandConfigEnv(data)
		if err != nil {
			return domain.Config{}, err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config",
				zap.String("path", path), zap.Strings("missing", missing))
		}
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return domain.Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Config{}, err
	}

	cfg := normalize(raw)
	if errs := validate(cfg); len(errs) > 0 {
		return domain.Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalize(raw rawConfig) domain.Config {
	return domain.Config{
		Upstream: domain.UpstreamConfig{
			BaseURL:               strings.TrimRight(strings.TrimSpace(raw.Upstream.BaseURL), "/"),
			APIKey:                strings.TrimSpace(raw.Upstream.APIKey),
			ClientIPEncryptionKey: strings.TrimSpace(raw.Upstream.ClientIPEncryptionKey),
			DefaultTokens:         raw.Upstream.DefaultTokens,
			MinimumTokens:         raw.Upstream.MinimumTokens,
			RequestTimeoutSeconds: raw.Upstream.RequestTimeoutSeconds,
		},
		FanOut: domain.FanOutConfig{
			MaxConcurrent: raw.FanOut.MaxConcurrent,
		},
		HTTP: domain.HTTPConfig{
			Addr:           strings.TrimSpace(raw.HTTP.Addr),
			Path:           strings.TrimSpace(raw.HTTP.Path),
			Token:          strings.TrimSpace(raw.HTTP.Token),
			AllowedOrigins: raw.HTTP.AllowedOrigins,
			JSONResponse:   raw.HTTP.JSONResponse,
			TLS: domain.TLSConfig{
				Enabled:  raw.HTTP.TLS.Enabled,
				CertFile: strings.TrimSpace(raw.HTTP.TLS.CertFile),
				KeyFile:  strings.TrimSpace(raw.HTTP.TLS.KeyFile),
			},
		},
		Observability: domain.ObservabilityConfig{
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
			EnableMetrics: raw.Observability.EnableMetrics,
			TraceEndpoint: strings.TrimSpace(raw.Observability.TraceEndpoint),
		},
	}
}

func validate(cfg domain.Config) []string {
	var errs []string

	if cfg.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.baseURL is required")
	} else if parsed, err := url.ParseRequestURI(cfg.Upstream.BaseURL); err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		errs = append(errs, "upstream.baseURL must be a valid http(s) URL")
	}

	if cfg.Upstream.ClientIPEncryptionKey == "" {
		errs = append(errs, "upstream.clientIPEncryptionKey is required")
	} else if _, err := identity.NewEncryptor(cfg.Upstream.ClientIPEncryptionKey); err != nil {
		errs = append(errs, "upstream.clientIPEncryptionKey must be 16, 24, or 32 hex-encoded bytes")
	}

	if cfg.Upstream.DefaultTokens <= 0 {
		errs = append(errs, "upstream.defaultTokens must be > 0")
	}
	if cfg.Upstream.MinimumTokens <= 0 {
		errs = append(errs, "upstream.minimumTokens must be > 0")
	}
	if cfg.Upstream.MinimumTokens > 0 && cfg.Upstream.DefaultTokens > 0 && cfg.Upstream.MinimumTokens > cfg.Upstream.DefaultTokens {
		errs = append(errs, "upstream.minimumTokens must be <= upstream.defaultTokens")
	}
	if cfg.Upstream.RequestTimeoutSeconds <= 0 {
		errs = append(errs, "upstream.requestTimeoutSeconds must be > 0")
	}

	if cfg.FanOut.MaxConcurrent < 1 {
		errs = append(errs, "fanout.maxConcurrent must be >= 1")
	}

	if cfg.HTTP.Path != "" && !strings.HasPrefix(cfg.HTTP.Path, "/") {
		errs = append(errs, "http.path must start with /")
	}
	if cfg.HTTP.TLS.Enabled && (cfg.HTTP.TLS.CertFile == "" || cfg.HTTP.TLS.KeyFile == "") {
		errs = append(errs, "http.tls.certFile and http.tls.keyFile are required when http.tls.enabled is true")
	}

	return errs
}
