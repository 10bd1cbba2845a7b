// Package gateway exposes the catalog operations as MCP tools over stdio
// and streamable HTTP transports.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"context7mcp/internal/buildinfo"
	"context7mcp/internal/domain"
)

// CatalogAPI serves the single-library tools.
type CatalogAPI interface {
	Search(ctx context.Context, name, clientIP string) (domain.SearchResult, error)
	FetchDocs(ctx context.Context, req domain.DocRequest, clientIP string) (string, bool, error)
}

// BatchAPI serves the multi-library tools.
type BatchAPI interface {
	ResolveMany(ctx context.Context, names []string, clientIP string) ([]string, error)
	FetchMany(ctx context.Context, batch domain.FetchBatch, clientIP string) ([]string, error)
}

type Gateway struct {
	cfg     domain.HTTPConfig
	catalog CatalogAPI
	batch   BatchAPI
	logger  *zap.Logger
	server  *mcp.Server
}

const shutdownTimeout = 5 * time.Second

func NewGateway(catalog CatalogAPI, batch BatchAPI, cfg domain.HTTPConfig, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		cfg:     cfg,
		catalog: catalog,
		batch:   batch,
		logger:  logger.Named("gateway"),
	}

	g.server = mcp.NewServer(&mcp.Implementation{
		Name:    "context7mcp",
		Version: buildinfo.Version,
	}, &mcp.ServerOptions{
		HasTools:   true,
		HasPrompts: true,
	})
	g.registerTools()
	g.registerPrompts()
	return g
}

// Server exposes the underlying MCP server for in-process connections.
func (g *Gateway) Server() *mcp.Server {
	return g.server
}

func (g *Gateway) Run(ctx context.Context) error {
	g.logger.Info("gateway starting (stdio transport)")
	return g.server.Run(ctx, &mcp.StdioTransport{})
}

// RunStreamableHTTP serves the MCP endpoint over HTTP until ctx is
// cancelled. Middleware order, outermost first: CORS, bearer token,
// client address capture.
func (g *Gateway) RunStreamableHTTP(ctx context.Context) error {
	if g.cfg.Addr == "" {
		return errors.New("http address is required")
	}

	var handler http.Handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return g.server
	}, &mcp.StreamableHTTPOptions{JSONResponse: g.cfg.JSONResponse})

	handler = withClientAddr(handler)
	if g.cfg.Token != "" {
		handler = withBearerToken(g.cfg.Token, handler)
	}
	if len(g.cfg.AllowedOrigins) > 0 {
		handler = withAllowedOrigins(g.cfg.AllowedOrigins, handler)
	}

	path := g.cfg.Path
	if path == "" {
		path = domain.DefaultHTTPPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := &http.Server{
		Addr:    g.cfg.Addr,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		if g.cfg.TLS.Enabled {
			errCh <- srv.ListenAndServeTLS(g.cfg.TLS.CertFile, g.cfg.TLS.KeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()
	g.logger.Info("gateway starting (streamable http transport)",
		zap.String("addr", g.cfg.Addr),
		zap.String("path", path),
		zap.Bool("tls", g.cfg.TLS.Enabled))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("gateway shutdown incomplete", zap.Error(err))
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func withBearerToken(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withAllowedOrigins(origins []string, next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			_, ok := allowed[origin]
			if !ok && !allowAll {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Mcp-Session-Id, Mcp-Protocol-Version")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
