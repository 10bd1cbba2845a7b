package gateway

import (
	"context"
	"net"
	"net/http"
)

type clientAddrKey struct{}

// withClientAddr records the remote peer address on the request context so
// tool handlers can forward it upstream. Stdio sessions have no peer; the
// lookup then reports empty and no identity header is sent.
func withClientAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "" {
			r = r.WithContext(context.WithValue(r.Context(), clientAddrKey{}, host))
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddrFromContext(ctx context.Context) string {
	addr, _ := ctx.Value(clientAddrKey{}).(string)
	return addr
}
