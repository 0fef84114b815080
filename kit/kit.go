// Package kit holds transport-agnostic endpoint plumbing shared by the
// HTTP and MCP surfaces: the Endpoint shape, request-scoped context
// accessors, and MCP tool registration.
package kit

import "context"

// Endpoint is the transport-agnostic handler shape. Transports decode
// their wire format into a typed request, call the endpoint, and encode
// the response.
type Endpoint func(ctx context.Context, req any) (any, error)

type contextKey string

const (
	// TransportKey identifies the ingress transport: "http" or "mcp".
	TransportKey contextKey = "kit_transport"
	// RequestIDKey carries the per-request ID assigned at ingress.
	RequestIDKey contextKey = "kit_request_id"
	// RemoteAddrKey carries the peer address for HTTP requests.
	RemoteAddrKey contextKey = "kit_remote_addr"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}

func GetRemoteAddr(ctx context.Context) string {
	v, _ := ctx.Value(RemoteAddrKey).(string)
	return v
}
