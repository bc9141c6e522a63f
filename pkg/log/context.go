package log

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const requestContextKey contextKey = "oauthdropins_request_context"

// RequestContext carries per-request tracing data through the handshake.
type RequestContext struct {
	RequestID string
	Provider  string
	ClientIP  string
	StartTime time.Time
}

// GenerateRequestID returns a random request id.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestContext stores a RequestContext in ctx. Usually called from middleware.
func WithRequestContext(ctx context.Context, requestID, provider, clientIP string) context.Context {
	return context.WithValue(ctx, requestContextKey, &RequestContext{
		RequestID: requestID,
		Provider:  provider,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	})
}

// GetRequestContext returns the RequestContext in ctx, or a placeholder so callers never check for nil.
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID 从 Context 中提取 Request ID
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetElapsedTime returns milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
