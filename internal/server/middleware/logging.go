// Package middleware holds kratos middleware for the HTTP server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	pkglog "OAuthDropins/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// RequestIDHeader carries a caller-supplied request id.
const RequestIDHeader = "X-Request-ID"

// Logging 返回一个记录 HTTP 请求日志的中间件
// 自动生成 Request ID、检测慢请求、注入 Request Context
//
// 日志输出示例:
//
//	🟡 GET /reddit/start - 302 (12ms) | RequestID: 6f1c...
//	🐌 [6f1c...] Slow request detected | GET /reddit/oauth_callback | 1840ms
func Logging(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			var (
				method    string
				path      string
				ip        string
				userAgent string
				requestID string
				provider  string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				method = tr.Operation()
				path = tr.Operation()

				if ht, ok := tr.(khttp.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					// the query carries state and code, keep it out of the log
					path = httpReq.URL.Path
					provider = providerFromPath(path)
					ip = extractClientIP(httpReq)
					userAgent = httpReq.Header.Get("User-Agent")
					requestID = httpReq.Header.Get(RequestIDHeader)
				}
			}
			if requestID == "" {
				requestID = pkglog.GenerateRequestID()
			}

			ctx = pkglog.WithRequestContext(ctx, requestID, provider, ip)

			reply, err := handler(ctx, req)

			duration := pkglog.GetElapsedTime(ctx)
			status := extractHTTPStatus(reply, err)

			fields := []interface{}{"ip", ip, "user_agent", userAgent}
			if err != nil {
				se := errors.FromError(err)
				fields = append(fields, "reason", se.Reason, "error", se.Message)
			}
			logger.RequestWithContext(ctx, method, path, status, duration, fields...)

			return reply, err
		}
	}
}

// providerFromPath returns the first path segment, which names the provider on the default routes.
func providerFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i > 0 {
		return trimmed[:i]
	}
	return ""
}

// extractClientIP 从请求中提取客户端真实 IP
// 优先级: X-Real-IP > X-Forwarded-For > RemoteAddr
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	return req.RemoteAddr
}

type statusCoder interface {
	StatusCode() int
}

// extractHTTPStatus 从 Kratos 错误或响应中提取 HTTP 状态码
func extractHTTPStatus(reply interface{}, err error) int {
	if err != nil {
		return int(errors.FromError(err).Code)
	}
	if sc, ok := reply.(statusCoder); ok {
		return sc.StatusCode()
	}
	return http.StatusOK
}
