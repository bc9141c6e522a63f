package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// SlowRequestThresholdMs marks requests that deserve a warning.
const SlowRequestThresholdMs int64 = 1000

// LogHelper 扩展 Kratos log.Helper，提供便捷的日志方法
// 每个方法会附加 "type" 字段，EmojiConsoleEncoder 据此选择表情符号
type LogHelper struct {
	*log.Helper
}

// NewLogHelper 创建增强的日志辅助器
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func typed(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := append([]interface{}{log.DefaultMessageKey, msg}, kvs...)
	return append(allKvs, "type", logType)
}

// OAuth 记录 OAuth 握手日志（🔐）
func (h *LogHelper) OAuth(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "oauth", kvs)...)
}

// Security logs rejected or suspicious callbacks (🔒).
func (h *LogHelper) Security(msg string, kvs ...interface{}) {
	h.Warnw(typed(msg, "security", kvs)...)
}

// Credential logs credential writes (🎫).
func (h *LogHelper) Credential(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "credential", kvs)...)
}

// Database 记录数据库操作日志（💾）
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(typed(msg, "database", kvs)...)
}

// Redis 记录 Redis 操作日志（📦）
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.Debugw(typed(msg, "redis", kvs)...)
}

// Startup 记录启动相关日志（🚀）
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "startup", kvs)...)
}

// SlowRequest 记录慢请求警告（🐌）
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)

	h.Warnw(typed(msg, "slow_request", append(kvs,
		"request_id", reqCtx.RequestID,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
	))...)
}

// RequestWithContext logs a finished HTTP request with the request id from ctx,
// and emits a slow request warning past SlowRequestThresholdMs.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s",
		method, url, status, durationMs, reqCtx.RequestID)

	allKvs := append(kvs,
		"request_id", reqCtx.RequestID,
		"provider", reqCtx.Provider,
		"client_ip", reqCtx.ClientIP,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	if status >= 500 {
		h.Errorw(typed(msg, "request", allKvs)...)
	} else {
		h.Infow(typed(msg, "request", allKvs)...)
	}

	if durationMs > SlowRequestThresholdMs {
		h.SlowRequest(ctx, method, url, durationMs, SlowRequestThresholdMs)
	}
}
