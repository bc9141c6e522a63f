// Package providers implements provider specific OAuth clients.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-kratos/kratos/v2/log"
)

// maxResponseBytes bounds provider responses read into memory.
const maxResponseBytes = 1 << 20

// HTTPError is a non-200 provider response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("OAuth error (HTTP %d): %s", e.StatusCode, e.Body)
}

// BaseProvider 提供通用的 OAuth Provider 功能
// 持有共享的 HTTP 客户端，负责发送请求和解析 JSON 响应
type BaseProvider struct {
	client *http.Client
	logger *log.Helper
}

// NewBaseProvider 创建 BaseProvider 实例
func NewBaseProvider(client *http.Client, logger log.Logger) *BaseProvider {
	return &BaseProvider{
		client: client,
		logger: log.NewHelper(logger),
	}
}

// DoJSONRequest sends a body-less request and decodes a JSON response into respBody.
// headers may be nil; respBody may be nil when the caller only needs the status.
func (b *BaseProvider) DoJSONRequest(
	ctx context.Context,
	method, url string,
	headers map[string]string,
	respBody interface{},
) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		b.logger.Warnf("provider request %s %s failed with HTTP %d", method, url, resp.StatusCode)
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(respData)}
	}

	if respBody != nil {
		if err := json.Unmarshal(respData, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// HTTPClient returns the shared client.
func (b *BaseProvider) HTTPClient() *http.Client {
	return b.client
}
