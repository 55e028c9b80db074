package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"storyteller-server/shared/interfaces"
	"storyteller-server/shared/models"

	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.CompileClient = (*compileClient)(nil)

type compileClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCompileClient создает клиент компилятора книги.
func NewCompileClient(baseURL string, timeout time.Duration, logger *zap.Logger) (interfaces.CompileClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for compile service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &compileClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("CompileClient"),
	}, nil
}

func (c *compileClient) Compile(ctx context.Context, req models.CompileRequest) (*models.CompileResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compile request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/compile", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCompileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Compile service returned non-OK status",
			zap.String("sessionID", req.SessionID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: unexpected status %d", models.ErrCompileFailed, resp.StatusCode)
	}

	var result models.CompileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", models.ErrCompileFailed, err)
	}
	if !result.OK {
		return nil, fmt.Errorf("%w: %s", models.ErrCompileFailed, result.ErrorMessage)
	}
	return &result, nil
}
