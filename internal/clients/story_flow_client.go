package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storyteller-server/shared/interfaces"
	"storyteller-server/shared/models"

	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.StoryFlowClient = (*storyFlowClient)(nil)

type storyFlowClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewStoryFlowClient создает клиент внешнего генератора повествования.
func NewStoryFlowClient(baseURL string, timeout time.Duration, logger *zap.Logger) (interfaces.StoryFlowClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for story flow service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &storyFlowClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("StoryFlowClient"),
	}, nil
}

// postJSON выполняет POST с JSON телом и декодирует ответ в out.
func (c *storyFlowClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("Story flow service returned non-OK status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("%w: unexpected status %d", models.ErrGenerationFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", models.ErrGenerationFailed, err)
	}
	return nil
}

func (c *storyFlowClient) GenerateBeat(ctx context.Context, req models.BeatRequest) (*models.BeatResponse, error) {
	var resp models.BeatResponse
	if err := c.postJSON(ctx, "/v1/beat", req, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		c.logger.Warn("Story flow beat generation rejected",
			zap.String("sessionID", req.SessionID),
			zap.String("errorMessage", resp.ErrorMessage))
		return nil, fmt.Errorf("%w: %s", models.ErrGenerationFailed, resp.ErrorMessage)
	}
	return &resp, nil
}

func (c *storyFlowClient) GenerateEndings(ctx context.Context, sessionID string) (*models.EndingsResponse, error) {
	body := map[string]string{"sessionId": sessionID}
	var resp models.EndingsResponse
	if err := c.postJSON(ctx, "/v1/endings", body, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		c.logger.Warn("Story flow endings generation rejected",
			zap.String("sessionID", sessionID),
			zap.String("errorMessage", resp.ErrorMessage))
		return nil, fmt.Errorf("%w: %s", models.ErrGenerationFailed, resp.ErrorMessage)
	}
	return &resp, nil
}

func (c *storyFlowClient) FinalizeStory(ctx context.Context, sessionID, endingID string) (*models.BeatResponse, error) {
	body := map[string]string{"sessionId": sessionID, "endingId": endingID}
	var resp models.BeatResponse
	if err := c.postJSON(ctx, "/v1/finalize", body, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		c.logger.Warn("Story flow finalize rejected",
			zap.String("sessionID", sessionID),
			zap.String("errorMessage", resp.ErrorMessage))
		return nil, fmt.Errorf("%w: %s", models.ErrGenerationFailed, resp.ErrorMessage)
	}
	return &resp, nil
}
