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
var _ interfaces.CharacterClient = (*characterClient)(nil)

type characterClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCharacterClient создает клиент сервиса персонажей.
func NewCharacterClient(baseURL string, timeout time.Duration, logger *zap.Logger) (interfaces.CharacterClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for character service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &characterClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("CharacterClient"),
	}, nil
}

func (c *characterClient) CreateCharacter(ctx context.Context, req models.CreateCharacterRequest) (*models.CreateCharacterResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal character request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/characters", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("character service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Warn("Character service returned non-OK status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("character service returned status %d", resp.StatusCode)
	}

	var result models.CreateCharacterResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode character response: %w", err)
	}
	if !result.OK || result.CharacterID == "" {
		return nil, fmt.Errorf("character creation rejected: %s", result.ErrorMessage)
	}
	return &result, nil
}
