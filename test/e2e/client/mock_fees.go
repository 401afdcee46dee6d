package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MockFeesClient reads call statistics from the mock fee service.
type MockFeesClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMockFeesClient creates a new client for the mock fee service.
func NewMockFeesClient(baseURL string) *MockFeesClient {
	return &MockFeesClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// MockStats contains call statistics from the mock fee service.
type MockStats struct {
	TotalCalls  int64            `json:"total_calls"`
	CallsByCode map[string]int64 `json:"calls_by_code"`
}

// GetStats retrieves call statistics from the mock fee service.
func (c *MockFeesClient) GetStats(ctx context.Context) (*MockStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var stats MockStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &stats, nil
}
