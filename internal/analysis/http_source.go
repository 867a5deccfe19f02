package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge-agent/internal/clips"
)

// RequestError represents a non-2xx response from the analysis service.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("analysis request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *RequestError) IsRetryable() bool {
	return e.StatusCode >= 500
}

type analyzeResponse struct {
	Clips []clips.Clip `json:"clips"`
}

// HTTPSource asks a remote analysis service for clip candidates.
type HTTPSource struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPSource(baseURL, token string, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (s *HTTPSource) Clips(ctx context.Context, req Request) ([]clips.Clip, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	url := fmt.Sprintf("%s/api/analyze", s.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Clipforge-Request-Id", uuid.NewString())
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	s.logger.Info("requesting clip analysis", "url", url, "file_name", req.FileName, "size", req.Size)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	var result analyzeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}

	seen := make(map[string]bool, len(result.Clips))
	for _, c := range result.Clips {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid analysis response: %w", err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("invalid analysis response: duplicate clip id %s", c.ID)
		}
		seen[c.ID] = true
	}

	s.logger.Info("clip analysis received", "file_name", req.FileName, "clip_count", len(result.Clips))
	return result.Clips, nil
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	end := maxLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}
