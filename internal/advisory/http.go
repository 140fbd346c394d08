package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// #region client-struct
// HTTPClient posts the request as JSON to {baseURL}/api/advice.
type HTTPClient struct {
	base string
	c    *http.Client
}

// NewHTTPClient returns a client for baseURL. timeout <= 0 leaves the
// deadline to the caller's context.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	c := &http.Client{}
	if timeout > 0 {
		c.Timeout = timeout
	}
	return &HTTPClient{base: strings.TrimRight(baseURL, "/"), c: c}
}

// #endregion client-struct

// #region advise
// Advise sends req and returns the advice text.
func (h *HTTPClient) Advise(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal advice request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/api/advice", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build advice request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(hreq)
	if err != nil {
		return "", fmt.Errorf("post advice: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("post advice: %w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode advice: %w: %w", ErrUnavailable, err)
	}
	return out.Advice, nil
}

// #endregion advise
