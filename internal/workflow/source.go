package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"po-tracker/internal/core"
)

// Status is one observation from the external approval workflow.
type Status struct {
	Status     string `json:"status"`
	Outcome    string `json:"outcome"`
	Approver   string `json:"approver"`
	Comments   string `json:"comments"`
	UpdatedUTC string `json:"updatedUtc"`
}

// Source answers "what does the approval workflow currently say about this PO
// business number". A nil Status with nil error means the workflow has no item
// for that number yet.
type Source interface {
	FetchStatus(ctx context.Context, poNumber string) (*Status, error)
}

// HTTPSource queries the approval-workflow status endpoint over HTTPS.
type HTTPSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPSource builds a Source against the given endpoint. token is sent as a
// bearer credential; how it was obtained is the caller's concern.
func NewHTTPSource(baseURL, token string) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPSource) FetchStatus(ctx context.Context, poNumber string) (*Status, error) {
	if poNumber == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s?poNumber=%s", s.baseURL, url.QueryEscape(poNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build workflow status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &core.UpstreamError{System: "workflow", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &core.UpstreamError{
			System: "workflow",
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, &core.UpstreamError{System: "workflow", Err: fmt.Errorf("decode response: %w", err)}
	}
	if st.Status == "" {
		return nil, nil
	}
	return &st, nil
}
