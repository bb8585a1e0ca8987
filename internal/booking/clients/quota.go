package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// QuotaClient talks to the quota accountant's commit/release endpoints.
type QuotaClient struct {
	baseURL string
	http    *http.Client
}

func NewQuotaClient(baseURL string) *QuotaClient {
	return &QuotaClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: peerTimeout},
	}
}

func (c *QuotaClient) Commit(ctx context.Context, reservationID string) (bool, error) {
	return c.post(ctx, "/v1/quotas/commit", reservationID)
}

func (c *QuotaClient) Release(ctx context.Context, reservationID string) (bool, error) {
	return c.post(ctx, "/v1/quotas/release", reservationID)
}

func (c *QuotaClient) post(ctx context.Context, path, reservationID string) (bool, error) {
	q := url.Values{}
	q.Set("reservationId", reservationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("quota %s: unexpected status %d", path, resp.StatusCode)
	}

	var out struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.OK, nil
}
