package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// peerTimeout bounds every synchronous call to a peer service.
const peerTimeout = 5 * time.Second

// AccessClient talks to the access provisioner's validate endpoint.
type AccessClient struct {
	baseURL string
	http    *http.Client
}

func NewAccessClient(baseURL string) *AccessClient {
	return &AccessClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: peerTimeout},
	}
}

func (c *AccessClient) Validate(ctx context.Context, bookingID int64, code string) (bool, error) {
	q := url.Values{}
	q.Set("bookingId", strconv.FormatInt(bookingID, 10))
	q.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/access/validate?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("access validate: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Valid, nil
}
