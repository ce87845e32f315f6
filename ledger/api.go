package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ybbus/httpretry"
)

// APIClient posts transactions to a ledger's HTTP API.
type APIClient struct {
	URL    string // transactions endpoint
	Token  string // bearer token, optional
	Client *http.Client
}

// NewAPIClient returns a client retrying transient failures.
func NewAPIClient(url, token string, opts ...httpretry.Option) *APIClient {
	opts = append([]httpretry.Option{
		httpretry.WithMaxRetryCount(2),
		httpretry.WithRetryPolicy(transient),
	}, opts...)
	return &APIClient{
		URL:    url,
		Token:  token,
		Client: httpretry.NewCustomClient(&http.Client{Timeout: 30 * time.Second}, opts...),
	}
}

// transient reports whether a failed post is worth retrying. A conflict is a
// duplicate import id and is final.
func transient(statusCode int, err error) bool {
	switch {
	case err != nil, statusCode == 0:
		return true
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return true
	}
	return statusCode >= 500
}

func (c *APIClient) Post(ctx context.Context, tx Transaction) error {
	body, err := json.Marshal(struct {
		Transaction Transaction `json:"transaction"`
	}{tx})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot POST transaction: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrDuplicate
	case resp.StatusCode/100 != 2:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("cannot POST %v%v: %v: %s", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
