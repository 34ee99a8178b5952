package customers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/customer"
)

// Client is the HTTP implementation of customer.Lookup.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) GetByID(ctx context.Context, id int64) (customer.Customer, error) {
	url := fmt.Sprintf("%s/customers/%d", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return customer.Customer{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return customer.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return customer.Customer{}, customer.ErrNotFound
	default:
		return customer.Customer{}, fmt.Errorf("get customer %d: unexpected status %d", id, resp.StatusCode)
	}

	var result customer.Customer
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return customer.Customer{}, fmt.Errorf("decode customer %d: %w", id, err)
	}

	return result, nil
}

// GetByIDs resolves a whole id set in one round trip. Ids without a customer
// are absent from the returned map; callers decide how to degrade.
func (c *Client) GetByIDs(ctx context.Context, ids []int64) (map[int64]customer.Customer, error) {
	body, err := json.Marshal(struct {
		IDs []int64 `json:"ids"`
	}{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("marshal batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/customers/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch get customers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("batch get customers: unexpected status %d", resp.StatusCode)
	}

	var result map[int64]customer.Customer
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}

	return result, nil
}
