package sepush

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://developer.sepush.co.za/business/2.0"

// Client talks to the EskomSePush status API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client authenticated with the given token.
func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a client against a non-default endpoint.
// Used in tests against an httptest server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// Status fetches the current and announced stages for all regions.
func (c *Client) Status() (*StatusResponse, error) {
	var result StatusResponse
	if err := c.get("/status", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Area fetches events and the weekly schedule for one area.
func (c *Client) Area(id string) (*AreaResponse, error) {
	q := url.Values{}
	q.Set("id", id)
	var result AreaResponse
	if err := c.get("/area", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckAllowance fetches the remaining API call budget for the token.
func (c *Client) CheckAllowance() (*AllowanceResponse, error) {
	var result AllowanceResponse
	if err := c.get("/api_allowance", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sepush returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
