package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jask/attredit/internal/attribute"
	"github.com/jask/attredit/internal/workflow"
)

// Client talks to an attribute store over REST with a bearer token.
// It implements workflow.Store and workflow.Session.
type Client struct {
	baseURL  string
	token    string
	username string
	http     *http.Client
}

var (
	_ workflow.Store   = (*Client)(nil)
	_ workflow.Session = (*Client)(nil)
)

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("store base url %q is not valid", baseURL)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("store token is empty")
	}
	c := &Client{
		baseURL:  baseURL,
		token:    token,
		username: PeekUsername(token),
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Username() string { return c.username }

func (c *Client) FetchAttributes(ctx context.Context) ([]attribute.Attribute, error) {
	var out AttributesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/me/attributes", nil, &out); err != nil {
		return nil, err
	}
	return out.Attributes, nil
}

func (c *Client) UpdateAttribute(ctx context.Context, a attribute.Attribute) (workflow.UpdateResult, error) {
	if strings.TrimSpace(a.Key) == "" {
		return workflow.UpdateResult{}, ErrInvalidKey
	}
	var out UpdateResponse
	path := "/v1/me/attributes/" + url.PathEscape(a.Key)
	if err := c.do(ctx, http.MethodPut, path, UpdateRequest{Value: a.Value}, &out); err != nil {
		return workflow.UpdateResult{}, err
	}
	return workflow.UpdateResult{Key: out.Key, Done: out.Done, Next: out.Next}, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/current", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var er ErrorResponse
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(data) > 0 {
			if json.Unmarshal(data, &er) == nil && er.Error != "" {
				apiErr.Message = er.Error
			} else {
				apiErr.Message = strings.TrimSpace(string(data))
			}
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
