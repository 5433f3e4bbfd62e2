package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/adityalohuni/htmlform/internal/api"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/service"
	"github.com/adityalohuni/htmlform/internal/session"
)

// Error is a non-2xx answer from the daemon.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("htmlform api request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("htmlform api request failed: %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) Status(ctx context.Context) (api.Status, error) {
	var out api.Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

func (c *Client) ListClients(ctx context.Context) ([]session.ClientInfo, error) {
	var out []session.ClientInfo
	err := c.do(ctx, http.MethodGet, "/clients", nil, &out)
	return out, err
}

func (c *Client) Parse(ctx context.Context, payload api.ParsePayload) ([]formstore.Entry, error) {
	var out api.ParseResponse
	if err := c.do(ctx, http.MethodPost, "/forms/parse", payload, &out); err != nil {
		return nil, err
	}
	return out.Forms, nil
}

func (c *Client) List(ctx context.Context) ([]formstore.Entry, error) {
	var out api.ParseResponse
	if err := c.do(ctx, http.MethodGet, "/forms", nil, &out); err != nil {
		return nil, err
	}
	return out.Forms, nil
}

func (c *Client) Get(ctx context.Context, id string) (formstore.Entry, error) {
	var out formstore.Entry
	err := c.do(ctx, http.MethodGet, "/forms/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Submission(ctx context.Context, id string) (service.Submission, error) {
	var out service.Submission
	err := c.do(ctx, http.MethodGet, "/forms/"+url.PathEscape(id)+"/submission", nil, &out)
	return out, err
}

func (c *Client) Request(ctx context.Context, id, base string) (api.RequestPreview, error) {
	path := "/forms/" + url.PathEscape(id) + "/request"
	if base != "" {
		path += "?base=" + url.QueryEscape(base)
	}
	var out api.RequestPreview
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Select(ctx context.Context, id string, payload api.SelectPayload) (formstore.Entry, error) {
	var out formstore.Entry
	err := c.do(ctx, http.MethodPost, "/forms/"+url.PathEscape(id)+"/select", payload, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/forms/"+url.PathEscape(id), nil, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &Error{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
