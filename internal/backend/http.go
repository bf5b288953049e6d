package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"topomap/engine-go/internal/model"
)

// HTTPClient implements Client over the store's REST surface.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// Options configures the HTTP client. Zero values get sensible defaults.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewHTTPClient builds a client for the given store endpoint.
func NewHTTPClient(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: opts.BaseURL,
		token:   opts.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) GetMap(ctx context.Context, mapID string) (model.NetworkMap, error) {
	var out model.NetworkMap
	err := c.do(ctx, http.MethodGet, "/maps/"+url.PathEscape(mapID), nil, &out)
	return out, err
}

func (c *HTTPClient) GetDevices(ctx context.Context, mapID string) ([]model.Device, error) {
	var out []model.Device
	err := c.do(ctx, http.MethodGet, "/maps/"+url.PathEscape(mapID)+"/devices", nil, &out)
	return out, err
}

func (c *HTTPClient) GetEdges(ctx context.Context, mapID string) ([]model.Edge, error) {
	var out []model.Edge
	err := c.do(ctx, http.MethodGet, "/maps/"+url.PathEscape(mapID)+"/edges", nil, &out)
	return out, err
}

func (c *HTTPClient) CreateDevice(ctx context.Context, d model.Device) (model.Device, error) {
	var out model.Device
	err := c.do(ctx, http.MethodPost, "/devices", d, &out)
	return out, err
}

func (c *HTTPClient) UpdateDevice(ctx context.Context, id string, patch DevicePatch) (model.Device, error) {
	var out model.Device
	err := c.do(ctx, http.MethodPatch, "/devices/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *HTTPClient) DeleteDevice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/devices/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) CreateEdge(ctx context.Context, e model.Edge) (model.Edge, error) {
	var out model.Edge
	err := c.do(ctx, http.MethodPost, "/edges", e, &out)
	return out, err
}

func (c *HTTPClient) UpdateEdge(ctx context.Context, id string, ct model.ConnectionType) (model.Edge, error) {
	var out model.Edge
	body := map[string]string{"connection_type": string(ct)}
	err := c.do(ctx, http.MethodPatch, "/edges/"+url.PathEscape(id), body, &out)
	return out, err
}

func (c *HTTPClient) DeleteEdge(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/edges/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) PingAllDevices(ctx context.Context, mapID string) error {
	return c.do(ctx, http.MethodPost, "/maps/"+url.PathEscape(mapID)+"/ping", nil, nil)
}

func (c *HTTPClient) PingOneDevice(ctx context.Context, deviceID string) (PingResult, error) {
	var out PingResult
	err := c.do(ctx, http.MethodPost, "/devices/"+url.PathEscape(deviceID)+"/ping", nil, &out)
	return out, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read a bounded slice of the body for the error message.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend: %s %s returned %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
