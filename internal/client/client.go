// Package client talks to a running fupanxia server over its JSON API.
package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/fupanxia/internal/intake"
	"github.com/dyike/fupanxia/models"
	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 2 * time.Minute

// State mirrors the server's /api/state payload.
type State struct {
	models.AppState
	Mode           models.ViewMode `json:"mode"`
	LoadingMessage string          `json:"loadingMessage,omitempty"`
}

type Health struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	client *resty.Client
}

// New returns a client for baseURL. The session cookie is kept between calls.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{client: client}
}

// AnalyzeFile uploads the image at path. A non-image is rejected locally
// and never sent.
func (c *Client) AnalyzeFile(ctx context.Context, path string) (*State, error) {
	contentType := intake.TypeByPath(path)
	if !intake.IsImage(contentType) {
		return nil, &intake.ValidationError{ContentType: contentType, Err: intake.ErrNotImage}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()
	return c.Analyze(ctx, filepath.Base(path), contentType, f)
}

// Analyze posts one image to /api/analyze and waits for the outcome.
func (c *Client) Analyze(ctx context.Context, filename, contentType string, r io.Reader) (*State, error) {
	var out State
	var apiErr APIError
	resp, err := c.client.R().
		SetContext(ctx).
		SetMultipartField("image", filename, contentType, r).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/analyze")
	if err != nil {
		return nil, fmt.Errorf("post analyze: %w", err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, &apiErr
	}
	return &out, nil
}

func (c *Client) State(ctx context.Context) (*State, error) {
	return c.getState(ctx, "GET", "/api/state")
}

func (c *Client) Reset(ctx context.Context) (*State, error) {
	return c.getState(ctx, "POST", "/api/reset")
}

func (c *Client) getState(ctx context.Context, method, path string) (*State, error) {
	var out State
	var apiErr APIError
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, &apiErr
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/healthz")
	if err != nil {
		return nil, fmt.Errorf("get healthz: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode()}
	}
	return &out, nil
}
