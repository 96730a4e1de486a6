// Package ilovepdf is a minimal client for the iLovePDF REST API: it
// authenticates with a key pair, opens a task on an assigned worker server,
// uploads a file, processes it with a tool and downloads the result.
package ilovepdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public API entry point.
	DefaultBaseURL = "https://api.ilovepdf.com/v1"
	// ToolOfficePDF converts office documents (pptx, docx, xlsx) to PDF.
	ToolOfficePDF = "officepdf"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Step   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: status=%d body=%s", e.Step, e.Status, e.Body)
}

// Client talks to the API. Worker servers are addressed as
// {scheme}://{server}/v1 where server comes from Start.
type Client struct {
	baseURL      string
	workerScheme string
	http         *http.Client
}

// New creates a client. baseURL should look like "https://api.ilovepdf.com/v1"
// (no trailing slash); empty means DefaultBaseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		workerScheme: "https",
		http:         &http.Client{Timeout: timeout},
	}
}

// WithWorkerScheme overrides the scheme used for worker servers.
func (c *Client) WithWorkerScheme(scheme string) *Client {
	c2 := *c
	if strings.TrimSpace(scheme) != "" {
		c2.workerScheme = scheme
	}
	return &c2
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c2 := *c
	if h != nil {
		c2.http = h
	}
	return &c2
}

// Task is a conversion session on a worker server.
type Task struct {
	ID     string `json:"task"`
	Server string `json:"server"`
}

// File names an uploaded file inside a task.
type File struct {
	ServerFilename string `json:"server_filename"`
	Filename       string `json:"filename"`
}

// Auth exchanges the key pair for a bearer token.
func (c *Client) Auth(ctx context.Context, publicKey, secretKey string) (string, error) {
	if c == nil {
		return "", errors.New("nil ilovepdf client")
	}
	body, err := json.Marshal(map[string]string{"public_key": publicKey, "secret_key": secretKey})
	if err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, "auth", http.MethodPost, c.baseURL+"/auth", "", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", errors.New("auth: missing token in response")
	}
	return out.Token, nil
}

// Start opens a task for tool and returns its id and worker server.
func (c *Client) Start(ctx context.Context, token, tool string) (Task, error) {
	if c == nil {
		return Task{}, errors.New("nil ilovepdf client")
	}
	var t Task
	if err := c.doJSON(ctx, "start", http.MethodGet, c.baseURL+"/start/"+tool, token, nil, &t); err != nil {
		return Task{}, err
	}
	if t.ID == "" || t.Server == "" {
		return Task{}, errors.New("start: missing task or server in response")
	}
	return t, nil
}

// Process runs tool over the uploaded files.
func (c *Client) Process(ctx context.Context, token string, t Task, tool string, files []File) error {
	if c == nil {
		return errors.New("nil ilovepdf client")
	}
	body, err := json.Marshal(map[string]any{"task": t.ID, "tool": tool, "files": files})
	if err != nil {
		return err
	}
	return c.doJSON(ctx, "process", http.MethodPost, c.workerURL(t, "/process"), token, bytes.NewReader(body), nil)
}

// Download streams the task result into w.
func (c *Client) Download(ctx context.Context, token string, t Task, w io.Writer) (int64, error) {
	if c == nil {
		return 0, errors.New("nil ilovepdf client")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.workerURL(t, "/download/"+t.ID), http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return 0, &APIError{Step: "download", Status: resp.StatusCode, Body: string(b)}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download: %w", err)
	}
	return n, nil
}

func (c *Client) workerURL(t Task, path string) string {
	return c.workerScheme + "://" + t.Server + "/v1" + path
}

func (c *Client) doJSON(ctx context.Context, step, method, url, token string, body io.Reader, out any) error {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{Step: step, Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", step, err)
	}
	return nil
}
