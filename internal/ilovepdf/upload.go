package ilovepdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Upload sends the file at filePath to the task's worker server and returns
// the name the server stored it under.
func (c *Client) Upload(ctx context.Context, token string, t Task, filePath string) (string, error) {
	if c == nil {
		return "", errors.New("nil ilovepdf client")
	}
	if strings.TrimSpace(filePath) == "" {
		return "", errors.New("empty file path")
	}
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("task", t.ID); err != nil {
		return "", fmt.Errorf("write task field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.workerURL(t, "/upload"), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &APIError{Step: "upload", Status: resp.StatusCode, Body: string(b)}
	}
	var out File
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if strings.TrimSpace(out.ServerFilename) == "" {
		return "", errors.New("upload response missing server_filename")
	}
	return out.ServerFilename, nil
}
