// Package attach wraps the external Attachment Store: hand it an opaque blob,
// get back a durable URL. The core treats it as best-effort — a failed upload
// is surfaced and retryable, never fatal to the submission.
package attach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type Store interface {
	// Upload stores the blob under the given label and returns a permanent
	// URL. Implementations must honor ctx cancellation/deadline.
	Upload(ctx context.Context, label string, blob []byte) (string, error)
}

// HTTPStore talks to an attachment service over HTTP: POST /upload?label=...
// with the raw blob as body, expecting {"url": "..."} back.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (s *HTTPStore) Upload(ctx context.Context, label string, blob []byte) (string, error) {
	u := fmt.Sprintf("%s/upload?label=%s", s.baseURL, url.QueryEscape(label))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload %s: status %d: %s", label, resp.StatusCode, bytes.TrimSpace(body))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload %s: empty url in response", label)
	}
	return out.URL, nil
}
