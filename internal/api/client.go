package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "MEOW_HTTP_TIMEOUT"

	// UploadField is the multipart field carrying the picture.
	UploadField = "catPic"
)

// Client is a simple HTTP client for the meow API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, "", nil)
}

// UploadCat stores a new picture read from content under filename.
func (c *Client) UploadCat(ctx context.Context, filename string, content io.Reader) (CatResponse, error) {
	var resp CatResponse
	body, contentType, err := multipartBody(filename, content)
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodPost, "/api/cats", body, contentType, &resp)
	return resp, err
}

// ListCats returns the ids of all stored pictures.
func (c *Client) ListCats(ctx context.Context) ([]CatRef, error) {
	var resp []CatRef
	err := c.do(ctx, http.MethodGet, "/api/cats", nil, "", &resp)
	return resp, err
}

// DownloadCat streams the bytes stored under id to w.
func (c *Client) DownloadCat(ctx context.Context, id string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.catURL(id), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

// ReplaceCat swaps the picture under id for new content. The returned id is
// the one the replacement is stored under.
func (c *Client) ReplaceCat(ctx context.Context, id, filename string, content io.Reader) (CatResponse, error) {
	var resp CatResponse
	body, contentType, err := multipartBody(filename, content)
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodPut, "/api/cats/"+url.PathEscape(id), body, contentType, &resp)
	return resp, err
}

// DeleteCat removes the picture stored under id.
func (c *Client) DeleteCat(ctx context.Context, id string) (MessageResponse, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodDelete, "/api/cats/"+url.PathEscape(id), nil, "", &resp)
	return resp, err
}

func (c *Client) catURL(id string) string {
	return c.baseURL + "/api/cats/" + url.PathEscape(id)
}

func multipartBody(filename string, content io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
