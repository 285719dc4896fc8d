// Package client talks to a File Drop server: it uploads local files one
// request at a time and reads the remote listing.
package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultServer is used when no server URL is given.
const DefaultServer = "http://localhost:8090"

// UploadResult mirrors the server's success body for POST /upload.
type UploadResult struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}

// RemoteFile is one entry of GET /files.
type RemoteFile struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"`
}

// ModTime converts the float Unix seconds into a time.Time.
func (f RemoteFile) ModTime() time.Time {
	sec := int64(f.Modified)
	nsec := int64((f.Modified - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

type listResp struct {
	Files []RemoteFile `json:"files"`
	Total int          `json:"total"`
}

type errorResp struct {
	Error string `json:"error"`
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client wraps a resty client bound to one server.
type Client struct {
	http *resty.Client
}

// New returns a client for baseURL. A zero timeout means none.
func New(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultServer
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		rc.SetTimeout(timeout)
	}
	return &Client{http: rc}
}

// Upload sends the file at path as the multipart field "file".
func (c *Client) Upload(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		out  UploadResult
		fail errorResp
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(path), f).
		SetResult(&out).
		SetError(&fail).
		Post("/upload")
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	if resp.IsError() {
		return nil, &StatusError{Status: resp.StatusCode(), Message: fail.Error}
	}
	return &out, nil
}

// List returns the server's stored files.
func (c *Client) List(ctx context.Context) ([]RemoteFile, error) {
	var (
		out  listResp
		fail errorResp
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&fail).
		Get("/files")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{Status: resp.StatusCode(), Message: fail.Error}
	}
	return out.Files, nil
}
