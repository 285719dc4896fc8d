package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"file-drop/internal/audit"
	"file-drop/internal/logging"
	"file-drop/internal/storage"
)

type testOpts struct {
	maxFile    int64
	maxRequest int64
	mirror     Mirror
	audit      AuditRecorder
	rateLimit  RateLimit
}

func newTestServer(t *testing.T, o testOpts) (*Server, *storage.Store) {
	t.Helper()
	if o.maxFile == 0 {
		o.maxFile = 50 << 20
	}
	if o.maxRequest == 0 {
		o.maxRequest = 100 << 20
	}
	store, err := storage.New(t.TempDir(), o.maxFile)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	srv := New(Config{
		Addr:            "127.0.0.1:0",
		Store:           store,
		MaxRequestBytes: o.maxRequest,
		Mirror:          o.mirror,
		Audit:           o.audit,
		RateLimit:       o.rateLimit,
		Build:           BuildInfo{Version: "test", Commit: "abc123"},
		Logger:          logging.New(io.Discard, "error", logging.FormatText),
	})
	return srv, store
}

// multipartBody builds a request body with one part. An empty field name
// produces a body with only an unrelated text field.
func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field == "" {
		if err := mw.WriteField("note", "no file here"); err != nil {
			t.Fatal(err)
		}
	} else {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, h http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type fakeMirror struct {
	mu      sync.Mutex
	objects []string
	putErr  error
	checkFn func() error
}

func (m *fakeMirror) Put(_ context.Context, localPath, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	m.objects = append(m.objects, objectName)
	return nil
}

func (m *fakeMirror) Check(context.Context) error {
	if m.checkFn != nil {
		return m.checkFn()
	}
	return nil
}

type fakeAudit struct {
	mu        sync.Mutex
	events    []audit.Event
	recordErr error
	recentErr error
	pingErr   error
}

func (a *fakeAudit) Record(_ context.Context, ev audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recordErr != nil {
		return a.recordErr
	}
	a.events = append(a.events, ev)
	return nil
}

func (a *fakeAudit) Recent(_ context.Context, limit int) ([]audit.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recentErr != nil {
		return nil, a.recentErr
	}
	out := make([]audit.Event, 0, limit)
	for i := len(a.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.events[i])
	}
	return out, nil
}

func (a *fakeAudit) Ping(context.Context) error { return a.pingErr }

func (a *fakeAudit) snapshot() []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Event(nil), a.events...)
}

var errBoom = errors.New("boom")
