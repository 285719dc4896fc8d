package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"file-drop/internal/audit"
)

func TestUpload_NewNameIsKept(t *testing.T) {
	srv, store := newTestServer(t, testOpts{})

	rr := doUpload(t, srv.Handler(), "report.pdf", []byte("hello world"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp uploadResp
	decodeJSON(t, rr, &resp)
	if resp.Message != "file uploaded successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Filename != "report.pdf" {
		t.Errorf("filename = %q, want report.pdf", resp.Filename)
	}
	if resp.Size != 11 {
		t.Errorf("size = %d, want 11", resp.Size)
	}
	if want := filepath.Join(store.Dir(), "report.pdf"); resp.Path != want {
		t.Errorf("path = %q, want %q", resp.Path, want)
	}
}

func TestUpload_SanitizesName(t *testing.T) {
	srv, _ := newTestServer(t, testOpts{})

	rr := doUpload(t, srv.Handler(), "My Résumé (final).txt", []byte("x"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp uploadResp
	decodeJSON(t, rr, &resp)
	if resp.Filename != "My_Resume_final.txt" {
		t.Errorf("filename = %q, want My_Resume_final.txt", resp.Filename)
	}
}

func TestUpload_SecondSameNameIsRenamed(t *testing.T) {
	srv, store := newTestServer(t, testOpts{})
	h := srv.Handler()

	first := doUpload(t, h, "a.txt", []byte("first"))
	second := doUpload(t, h, "a.txt", []byte("second!"))
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("status = %d / %d", first.Code, second.Code)
	}

	var r1, r2 uploadResp
	decodeJSON(t, first, &r1)
	decodeJSON(t, second, &r2)

	if r1.Filename != "a.txt" {
		t.Errorf("first filename = %q, want a.txt", r1.Filename)
	}
	if r2.Filename == r1.Filename {
		t.Fatalf("second upload reused %q", r2.Filename)
	}
	pattern := regexp.MustCompile(`^a_\d{8}_\d{6}_\d+\.txt$`)
	if !pattern.MatchString(r2.Filename) {
		t.Errorf("second filename = %q, want a_<YYYYMMDD_HHMMSS>_<n>.txt", r2.Filename)
	}
	if r2.Size != 7 {
		t.Errorf("second size = %d, want 7", r2.Size)
	}
	if got := len(dirEntries(t, store.Dir())); got != 2 {
		t.Errorf("directory holds %d files, want 2", got)
	}
}

func TestUpload_EmptyFilename(t *testing.T) {
	srv, store := newTestServer(t, testOpts{})

	rr := doUpload(t, srv.Handler(), "", []byte("data"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp errorResp
	decodeJSON(t, rr, &resp)
	if resp.Error == "" {
		t.Error("expected error message")
	}
	if names := dirEntries(t, store.Dir()); len(names) != 0 {
		t.Errorf("files written: %v", names)
	}
}

func TestUpload_UnusableFilename(t *testing.T) {
	srv, store := newTestServer(t, testOpts{})

	rr := doUpload(t, srv.Handler(), "???", []byte("data"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if names := dirEntries(t, store.Dir()); len(names) != 0 {
		t.Errorf("files written: %v", names)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	srv, store := newTestServer(t, testOpts{})

	body, ct := multipartBody(t, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp errorResp
	decodeJSON(t, rr, &resp)
	if !strings.Contains(resp.Error, "no file") {
		t.Errorf("error = %q", resp.Error)
	}
	if names := dirEntries(t, store.Dir()); len(names) != 0 {
		t.Errorf("files written: %v", names)
	}
}

func TestUpload_WrongFieldName(t *testing.T) {
	srv, _ := newTestServer(t, testOpts{})

	body, ct := multipartBody(t, "document", "a.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	srv, _ := newTestServer(t, testOpts{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUpload_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, testOpts{})

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestUpload_FileOverLimit(t *testing.T) {
	srv, store := newTestServer(t, testOpts{maxFile: 1024, maxRequest: 64 << 10})

	rr := doUpload(t, srv.Handler(), "big.bin", bytes.Repeat([]byte("x"), 2048))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413, body = %s", rr.Code, rr.Body.String())
	}
	var resp errorResp
	decodeJSON(t, rr, &resp)
	if !strings.Contains(resp.Error, "1.0 KiB") {
		t.Errorf("error = %q, want the per-file ceiling named", resp.Error)
	}
	if names := dirEntries(t, store.Dir()); len(names) != 0 {
		t.Errorf("files written: %v", names)
	}
}

func TestUpload_FileExactlyAtLimit(t *testing.T) {
	srv, _ := newTestServer(t, testOpts{maxFile: 1024, maxRequest: 64 << 10})

	rr := doUpload(t, srv.Handler(), "edge.bin", bytes.Repeat([]byte("x"), 1024))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestUpload_RequestOverLimitByContentLength(t *testing.T) {
	srv, store := newTestServer(t, testOpts{maxFile: 1 << 20, maxRequest: 4096})

	rr := doUpload(t, srv.Handler(), "big.bin", bytes.Repeat([]byte("x"), 8192))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
	if names := dirEntries(t, store.Dir()); len(names) != 0 {
		t.Errorf("files written: %v", names)
	}
}

func TestUpload_RequestOverLimitWhileStreaming(t *testing.T) {
	srv, store := newTestServer(t, testOpts{maxFile: 1 << 20, maxRequest: 4096})

	body, ct := multipartBody(t, "file", "big.bin", bytes.Repeat([]byte("x"), 8192))
	// A plain io.Reader hides the length, so the limit trips mid-stream.
	req := httptest.NewRequest(http.MethodPost, "/upload", io.MultiReader(body))
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413, body = %s", rr.Code, rr.Body.String())
	}
	if names := dirEntries(t, store.Dir()); len(names) != 0 {
		t.Errorf("files written: %v", names)
	}
}

func TestUpload_Over50MBDefault(t *testing.T) {
	if testing.Short() {
		t.Skip("streams 50 MB")
	}
	srv, store := newTestServer(t, testOpts{})

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		fw, err := mw.CreateFormFile("file", "huge.bin")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		chunk := bytes.Repeat([]byte("z"), 1<<20)
		for i := 0; i < 51; i++ {
			if _, err := fw.Write(chunk); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(mw.Close())
	}()

	req := httptest.NewRequest(http.MethodPost, "/upload", pr)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	_ = pr.CloseWithError(io.ErrClosedPipe)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
	var resp errorResp
	decodeJSON(t, rr, &resp)
	if !strings.Contains(resp.Error, "50 MiB") {
		t.Errorf("error = %q, want 50 MiB ceiling", resp.Error)
	}
	if names := dirEntries(t, store.Dir()); len(names) != 0 {
		t.Errorf("files written: %v", names)
	}
}

func TestUpload_MirrorReceivesStoredName(t *testing.T) {
	mirror := &fakeMirror{}
	srv, _ := newTestServer(t, testOpts{mirror: mirror})
	h := srv.Handler()

	doUpload(t, h, "a.txt", []byte("1"))
	rr := doUpload(t, h, "a.txt", []byte("2"))
	var resp uploadResp
	decodeJSON(t, rr, &resp)

	if len(mirror.objects) != 2 {
		t.Fatalf("mirror got %d objects, want 2", len(mirror.objects))
	}
	if mirror.objects[1] != resp.Filename {
		t.Errorf("mirror object = %q, want %q", mirror.objects[1], resp.Filename)
	}
}

func TestUpload_MirrorFailureDoesNotFailUpload(t *testing.T) {
	mirror := &fakeMirror{putErr: errBoom}
	srv, store := newTestServer(t, testOpts{mirror: mirror})

	rr := doUpload(t, srv.Handler(), "a.txt", []byte("1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if names := dirEntries(t, store.Dir()); len(names) != 1 {
		t.Errorf("files = %v, want one", names)
	}
}

func TestUpload_AuditRecordsEveryAttempt(t *testing.T) {
	rec := &fakeAudit{}
	srv, _ := newTestServer(t, testOpts{audit: rec})
	h := srv.Handler()

	doUpload(t, h, "a.txt", []byte("1"))
	doUpload(t, h, "a.txt", []byte("2"))
	doUpload(t, h, "", []byte("3"))

	events := rec.snapshot()
	if len(events) != 3 {
		t.Fatalf("recorded %d events, want 3", len(events))
	}
	if events[0].Outcome != audit.OutcomeStored || events[0].Renamed {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Outcome != audit.OutcomeStored || !events[1].Renamed {
		t.Errorf("second event = %+v", events[1])
	}
	if events[2].Outcome != audit.OutcomeRejected || events[2].ErrorMsg == "" {
		t.Errorf("third event = %+v", events[2])
	}
	for _, ev := range events {
		if ev.RequestID == "" {
			t.Error("event without request id")
		}
	}
}

func TestUpload_AuditFailureDoesNotFailUpload(t *testing.T) {
	srv, _ := newTestServer(t, testOpts{audit: &fakeAudit{recordErr: errBoom}})

	rr := doUpload(t, srv.Handler(), "a.txt", []byte("1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
