package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"file-drop/internal/client"
)

func TestGetenvDefault(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      string
		envValue string
		want     string
	}{
		{name: "env var set", key: "FILEDROP_TEST_SET", def: "default", envValue: "custom", want: "custom"},
		{name: "env var empty", key: "FILEDROP_TEST_EMPTY", def: "default", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)
			if got := getenvDefault(tt.key, tt.def); got != tt.want {
				t.Errorf("getenvDefault(%q, %q) = %q, want %q", tt.key, tt.def, got, tt.want)
			}
		})
	}
}

func TestBuildInfo(t *testing.T) {
	t.Setenv("FILEDROP_VERSION", "1.2.3")
	t.Setenv("FILEDROP_COMMIT", "")

	b := buildInfo()
	if b.Version != "1.2.3" || b.Commit != "unknown" {
		t.Errorf("buildInfo() = %+v", b)
	}
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	dir := t.TempDir()
	var got string

	app := &cli.Command{
		Name:  "filedrop",
		Flags: serveFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			got = cfg.Addr + "|" + cfg.UploadDir
			return nil
		},
	}
	if err := app.Run(context.Background(), []string{"filedrop", "--addr", "127.0.0.1:9999", "--dir", dir}); err != nil {
		t.Fatal(err)
	}
	if want := "127.0.0.1:9999|" + dir; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadConfig_InvalidAddrRejected(t *testing.T) {
	app := &cli.Command{
		Name:  "filedrop",
		Flags: serveFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, err := loadConfig(cmd)
			return err
		},
	}
	if err := app.Run(context.Background(), []string{"filedrop", "--addr", "not an address"}); err == nil {
		t.Error("expected validation error")
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	names := map[string]bool{}
	for _, c := range app.Commands {
		names[c.Name] = true
	}
	for _, want := range []string{"serve", "push", "ls"} {
		if !names[want] {
			t.Errorf("missing command %q", want)
		}
	}
}

type stubUploader struct {
	fail map[string]bool
}

func (s stubUploader) Upload(_ context.Context, path string) (*client.UploadResult, error) {
	name := filepath.Base(path)
	if s.fail[name] {
		return nil, errors.New("server returned 500: disk full")
	}
	return &client.UploadResult{Filename: "stored_" + name, Size: 3}, nil
}

func TestPush_ReportsEachFile(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, n := range []string{"a.txt", "b.txt"} {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("abc"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	sel := client.NewSelection()
	if _, err := sel.Add(paths...); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := push(context.Background(), &out, sel, stubUploader{fail: map[string]bool{"b.txt": true}})
	if !errors.Is(err, errUploadsFailed) {
		t.Fatalf("err = %v, want errUploadsFailed", err)
	}

	text := out.String()
	for _, want := range []string{"a.txt", "saved as stored_a.txt", "b.txt: server returned 500", "1 uploaded, 1 failed, 0 skipped"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	// Retry pass only touches the failure.
	out.Reset()
	if err := push(context.Background(), &out, sel, stubUploader{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "1 uploaded, 0 failed, 1 skipped") {
		t.Errorf("retry output:\n%s", out.String())
	}
}

func TestPrintFiles(t *testing.T) {
	var out bytes.Buffer
	now := float64(time.Now().Add(-time.Hour).Unix())
	err := printFiles(&out, []client.RemoteFile{
		{Name: "a.txt", Size: 2048, Modified: now},
		{Name: "b.bin", Size: 10, Modified: now},
	})
	if err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"a.txt", "2.0 KiB", "b.bin", "1 hour ago", "2 file(s)"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestPrintFiles_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := printFiles(&out, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no files stored") {
		t.Errorf("output = %q", out.String())
	}
}
