package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Status is the per-item upload state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "error"
)

var (
	ErrBusy       = errors.New("selection is uploading")
	ErrOutOfRange = errors.New("index out of range")
)

// Item is one selected file.
type Item struct {
	ID     string
	Path   string
	Name   string
	Size   int64
	Status Status
	Result *UploadResult
	Err    error
}

// Uploader sends one local file.
type Uploader interface {
	Upload(ctx context.Context, path string) (*UploadResult, error)
}

// Summary counts the outcome of one Upload pass.
type Summary struct {
	Uploaded int
	Failed   int
	Skipped  int
}

// ProgressFunc is called after each item finishes. done counts items that
// are in the success state, total is the selection size.
type ProgressFunc func(done, total int, item Item)

// Selection is an ordered list of files to upload, deduplicated by
// (name, size). It is not safe for concurrent use.
type Selection struct {
	items []*Item
	busy  bool
}

func NewSelection() *Selection {
	return &Selection{}
}

// Add stats each path and appends the ones not already selected. It returns
// how many were added. Directories and unreadable paths are reported
// together after the rest have been added.
func (s *Selection) Add(paths ...string) (int, error) {
	if s.busy {
		return 0, ErrBusy
	}
	var (
		added int
		errs  []error
	)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.Mode().IsRegular() {
			errs = append(errs, fmt.Errorf("%s: not a regular file", p))
			continue
		}
		if s.contains(filepath.Base(p), info.Size()) {
			continue
		}
		s.items = append(s.items, &Item{
			ID:     uuid.NewString(),
			Path:   p,
			Name:   filepath.Base(p),
			Size:   info.Size(),
			Status: StatusPending,
		})
		added++
	}
	return added, errors.Join(errs...)
}

func (s *Selection) contains(name string, size int64) bool {
	for _, it := range s.items {
		if it.Name == name && it.Size == size {
			return true
		}
	}
	return false
}

// Remove drops the item at index.
func (s *Selection) Remove(index int) error {
	if s.busy {
		return ErrBusy
	}
	if index < 0 || index >= len(s.items) {
		return ErrOutOfRange
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	return nil
}

// Clear empties the selection.
func (s *Selection) Clear() error {
	if s.busy {
		return ErrBusy
	}
	s.items = nil
	return nil
}

// Len returns the number of selected items.
func (s *Selection) Len() int { return len(s.items) }

// Items returns a copy of the current items.
func (s *Selection) Items() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

// TotalSize sums the sizes of all selected items.
func (s *Selection) TotalSize() int64 {
	var n int64
	for _, it := range s.items {
		n += it.Size
	}
	return n
}

// Upload sends every item that has not yet succeeded, one at a time, in
// selection order. Each request completes before the next starts. Failed
// items keep their error and are retried by the next call. A cancelled
// context stops the pass and leaves the remaining items untouched.
func (s *Selection) Upload(ctx context.Context, up Uploader, progress ProgressFunc) (Summary, error) {
	if s.busy {
		return Summary{}, ErrBusy
	}
	s.busy = true
	defer func() { s.busy = false }()

	var sum Summary
	done := 0
	for _, it := range s.items {
		if it.Status == StatusSuccess {
			sum.Skipped++
			done++
		}
	}

	total := len(s.items)
	for _, it := range s.items {
		if it.Status == StatusSuccess {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		it.Status = StatusUploading
		it.Err = nil
		res, err := up.Upload(ctx, it.Path)
		if err != nil {
			it.Status = StatusFailed
			it.Err = err
			sum.Failed++
		} else {
			it.Status = StatusSuccess
			it.Result = res
			sum.Uploaded++
			done++
		}
		if progress != nil {
			progress(done, total, *it)
		}
	}
	return sum, nil
}
