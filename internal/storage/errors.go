package storage

import "errors"

var (
	// ErrEmptyFilename is returned when the client sent no filename.
	ErrEmptyFilename = errors.New("empty filename")
	// ErrInvalidFilename is returned when sanitization leaves nothing usable.
	ErrInvalidFilename = errors.New("filename has no usable characters")
	// ErrFileTooLarge is returned when the content exceeds the per-file limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrNoFreeName is returned when every collision candidate is taken.
	ErrNoFreeName = errors.New("no free filename")
)
