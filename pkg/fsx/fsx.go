package fsx

import (
	"context"
	"io"
)

// FileReader provides read-only file access.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	ReadFileStream(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// FileWriter provides write access.
type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte) error
	WriteFileStream(ctx context.Context, path string, r io.Reader) error
}

// FileDeleter provides deletion.
type FileDeleter interface {
	DeleteFile(ctx context.Context, path string) error
}

// FileSystem is the full storage abstraction used for uploads and
// extraction scratch files.
type FileSystem interface {
	FileReader
	FileWriter
	FileDeleter

	// Join joins path elements using the backend's separator.
	Join(elem ...string) string
}
