package fsxlocal_test

import (
	"context"
	"testing"

	"github.com/robypag/scentsmith/pkg/fsx/fsxlocal"
)

func TestReadWriteDeleteRoundTrip(t *testing.T) {
	fs, err := fsxlocal.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("creating file system: %v", err)
	}
	ctx := context.Background()

	if err := fs.WriteFile(ctx, "scratch/a.txt", []byte("lavender")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := fs.ReadFile(ctx, "scratch/a.txt")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "lavender" {
		t.Fatalf("expected lavender, got %q", data)
	}

	if err := fs.DeleteFile(ctx, "scratch/a.txt"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	exists, err := fs.Exists(ctx, "scratch/a.txt")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatal("file should be gone after delete")
	}
}

func TestRejectsPathEscape(t *testing.T) {
	fs, err := fsxlocal.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("creating file system: %v", err)
	}

	if _, err := fs.ReadFile(context.Background(), "../outside.txt"); err == nil {
		t.Fatal("expected error for path escaping the base directory")
	}
}
