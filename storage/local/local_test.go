package local

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/logger"
	"github.com/kbukum/parallelio/storage"
)

func TestUploadDownload(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Upload(ctx, "run/part-000001.seg", strings.NewReader("payload")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	rc, err := s.Download(ctx, "run/part-000001.seg")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "payload" {
		t.Errorf("got %q", data)
	}

	ok, err := s.Exists(ctx, "run/part-000001.seg")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
}

func TestDownloadMissing(t *testing.T) {
	s, _ := NewStorage(t.TempDir())
	_, err := s.Download(context.Background(), "nope")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestPathsStayUnderBase(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage(t.TempDir())
	if err := s.Upload(ctx, "../../escape", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatal(err)
	}
	files, _ := s.List(ctx, "")
	if len(files) != 1 || files[0].Path != "escape" {
		t.Errorf("expected object inside base, got %v", files)
	}
}

func TestListPrefixSorted(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage(t.TempDir())
	for _, p := range []string{"a/part-2", "a/part-1", "b/part-1", "a/part-10"} {
		if err := s.Upload(ctx, p, strings.NewReader(p)); err != nil {
			t.Fatal(err)
		}
	}

	files, err := s.List(ctx, "a/")
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	want := "a/part-1,a/part-10,a/part-2"
	if strings.Join(paths, ",") != want {
		t.Errorf("got %v, want %s", paths, want)
	}

	_ = s.Delete(ctx, "a/part-1")
	_ = s.Delete(ctx, "a/part-1")
	if ok, _ := s.Exists(ctx, "a/part-1"); ok {
		t.Error("expected object deleted")
	}
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.New(context.Background(), storage.Config{Provider: storage.ProviderLocal, BasePath: dir}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := st.(*Storage); !ok {
		t.Errorf("expected *local.Storage, got %T", st)
	}
}
