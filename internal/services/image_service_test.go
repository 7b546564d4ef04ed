package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorePutAndRemove(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalImageStore(dir)
	ctx := context.Background()

	handle, err := store.IssueUploadHandle(ctx, "image/png")
	if err != nil {
		t.Fatalf("issue handle: %v", err)
	}
	if !strings.HasSuffix(handle.Ref, ".png") {
		t.Errorf("ref = %s, want .png suffix", handle.Ref)
	}
	if !strings.HasPrefix(handle.URL, "/api/upload/") {
		t.Errorf("url = %s, want local put route", handle.URL)
	}

	if err := store.Put(handle.Ref, bytes.NewReader([]byte("png-bytes"))); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, handle.Ref))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("stored %q", data)
	}

	if err := store.Remove(ctx, handle.Ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, handle.Ref)); !os.IsNotExist(err) {
		t.Error("file survived remove")
	}

	// Removing again is fine.
	if err := store.Remove(ctx, handle.Ref); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := NewLocalImageStore(t.TempDir())

	for _, ref := range []string{"", "../escape.jpg", "a/b.jpg", `a\b.jpg`, "..\\up.jpg"} {
		if err := store.Put(ref, bytes.NewReader(nil)); err != ErrInvalidImage {
			t.Errorf("Put(%q) err = %v, want ErrInvalidImage", ref, err)
		}
	}
}

func TestLocalStoreStore(t *testing.T) {
	store := NewLocalImageStore(t.TempDir())

	handle, err := store.Store("holiday.webp", bytes.NewReader([]byte("webp")))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !strings.HasSuffix(handle.Ref, ".webp") {
		t.Errorf("ref = %s, want original extension kept", handle.Ref)
	}
	if handle.URL != store.ResolveURL(handle.Ref) {
		t.Errorf("url = %s, want resolved ref", handle.URL)
	}
}

func TestExtForContentType(t *testing.T) {
	cases := map[string]string{
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
		"image/jpeg": ".jpg",
		"":           ".jpg",
	}
	for contentType, want := range cases {
		if got := extForContentType(contentType); got != want {
			t.Errorf("extForContentType(%q) = %s, want %s", contentType, got, want)
		}
	}
}

func TestSafeSearchUnsafe(t *testing.T) {
	safe := SafeSearchResult{Adult: "UNLIKELY", Violence: "POSSIBLE", Racy: "VERY_UNLIKELY"}
	if safe.Unsafe() {
		t.Error("possible/unlikely should pass")
	}

	flagged := SafeSearchResult{Adult: "VERY_LIKELY"}
	if !flagged.Unsafe() {
		t.Error("very likely adult should be rejected")
	}

	racy := SafeSearchResult{Racy: "LIKELY"}
	if !racy.Unsafe() {
		t.Error("likely racy should be rejected")
	}
}
