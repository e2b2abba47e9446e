package storage_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sarmentow/codepencil/internal/storage"
)

func TestSelect(t *testing.T) {
	cases := []struct {
		target string
		caps   storage.Capabilities
		want   storage.Backend
	}{
		{"projects/demo", storage.Capabilities{LiveHandles: true}, storage.LiveHandle},
		{"projects/demo", storage.Capabilities{}, storage.Archive},
		{"projects/demo.zip", storage.Capabilities{LiveHandles: true}, storage.Archive},
		{"projects/DEMO.ZIP", storage.Capabilities{LiveHandles: true}, storage.Archive},
	}
	for _, tc := range cases {
		if got := storage.Select(tc.target, tc.caps); got != tc.want {
			t.Fatalf("Select(%q, %+v) = %s, want %s", tc.target, tc.caps, got, tc.want)
		}
	}
}

func TestArchivePath(t *testing.T) {
	if got := storage.ArchivePath("demo/"); got != "demo.zip" {
		t.Fatalf("ArchivePath(demo/) = %q", got)
	}
	if got := storage.ArchivePath("demo.zip"); got != "demo.zip" {
		t.Fatalf("ArchivePath(demo.zip) = %q", got)
	}
}

func TestOutcome(t *testing.T) {
	if r := storage.Outcome("p", nil); !r.Success || r.Status() != "ok" {
		t.Fatalf("unexpected success result: %+v", r)
	}
	if r := storage.Outcome("p", fmt.Errorf("grant: %w", storage.ErrCancelled)); !r.Cancelled || r.Success || r.Err != nil {
		t.Fatalf("unexpected cancelled result: %+v", r)
	}
	if r := storage.Outcome("p", context.Canceled); !r.Cancelled {
		t.Fatalf("expected context cancellation to be cancelled: %+v", r)
	}
	r := storage.Outcome("p", errors.New("boom"))
	if r.Success || r.Cancelled || r.Message() != "boom" || r.Status() != "failed" {
		t.Fatalf("unexpected failure result: %+v", r)
	}
}

func TestAllowAllResolvesAbsolutePath(t *testing.T) {
	root, err := storage.AllowAll.Grant(context.Background(), "rel/dir", storage.ReadWrite)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if !filepath.IsAbs(root) {
		t.Fatalf("expected absolute root, got %q", root)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := storage.AllowAll.Grant(ctx, "x", storage.Read); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
