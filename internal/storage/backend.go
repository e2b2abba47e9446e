package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Backend identifies a project storage medium.
type Backend int

const (
	// LiveHandle reads and writes documents directly in a directory.
	LiveHandle Backend = iota + 1
	// Archive packs documents into a single zip file.
	Archive
)

// ArchiveExt is the file extension of archive projects.
const ArchiveExt = ".zip"

func (b Backend) String() string {
	switch b {
	case LiveHandle:
		return "live-handle"
	case Archive:
		return "archive"
	default:
		return "unknown"
	}
}

// Capabilities describes what the host environment offers. It is probed per
// action and passed in; nothing here caches it.
type Capabilities struct {
	LiveHandles bool
}

// Select picks the backend for target. Archive paths always use the archive
// backend; anything else uses live handles when the host supports them.
func Select(target string, caps Capabilities) Backend {
	if IsArchivePath(target) || !caps.LiveHandles {
		return Archive
	}
	return LiveHandle
}

// IsArchivePath reports whether target names a zip archive.
func IsArchivePath(target string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(target)), ArchiveExt)
}

// ArchivePath returns the archive file used for target when the archive
// backend serves a target that is not itself a zip path.
func ArchivePath(target string) string {
	if IsArchivePath(target) {
		return target
	}
	return strings.TrimRight(target, `/\`) + ArchiveExt
}

// Access is the kind of access a backend asks the user to grant.
type Access int

const (
	Read Access = iota + 1
	ReadWrite
)

func (a Access) String() string {
	if a == ReadWrite {
		return "read-write"
	}
	return "read"
}

var (
	// ErrCancelled reports that the user declined an access grant.
	ErrCancelled = errors.New("access grant cancelled")
	// ErrNoCells reports a project that yielded no loadable cells.
	ErrNoCells = errors.New("project contains no loadable cells")
	// ErrLocked reports a project directory held by another writer.
	ErrLocked = errors.New("project is locked by another writer")
)

// Granter mediates user access to a storage root. Grant returns the resolved
// root the backend may use, or ErrCancelled when the user declines.
type Granter interface {
	Grant(ctx context.Context, target string, access Access) (string, error)
}

// GranterFunc adapts a function to Granter.
type GranterFunc func(ctx context.Context, target string, access Access) (string, error)

// Grant implements Granter.
func (f GranterFunc) Grant(ctx context.Context, target string, access Access) (string, error) {
	return f(ctx, target, access)
}

// AllowAll grants every request for the absolute form of the target.
var AllowAll Granter = GranterFunc(func(ctx context.Context, target string, _ Access) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return filepath.Abs(target)
})
