// package vfs maps persisted content paths to filesystem locations
package vfs

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/cadenza-music/cadenza/internal/shared"
)

// Resolver bijectively maps a collection-relative content path to an
// absolute location URL and back.
//
// Content paths are slash separated and relative to the collection root; the
// empty string denotes the root itself. Resolution fails explicitly for
// unsupported schemes and for locations outside the root.
type Resolver interface {
	PathToLocation(p string) (*url.URL, error)
	LocationToPath(loc *url.URL) (string, error)
}

// FileURLResolver resolves content paths under a local filesystem root to
// file:// URLs.
type FileURLResolver struct {
	root string
}

// NewFileURLResolver creates a resolver rooted at the given directory.
// Relative roots are made absolute against the working directory.
func NewFileURLResolver(root string) (*FileURLResolver, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: resolver root is required", shared.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	return &FileURLResolver{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute filesystem root of the resolver.
func (r *FileURLResolver) Root() string {
	return r.root
}

// PathToLocation maps a content path to its file:// URL.
func (r *FileURLResolver) PathToLocation(p string) (*url.URL, error) {
	if err := ValidateContentPath(p); err != nil {
		return nil, err
	}
	abs := filepath.Join(r.root, filepath.FromSlash(p))
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}

// LocationToPath maps a file:// URL back to its content path.
func (r *FileURLResolver) LocationToPath(loc *url.URL) (string, error) {
	abs, err := FilesystemPath(loc)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is not under %s", shared.ErrPathOutsideRoot, abs, r.root)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// FilesystemPath extracts the local filesystem path from a file:// URL.
func FilesystemPath(loc *url.URL) (string, error) {
	if loc.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", shared.ErrUnsupportedScheme, loc.Scheme)
	}
	return filepath.FromSlash(loc.Path), nil
}

// ValidateContentPath rejects content paths that are absolute, escape the
// root, or are not in normalized slash form.
func ValidateContentPath(p string) error {
	if p == "" {
		return nil
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: content path %q must be relative", shared.ErrInvalidInput, p)
	}
	clean := path.Clean(p)
	if clean != p {
		return fmt.Errorf("%w: content path %q is not normalized", shared.ErrInvalidInput, p)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: content path %q", shared.ErrPathOutsideRoot, p)
	}
	return nil
}
