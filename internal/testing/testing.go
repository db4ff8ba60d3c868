// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cadenza-music/cadenza/internal/importer"
	"github.com/cadenza-music/cadenza/internal/models"
)

// MockImporter is a test double for [importer.Importer].
//
// When ImportFunc is nil it produces a track titled with the file contents,
// so tests can drive metadata through plain text fixtures.
type MockImporter struct {
	ImportFunc func(data []byte, existing *models.Track, cfg importer.Config) (*importer.Result, error)
	Calls      int
}

func (m *MockImporter) Import(data []byte, existing *models.Track, cfg importer.Config) (*importer.Result, error) {
	m.Calls++
	if m.ImportFunc != nil {
		return m.ImportFunc(data, existing, cfg)
	}
	return &importer.Result{
		Track:       models.NewTrack(string(data)),
		ContentType: "audio/mpeg",
	}, nil
}

// WriteTree creates the given files under root, making parent directories as
// needed. Keys are slash-separated relative paths.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file %s: %v", rel, err)
		}
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}
