package tracker

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/cadenza-music/cadenza/internal/shared"
)

// DigestSize is the byte length of directory and file digests.
const DigestSize = sha256.Size

// EntryMeta is the metadata of one directory entry that feeds the digest.
type EntryMeta struct {
	Name  string
	IsDir bool
	Size  int64
	MTime time.Time
}

// ReadEntryMeta reads the immediate (non-recursive) listing of dir.
//
// Entries whose metadata cannot be read are skipped; the listing itself
// failing is an error.
func ReadEntryMeta(dir string) ([]EntryMeta, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrIO, err)
	}

	metas := make([]EntryMeta, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		metas = append(metas, EntryMeta{
			Name:  entry.Name(),
			IsDir: entry.IsDir(),
			Size:  info.Size(),
			MTime: info.ModTime(),
		})
	}

	return metas, nil
}

// DirectoryDigest computes the deterministic content digest of a directory's
// immediate listing.
//
// The listing is normalized by sorting on entry name before hashing, so
// filesystem ordering never affects the digest. Any change to an entry's
// name, kind, size, or modification time, or adding/removing entries,
// produces a different digest. File contents are never opened.
func DirectoryDigest(entries []EntryMeta) []byte {
	sorted := make([]EntryMeta, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	var buf [8]byte
	for _, e := range sorted {
		io.WriteString(h, e.Name)
		kind := byte(0)
		if e.IsDir {
			kind = 1
		}
		h.Write([]byte{0, kind})
		binary.BigEndian.PutUint64(buf[:], uint64(e.Size))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(e.MTime.UnixNano()))
		h.Write(buf[:])
	}
	return h.Sum(nil)
}

// FileDigest computes the content digest of a single file's bytes.
//
// Unlike [DirectoryDigest] this reads the actual contents; file-level change
// detection requires it.
func FileDigest(r io.Reader) ([]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrIO, err)
	}
	return h.Sum(nil), nil
}

// FileDigestBytes computes the content digest of in-memory file bytes.
func FileDigestBytes(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
