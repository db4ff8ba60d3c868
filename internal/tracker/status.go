package tracker

import (
	"bytes"
	"fmt"

	"github.com/cadenza-music/cadenza/internal/shared"
)

// DirTrackingStatus is the per-directory change-detection state.
type DirTrackingStatus int

const (
	StatusCurrent DirTrackingStatus = iota
	StatusOutdated
	StatusAdded
	StatusModified
	StatusOrphaned
)

func (s DirTrackingStatus) String() string {
	switch s {
	case StatusCurrent:
		return "current"
	case StatusOutdated:
		return "outdated"
	case StatusAdded:
		return "added"
	case StatusModified:
		return "modified"
	case StatusOrphaned:
		return "orphaned"
	default:
		return ""
	}
}

// ParseDirTrackingStatus parses the persisted string form of a status.
func ParseDirTrackingStatus(s string) (DirTrackingStatus, error) {
	switch s {
	case "current":
		return StatusCurrent, nil
	case "outdated":
		return StatusOutdated, nil
	case "added":
		return StatusAdded, nil
	case "modified":
		return StatusModified, nil
	case "orphaned":
		return StatusOrphaned, nil
	default:
		return 0, fmt.Errorf("%w: unknown tracking status %q", shared.ErrInvalidInput, s)
	}
}

// IsStale reports whether the directory's stored state no longer matches the
// filesystem.
func (s DirTrackingStatus) IsStale() bool {
	return s == StatusOutdated || s == StatusAdded || s == StatusModified
}

// IsPending reports whether the directory requires import work.
func (s DirTrackingStatus) IsPending() bool {
	return s == StatusAdded || s == StatusModified || s == StatusOutdated
}

// DirState is the stored (digest, status) pair for a tracked directory.
type DirState struct {
	Digest []byte
	Status DirTrackingStatus
}

// Classify is the pure transition function of the tracking state machine.
//
// prior is the stored state, or nil when the directory was never tracked.
// observed is the freshly computed listing digest, or nil when the directory
// no longer exists. Outdated is set by the import pass when a directory's
// files could not all be confirmed; a matching digest preserves it so the
// outstanding work is not lost to an intervening scan.
func Classify(prior *DirState, observed []byte) DirTrackingStatus {
	switch {
	case observed == nil:
		return StatusOrphaned
	case prior == nil:
		return StatusAdded
	case bytes.Equal(prior.Digest, observed):
		if prior.Status == StatusOutdated {
			return StatusOutdated
		}
		return StatusCurrent
	default:
		return StatusModified
	}
}
