package tracker

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display. Step
// carries the cumulative unit-of-work counter; Total is zero when the total
// is unknown up front (scans discover directories as they go).
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Cumulative units of work completed
	Total   int    // Total units in this phase, 0 if unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ScanDirectories Phase = iota
	SweepOrphans
	ImportFiles
	ImportDirectories
	UntrackDirectories
	PurgeSources
	RelocatePaths
)

func (p Phase) String() string {
	switch p {
	case ScanDirectories:
		return "scan_directories"
	case SweepOrphans:
		return "sweep_orphans"
	case ImportFiles:
		return "import_files"
	case ImportDirectories:
		return "import_directories"
	case UntrackDirectories:
		return "untrack_directories"
	case PurgeSources:
		return "purge_sources"
	case RelocatePaths:
		return "relocate_paths"
	default:
		return ""
	}
}

func scanDirUpdate(step int, path string, status DirTrackingStatus, counts DirectoryCounts) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanDirectories,
		Step:    step,
		Message: fmt.Sprintf("[%d] %s → %s", step, displayPath(path), status),
		Data:    counts,
	}
}

func orphanUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SweepOrphans,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Orphaned: %s", displayPath(path)),
	}
}

func importFileUpdate(step int, path, bucket string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportFiles,
		Step:    step,
		Message: fmt.Sprintf("[%d] %s: %s", step, bucket, displayPath(path)),
	}
}

func importDirUpdate(step, total int, path string, confirmed bool) ProgressUpdate {
	state := "confirmed"
	if !confirmed {
		state = "outstanding"
	}
	return ProgressUpdate{
		Phase:   ImportDirectories,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, displayPath(path), state),
	}
}

func untrackUpdate(root string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UntrackDirectories,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Untracked %d directories under %s", count, displayPath(root)),
	}
}

func purgeUpdate(root string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PurgeSources,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Purged %d media sources under %s", count, displayPath(root)),
	}
}

func relocateUpdate(oldPrefix, newPrefix string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RelocatePaths,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Relocated %d rows: %s → %s", count, displayPath(oldPrefix), displayPath(newPrefix)),
	}
}

// displayPath renders the collection root as "." instead of an empty string.
func displayPath(p string) string {
	if p == "" {
		return "."
	}
	return p
}
