package tracker

// Completion indicates whether an operation ran to the end or was cancelled.
type Completion int

const (
	Finished Completion = iota
	Aborted
)

func (c Completion) String() string {
	switch c {
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	default:
		return ""
	}
}

// MarshalJSON renders the completion as its string form.
func (c Completion) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// DirectoryCounts aggregates directories per tracking status.
type DirectoryCounts struct {
	Current  int `json:"current"`
	Outdated int `json:"outdated"`
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Orphaned int `json:"orphaned"`
}

// Add increments the counter bucket for the given status.
func (c *DirectoryCounts) Add(status DirTrackingStatus) {
	switch status {
	case StatusCurrent:
		c.Current++
	case StatusOutdated:
		c.Outdated++
	case StatusAdded:
		c.Added++
	case StatusModified:
		c.Modified++
	case StatusOrphaned:
		c.Orphaned++
	}
}

// Total returns the number of directories across all buckets.
func (c DirectoryCounts) Total() int {
	return c.Current + c.Outdated + c.Added + c.Modified + c.Orphaned
}

// ScanOutcome summarizes one scan operation. Created once per operation and
// never mutated after return.
type ScanOutcome struct {
	Root        string          `json:"root"`
	Completion  Completion      `json:"completion"`
	Directories DirectoryCounts `json:"directories"`
}

// TrackCounts buckets the per-file results of an import pass.
type TrackCounts struct {
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Unchanged   int `json:"unchanged"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	NotImported int `json:"not_imported"`
	NotCreated  int `json:"not_created"`
	NotUpdated  int `json:"not_updated"`
}

// ImportDirCounts buckets the per-directory results of an import pass.
type ImportDirCounts struct {
	Confirmed int `json:"confirmed"`
	Skipped   int `json:"skipped"`
	Untracked int `json:"untracked"`
}

// FileIssue records non-fatal diagnostics for one file.
type FileIssue struct {
	Path     string   `json:"path"`
	Messages []string `json:"messages"`
}

// ImportOutcome summarizes one import operation.
type ImportOutcome struct {
	Root        string          `json:"root"`
	Completion  Completion      `json:"completion"`
	Tracks      TrackCounts     `json:"tracks"`
	Directories ImportDirCounts `json:"directories"`
	Issues      []FileIssue     `json:"issues,omitempty"`
}

// UntrackOutcome summarizes one untrack operation.
type UntrackOutcome struct {
	Root      string `json:"root"`
	Untracked int    `json:"untracked"`
}

// PurgeOutcome summarizes one purge operation.
type PurgeOutcome struct {
	Purged int `json:"purged"`
}
