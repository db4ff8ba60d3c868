package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Synchronization error taxonomy.
	//
	// ErrInvalidInput covers bad roots, paths, and parameters rejected before
	// any I/O. ErrIO covers filesystem access failures for a single entry.
	// ErrImport covers metadata extraction failures for a single file.
	// ErrStorage covers transaction or consistency failures from the catalog;
	// it aborts the current batch only.
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrIO           = fmt.Errorf("filesystem access failed")
	ErrImport       = fmt.Errorf("metadata import failed")
	ErrStorage      = fmt.Errorf("storage operation failed")

	// Catalog lookup errors
	ErrCollectionNotFound = fmt.Errorf("collection not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrSourceNotFound     = fmt.Errorf("media source not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Path resolution errors
	ErrUnsupportedScheme = fmt.Errorf("unsupported location scheme")
	ErrPathOutsideRoot   = fmt.Errorf("path outside collection root")
)
