package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Storage errors
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrNotFound           = fmt.Errorf("not found")

	// Catalog errors
	ErrCatalog            = fmt.Errorf("catalog request failed")
	ErrAlbumNotFound      = fmt.Errorf("album not found")
	ErrNothingPlayable    = fmt.Errorf("no playable files")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Session errors
	ErrNoSession  = fmt.Errorf("no playback session in scope")
	ErrNoSnapshot = fmt.Errorf("no saved playback progress")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
