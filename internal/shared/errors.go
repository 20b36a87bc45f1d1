package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Collaborator errors
	ErrDownloaderMissing = fmt.Errorf("downloader executable not found")
	ErrDownloadFailed    = fmt.Errorf("download failed")
	ErrInvalidInfo       = fmt.Errorf("invalid downloader response")
	ErrTagWriteFailed    = fmt.Errorf("tag write failed")
	ErrImporterMissing   = fmt.Errorf("import executable not found")
	ErrImportFailed      = fmt.Errorf("import failed")

	// Cache and history errors
	ErrCacheLocked      = fmt.Errorf("cache directory is locked by another process")
	ErrDownloadNotFound = fmt.Errorf("download not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
