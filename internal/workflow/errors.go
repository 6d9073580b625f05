package workflow

import (
	"errors"
	"fmt"

	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/foxseedlab/tunesmith/internal/media"
)

type IngestErrorKind int

const (
	IngestTooLarge IngestErrorKind = iota + 1
	IngestDownloadFailed
	IngestDirectoryCreateFailed
)

func (k IngestErrorKind) String() string {
	switch k {
	case IngestTooLarge:
		return "too_large"
	case IngestDownloadFailed:
		return "download_failed"
	case IngestDirectoryCreateFailed:
		return "directory_create_failed"
	default:
		return "unknown"
	}
}

type IngestError struct {
	Kind IngestErrorKind
	Err  error
}

func (e *IngestError) Error() string {
	if e.Err == nil {
		return "ingest: " + e.Kind.String()
	}
	return fmt.Sprintf("ingest: %s: %v", e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// errorMessageKey maps a failed action onto the message shown to the user.
func errorMessageKey(err error) i18n.Key {
	var ingestErr *IngestError
	if errors.As(err, &ingestErr) {
		switch ingestErr.Kind {
		case IngestTooLarge:
			return i18n.ErrTooLargeFile
		case IngestDirectoryCreateFailed:
			return i18n.ErrCreatingFolder
		default:
			return i18n.ErrDownload
		}
	}
	switch {
	case errors.Is(err, media.ErrUnreadableTags):
		return i18n.ErrReadingTags
	case errors.Is(err, media.ErrTagWriteFailed):
		return i18n.ErrUpdatingTags
	case errors.Is(err, media.ErrNotImplemented):
		return i18n.ErrNotImplemented
	case errors.Is(err, media.ErrTranscodeTimeout):
		return i18n.ErrTranscodeTimeout
	case errors.Is(err, media.ErrToolFailure):
		return i18n.ErrTranscode
	default:
		return i18n.ErrUnexpected
	}
}
