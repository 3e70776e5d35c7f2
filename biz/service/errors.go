package service

import (
	"errors"
	"fmt"
)

var (
	ErrCarouselFull      = errors.New("carousel already holds the maximum number of slots")
	ErrStoreWriteFailure = errors.New("storage write failed")
	ErrForbidden         = errors.New("forbidden")
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrSlotNotFound      = errors.New("carousel slot not found")
	ErrAssetNotFound     = errors.New("object not found or unreadable")
	ErrObjectStoreOff    = errors.New("object store is not configured")
	ErrInvalidInput      = errors.New("invalid input")
)

// QuotaWindow names a calendar-aligned accounting period.
type QuotaWindow string

const (
	WindowDay   QuotaWindow = "day"
	WindowMonth QuotaWindow = "month"
)

// QuotaExceededError rejects an upload that would push the user past a limit.
type QuotaExceededError struct {
	Window   QuotaWindow
	Limit    int64
	Used     int64
	Incoming int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s upload quota exceeded: used %d + incoming %d > limit %d",
		e.Window, e.Used, e.Incoming, e.Limit)
}

// IngestFailedError reports that neither backend accepted an upload.
// It wraps ErrStoreWriteFailure.
type IngestFailedError struct {
	Key string
}

func (e *IngestFailedError) Error() string {
	return fmt.Sprintf("ingest failed: no backend accepted %s", e.Key)
}

func (e *IngestFailedError) Unwrap() error { return ErrStoreWriteFailure }

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
