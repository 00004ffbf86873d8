package media

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedProfile is returned when an encoder cannot produce a profile
	ErrUnsupportedProfile = errors.New("unsupported encoding profile")

	// ErrCapabilityMissing is matched by every *CapabilityError
	ErrCapabilityMissing = errors.New("required capability is not available")

	// ErrExportInProgress is returned when a second export is started
	ErrExportInProgress = errors.New("an export is already in progress")

	// ErrSeekTimeout is returned when a seek is not acknowledged in time
	ErrSeekTimeout = errors.New("seek did not complete")

	// ErrNoMedia is returned by operations that need a loaded media
	ErrNoMedia = errors.New("no media loaded")

	// ErrClosed is returned when using a released resource
	ErrClosed = errors.New("resource closed")
)

// CapabilityError describes a missing runtime capability
type CapabilityError struct {
	Name string
	Hint string
}

func (e *CapabilityError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("capability %q is not available", e.Name)
	}
	return fmt.Sprintf("capability %q is not available: %s", e.Name, e.Hint)
}

// Is makes errors.Is(err, ErrCapabilityMissing) succeed
func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapabilityMissing
}
