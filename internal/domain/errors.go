package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrServerUnreachable indicates the music server could not be reached
	ErrServerUnreachable = errors.New("music server is unreachable")

	// ErrAuthFailed indicates the server rejected the credentials
	ErrAuthFailed = errors.New("authentication failed")

	// ErrListingFailed indicates the album listing could not be started,
	// so a sync cycle was aborted without touching the cache
	ErrListingFailed = errors.New("album listing unavailable")

	// ErrAlbumNotFound indicates the requested album does not exist
	ErrAlbumNotFound = errors.New("album not found")
)

// APIError is a logical failure reported inside a successful server
// response (the Subsonic error envelope). It is distinguishable from
// transport failures so callers can decide whether to degrade or abort.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}
