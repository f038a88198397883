package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrNotConnected   = fmt.Errorf("provider not connected")
	ErrTokenExpired   = fmt.Errorf("access token expired")
	ErrReauthRequired = fmt.Errorf("reauthorization required")

	// Provider errors
	ErrRateLimited         = fmt.Errorf("rate limited by provider")
	ErrProviderUnavailable = fmt.Errorf("provider unavailable")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found")
	ErrTrackNotFound       = fmt.Errorf("track not found")
	ErrPermissionDenied    = fmt.Errorf("permission denied")

	// Request errors
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrConversionInFlight = fmt.Errorf("conversion already in flight")
	ErrJobNotFound        = fmt.Errorf("job not found")
	ErrCancelled          = fmt.Errorf("cancelled")
)

// IsTransientProviderError reports whether a provider error is worth retrying.
//
// Rate limits, timeouts, and 5xx responses are transient; not-found and
// permission errors are permanent.
func IsTransientProviderError(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}

// IsAuthError reports whether an error belongs to the authentication taxonomy.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrReauthRequired)
}
