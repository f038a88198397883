package shared

import (
	"fmt"
	"testing"
)

func TestIsTransientProviderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", ErrRateLimited, true},
		{"wrapped rate limit", fmt.Errorf("%w: spotify returned 429", ErrRateLimited), true},
		{"provider unavailable", ErrProviderUnavailable, true},
		{"playlist not found is permanent", ErrPlaylistNotFound, false},
		{"permission denied is permanent", ErrPermissionDenied, false},
		{"auth errors are not transient", ErrTokenExpired, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientProviderError(tt.err); got != tt.want {
				t.Errorf("IsTransientProviderError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"auth failed", ErrAuthFailed, true},
		{"not connected", ErrNotConnected, true},
		{"token expired", ErrTokenExpired, true},
		{"wrapped reauth", fmt.Errorf("%w: refresh failed for youtube", ErrReauthRequired), true},
		{"rate limited is not auth", ErrRateLimited, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()
	if a == "" || b == "" {
		t.Fatal("GenerateID returned an empty string")
	}
	if a == b {
		t.Error("GenerateID returned duplicate IDs")
	}
}
