// package shared holds helpers used across the conversion engine
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a [log.Logger] writing to w with timestamps and caller
// reporting enabled.
//
// A nil writer falls back to [os.Stderr].
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger derives a child [log.Logger] carrying the given key-value pairs
// on every entry. Components tag themselves this way so job logs interleave
// legibly.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] on the given logger.
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID returns a new v4 UUID string, used for connection, playlist
// cache, and job row IDs.
func GenerateID() string {
	return uuid.New().String()
}
