// Package models holds the shared value types of the conversion engine:
// providers, playlists, tracks, connections, match candidates, and conversion
// jobs with their reports.
//
// Types here carry no behavior beyond validation and simple derivations so
// that every other package can depend on them without import cycles.
package models
