package events

import "time"

// ResolverStart is emitted before a registered field resolver runs.
type ResolverStart struct {
	ObjectType string
	Field      string
	Path       string
}

// ResolverFinish is emitted after a registered field resolver returns.
// Err is set for both returned errors and recovered panics.
type ResolverFinish struct {
	ObjectType string
	Field      string
	Path       string
	Err        error
	Duration   time.Duration
}
