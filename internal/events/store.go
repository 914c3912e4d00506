package events

import "time"

// StoreFinish is emitted after each collection call of an instrumented store.
type StoreFinish struct {
	Backend    string
	Collection string
	Op         string
	Records    int
	Err        error
	Duration   time.Duration
}
