package events

import "time"

// GraphQLStart is published once a document has parsed and validated, just
// before it executes. A batched request publishes one per entry. Variables
// counts the variables supplied with the request.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
	Variables     int
}

// GraphQLFinish is published after execution. Partial is set when data came
// back alongside field errors.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Variables     int
	Errors        []error
	Partial       bool
	Duration      time.Duration
}
