package events

import "time"

// GraphQLStart is emitted before executing a GraphQL request.
type GraphQLStart struct {
	RequestID     string
	Query         string
	OperationName string
}

// GraphQLFinish is emitted after executing a GraphQL request.
type GraphQLFinish struct {
	RequestID     string
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
	FromCache     bool
	ResolverCalls int64
	OutputObjects int64
}

// FieldStart is emitted before resolving a top-level field.
type FieldStart struct {
	RequestID string
	Field     string
	Path      string
}

// FieldFinish is emitted once a top-level field and its subtree are resolved.
// Failed is set when the field could not produce a value for its non-null type.
type FieldFinish struct {
	RequestID string
	Field     string
	Path      string
	Failed    bool
	Duration  time.Duration
}

// CacheLookup is emitted for each lookup in the request cache.
type CacheLookup struct {
	Hit bool
}
