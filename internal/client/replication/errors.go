package replication

import "errors"

var (
	// ErrAlreadyStarted Start called on a running replicator
	ErrAlreadyStarted = errors.New("replication already started")

	// ErrCheckpointStalled server returned documents without advancing the checkpoint
	ErrCheckpointStalled = errors.New("checkpoint did not advance")
)
