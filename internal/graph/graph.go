// Package graph implements the state-graph engine that runs the agent
// workflows: named nodes connected by plain and conditional edges, executed
// one node at a time from an entry point until END.
package graph

import (
	"context"
	"errors"
	"time"
)

// END is the sentinel target that terminates graph execution.
const END = "END"

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when execution reaches an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when a node has no edge to follow.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrStepBudgetExceeded is returned when a run exceeds its step budget,
	// guarding against routing cycles.
	ErrStepBudgetExceeded = errors.New("step budget exceeded")
)

// Node is a named unit of work over the state type S.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes what the node does.
	Description string

	// Function transforms the state and returns the updated state.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge connects two nodes by name.
type Edge struct {
	From string
	To   string
}

// Tracer receives execution events. Implementations must be safe for use
// from a single run goroutine; the engine never calls a tracer concurrently
// within one run.
type Tracer interface {
	OnGraphStart(ctx context.Context, entryPoint string)
	OnGraphEnd(ctx context.Context, elapsed time.Duration)
	OnNodeStart(ctx context.Context, node string)
	OnNodeEnd(ctx context.Context, node string, elapsed time.Duration)
	OnNodeError(ctx context.Context, node string, err error)
}
