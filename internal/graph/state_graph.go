package graph

import (
	"context"
	"fmt"
	"time"
)

// StateGraph is a builder for a typed workflow graph. The type parameter S
// is the workflow state, threaded through every node.
type StateGraph[S any] struct {
	nodes            map[string]Node[S]
	edges            []Edge
	conditionalEdges map[string]func(ctx context.Context, state S) string
	entryPoint       string
	retry            *RetryConfig
}

// NewStateGraph creates an empty state graph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
	}
}

// AddNode registers a node under the given name.
func (g *StateGraph[S]) AddNode(name, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge connects from -> to. The target may be END.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge registers a router for the node: the returned name is
// the next node to execute (or END). A conditional edge takes precedence
// over plain edges from the same node.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the node execution starts from.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryConfig applies retry behavior to every node in the graph.
func (g *StateGraph[S]) SetRetryConfig(cfg *RetryConfig) {
	g.retry = cfg
}

// Compile validates the graph and returns a Runnable. Edges referencing
// unknown nodes are rejected here rather than at run time.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %q", ErrNodeNotFound, g.entryPoint)
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge source %q", ErrNodeNotFound, e.From)
		}
		if e.To != END {
			if _, ok := g.nodes[e.To]; !ok {
				return nil, fmt.Errorf("%w: edge target %q", ErrNodeNotFound, e.To)
			}
		}
	}
	return &Runnable[S]{graph: g}, nil
}

// Runnable is a compiled graph ready for execution.
type Runnable[S any] struct {
	graph    *StateGraph[S]
	tracer   Tracer
	maxSteps int
}

// SetTracer attaches an execution tracer. A nil tracer disables tracing.
func (r *Runnable[S]) SetTracer(t Tracer) {
	r.tracer = t
}

// SetMaxSteps bounds the number of node executions per run. Zero means
// no bound.
func (r *Runnable[S]) SetMaxSteps(n int) {
	r.maxSteps = n
}

// Invoke executes the graph from the entry point until END, returning the
// final state. The context is checked between nodes; cancellation aborts
// the run with ctx.Err.
func (r *Runnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithTracer(ctx, initialState, r.tracer)
}

// InvokeWithTracer runs the graph with a per-run tracer, so concurrent runs
// of one compiled graph can each carry their own trace identity.
func (r *Runnable[S]) InvokeWithTracer(ctx context.Context, initialState S, tracer Tracer) (S, error) {
	var zero S
	state := initialState
	current := r.graph.entryPoint
	started := time.Now()
	steps := 0

	if tracer != nil {
		tracer.OnGraphStart(ctx, current)
	}

	for current != END {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if r.maxSteps > 0 && steps >= r.maxSteps {
			return zero, fmt.Errorf("%w: %d steps", ErrStepBudgetExceeded, steps)
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return zero, fmt.Errorf("%w: %q", ErrNodeNotFound, current)
		}

		var err error
		state, err = r.runNode(ctx, node, state, tracer)
		if err != nil {
			if tracer != nil {
				tracer.OnNodeError(ctx, node.Name, err)
			}
			return zero, fmt.Errorf("node %s: %w", node.Name, err)
		}

		current, err = r.next(ctx, node.Name, state)
		if err != nil {
			return zero, err
		}
		steps++
	}

	if tracer != nil {
		tracer.OnGraphEnd(ctx, time.Since(started))
	}
	return state, nil
}

func (r *Runnable[S]) runNode(ctx context.Context, node Node[S], state S, tracer Tracer) (S, error) {
	nodeStart := time.Now()
	if tracer != nil {
		tracer.OnNodeStart(ctx, node.Name)
	}

	run := node.Function
	if r.graph.retry != nil {
		run = withRetry(node.Function, r.graph.retry)
	}

	out, err := run(ctx, state)
	if err == nil && tracer != nil {
		tracer.OnNodeEnd(ctx, node.Name, time.Since(nodeStart))
	}
	return out, err
}

func (r *Runnable[S]) next(ctx context.Context, from string, state S) (string, error) {
	if condition, ok := r.graph.conditionalEdges[from]; ok {
		return condition(ctx, state), nil
	}
	for _, e := range r.graph.edges {
		if e.From == from {
			return e.To, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoOutgoingEdge, from)
}
