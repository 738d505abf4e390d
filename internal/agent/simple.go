// Package agent contains the workmate workflows: a general task agent, a
// multi-agent research pipeline and a product analyzer, all executed on the
// internal state-graph engine.
package agent

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"workmate/internal/config"
	"workmate/internal/graph"
	"workmate/internal/llm"
	"workmate/internal/log"
)

// Message is one entry of a workflow transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SimpleState is the state threaded through the simple agent graph.
type SimpleState struct {
	Messages       []Message `json:"messages"`
	CurrentTask    string    `json:"current_task"`
	Result         string    `json:"result"`
	IterationCount int       `json:"iteration_count"`
}

// SimpleResult is what a simple agent run returns.
type SimpleResult struct {
	Task           string    `json:"task"`
	Result         string    `json:"result"`
	Messages       []Message `json:"messages"`
	IterationCount int       `json:"iteration_count"`
}

// SimpleAgent analyzes a task, processes it, and finalizes the result as a
// three-node pipeline.
type SimpleAgent struct {
	model    llms.Model
	settings *config.Settings
	logger   *log.Logger
	runnable *graph.Runnable[SimpleState]
}

// NewSimpleAgent builds the agent graph. modelOverride selects a model other
// than the configured default; empty means the default.
func NewSimpleAgent(settings *config.Settings, logger *log.Logger, modelOverride string) (*SimpleAgent, error) {
	cfg, err := settings.LLMConfig(modelOverride, nil)
	if err != nil {
		return nil, err
	}
	model, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewSimpleAgentWithModel(settings, logger, model)
}

// NewSimpleAgentWithModel wires the graph around an existing model, the
// seam tests use to substitute a mock.
func NewSimpleAgentWithModel(settings *config.Settings, logger *log.Logger, model llms.Model) (*SimpleAgent, error) {
	a := &SimpleAgent{model: model, settings: settings, logger: logger}

	g := graph.NewStateGraph[SimpleState]()
	g.AddNode("analyze_task", "Analyze the incoming task", a.analyzeTask)
	g.AddNode("process_task", "Process the main task", a.processTask)
	g.AddNode("finalize_result", "Finalize the result", a.finalizeResult)
	g.SetEntryPoint("analyze_task")
	g.AddEdge("analyze_task", "process_task")
	g.AddEdge("process_task", "finalize_result")
	g.AddEdge("finalize_result", graph.END)
	g.SetRetryConfig(graph.DefaultRetryConfig())

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	runnable.SetMaxSteps(settings.MaxIterations)
	a.runnable = runnable
	return a, nil
}

func (a *SimpleAgent) analyzeTask(ctx context.Context, state SimpleState) (SimpleState, error) {
	prompt := fmt.Sprintf(
		"Analyze this task and determine the best approach:\nTask: %s\n\nProvide a brief analysis of what needs to be done.",
		state.CurrentTask)

	analysis, err := llm.GenerateWithSystem(ctx, a.model,
		"You are a helpful assistant that analyzes tasks.",
		prompt, a.settings.Temperature)
	if err != nil {
		return state, err
	}

	state.Messages = append(state.Messages, Message{Role: "analysis", Content: analysis})
	return state, nil
}

func (a *SimpleAgent) processTask(ctx context.Context, state SimpleState) (SimpleState, error) {
	analysis := ""
	if n := len(state.Messages); n > 0 {
		analysis = state.Messages[n-1].Content
	}

	prompt := fmt.Sprintf(
		"Based on the analysis: %s\n\nNow complete this task: %s\n\nProvide a detailed and helpful response.",
		analysis, state.CurrentTask)

	response, err := llm.GenerateWithSystem(ctx, a.model,
		"You are a helpful assistant that completes tasks efficiently.",
		prompt, a.settings.Temperature)
	if err != nil {
		return state, err
	}

	state.Messages = append(state.Messages, Message{Role: "processing", Content: response})
	return state, nil
}

func (a *SimpleAgent) finalizeResult(_ context.Context, state SimpleState) (SimpleState, error) {
	if n := len(state.Messages); n > 0 {
		state.Result = state.Messages[n-1].Content
	}
	state.IterationCount++
	return state, nil
}

// Run executes the agent for one task.
func (a *SimpleAgent) Run(ctx context.Context, task string) (*SimpleResult, error) {
	initial := SimpleState{CurrentTask: task}

	final, err := a.runnable.InvokeWithTracer(ctx, initial,
		tracerFor(a.settings, a.logger, "simple-agent"))
	if err != nil {
		return nil, err
	}

	return &SimpleResult{
		Task:           task,
		Result:         final.Result,
		Messages:       final.Messages,
		IterationCount: final.IterationCount,
	}, nil
}
