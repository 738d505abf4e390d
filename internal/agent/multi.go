package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"workmate/internal/config"
	"workmate/internal/graph"
	"workmate/internal/llm"
	"workmate/internal/log"
)

// MultiState is the state shared by the collaborating agents.
type MultiState struct {
	OriginalQuery    string `json:"original_query"`
	CurrentTask      string `json:"current_task"`
	ResearcherOutput string `json:"researcher_output"`
	AnalystOutput    string `json:"analyst_output"`
	WriterOutput     string `json:"writer_output"`
	FinalResult      string `json:"final_result"`
	NextAgent        string `json:"next_agent"`
	IterationCount   int    `json:"iteration_count"`
}

// MultiResult is what a workflow run returns.
type MultiResult struct {
	Query            string `json:"query"`
	FinalResult      string `json:"final_result"`
	ResearcherOutput string `json:"researcher_output"`
	AnalystOutput    string `json:"analyst_output"`
	WriterOutput     string `json:"writer_output"`
	IterationCount   int    `json:"iteration_count"`
}

// MultiAgentWorkflow coordinates researcher, analyst and writer agents over
// one shared state. The coordinator routes the query to its starting agent;
// downstream agents run in a fixed pipeline.
type MultiAgentWorkflow struct {
	model    llms.Model
	settings *config.Settings
	logger   *log.Logger
	runnable *graph.Runnable[MultiState]
}

// NewMultiAgentWorkflow builds the workflow graph using the configured or
// overridden model.
func NewMultiAgentWorkflow(settings *config.Settings, logger *log.Logger, modelOverride string) (*MultiAgentWorkflow, error) {
	cfg, err := settings.LLMConfig(modelOverride, nil)
	if err != nil {
		return nil, err
	}
	model, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewMultiAgentWorkflowWithModel(settings, logger, model)
}

// NewMultiAgentWorkflowWithModel wires the graph around an existing model.
func NewMultiAgentWorkflowWithModel(settings *config.Settings, logger *log.Logger, model llms.Model) (*MultiAgentWorkflow, error) {
	w := &MultiAgentWorkflow{model: model, settings: settings, logger: logger}

	g := graph.NewStateGraph[MultiState]()
	g.AddNode("coordinator", "Route the query to its starting agent", w.coordinator)
	g.AddNode("researcher", "Gather information", w.researcher)
	g.AddNode("analyst", "Analyze gathered information", w.analyst)
	g.AddNode("writer", "Write the final response", w.writer)
	g.AddNode("finalizer", "Finalize the result", w.finalizer)

	g.SetEntryPoint("coordinator")
	g.AddConditionalEdge("coordinator", func(_ context.Context, s MultiState) string {
		switch s.NextAgent {
		case "researcher", "analyst", "writer":
			return s.NextAgent
		}
		return graph.END
	})
	g.AddEdge("researcher", "analyst")
	g.AddEdge("analyst", "writer")
	g.AddEdge("writer", "finalizer")
	g.AddEdge("finalizer", graph.END)
	g.SetRetryConfig(graph.DefaultRetryConfig())

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	runnable.SetMaxSteps(settings.MaxIterations)
	w.runnable = runnable
	return w, nil
}

// coordinator picks the starting agent from the query wording. Research
// verbs start at the researcher, analytical verbs at the analyst, everything
// else defaults to the researcher so the full pipeline runs.
func (w *MultiAgentWorkflow) coordinator(_ context.Context, state MultiState) (MultiState, error) {
	query := strings.ToLower(state.OriginalQuery)
	switch {
	case strings.Contains(query, "research") || strings.Contains(query, "find"):
		state.NextAgent = "researcher"
	case strings.Contains(query, "analyze") || strings.Contains(query, "compare"):
		state.NextAgent = "analyst"
	default:
		state.NextAgent = "researcher"
	}
	state.CurrentTask = state.OriginalQuery
	return state, nil
}

func (w *MultiAgentWorkflow) researcher(ctx context.Context, state MultiState) (MultiState, error) {
	prompt := fmt.Sprintf(
		"You are a research specialist. Your job is to gather comprehensive information.\n\nResearch task: %s\n\nProvide detailed research findings, key facts, and relevant information.\nFocus on accuracy and completeness.",
		state.CurrentTask)

	out, err := llm.GenerateWithSystem(ctx, w.model,
		"You are an expert researcher.", prompt, w.settings.Temperature)
	if err != nil {
		return state, err
	}
	state.ResearcherOutput = out
	return state, nil
}

func (w *MultiAgentWorkflow) analyst(ctx context.Context, state MultiState) (MultiState, error) {
	prompt := fmt.Sprintf(
		"You are an analysis specialist. Analyze the research data and provide insights.\n\nResearch Data: %s\nOriginal Task: %s\n\nProvide detailed analysis, identify patterns, draw conclusions, and make recommendations.",
		state.ResearcherOutput, state.CurrentTask)

	out, err := llm.GenerateWithSystem(ctx, w.model,
		"You are an expert analyst.", prompt, w.settings.Temperature)
	if err != nil {
		return state, err
	}
	state.AnalystOutput = out
	return state, nil
}

func (w *MultiAgentWorkflow) writer(ctx context.Context, state MultiState) (MultiState, error) {
	prompt := fmt.Sprintf(
		"You are a professional writer. Create a well-structured, comprehensive response.\n\nResearch: %s\nAnalysis: %s\nOriginal Task: %s\n\nWrite a clear, engaging, and informative response that addresses the original query.",
		state.ResearcherOutput, state.AnalystOutput, state.CurrentTask)

	out, err := llm.GenerateWithSystem(ctx, w.model,
		"You are a professional writer.", prompt, w.settings.Temperature)
	if err != nil {
		return state, err
	}
	state.WriterOutput = out
	return state, nil
}

func (w *MultiAgentWorkflow) finalizer(_ context.Context, state MultiState) (MultiState, error) {
	state.FinalResult = state.WriterOutput
	state.IterationCount++
	return state, nil
}

// Run executes the workflow for one query.
func (w *MultiAgentWorkflow) Run(ctx context.Context, query string) (*MultiResult, error) {
	initial := MultiState{OriginalQuery: query}

	final, err := w.runnable.InvokeWithTracer(ctx, initial,
		tracerFor(w.settings, w.logger, "multi-agent"))
	if err != nil {
		return nil, err
	}

	return &MultiResult{
		Query:            query,
		FinalResult:      final.FinalResult,
		ResearcherOutput: final.ResearcherOutput,
		AnalystOutput:    final.AnalystOutput,
		WriterOutput:     final.WriterOutput,
		IterationCount:   final.IterationCount,
	}, nil
}
