package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"workmate/internal/config"
	"workmate/internal/graph"
	"workmate/internal/log"
)

// RunTracer logs workflow execution under a LangSmith-style project name.
// It is attached to a runnable only when tracing is configured.
type RunTracer struct {
	log      *log.Logger
	project  string
	workflow string
	runID    string
}

// NewRunTracer creates a tracer for one workflow run.
func NewRunTracer(logger *log.Logger, project, workflow string) *RunTracer {
	return &RunTracer{
		log:      logger,
		project:  project,
		workflow: workflow,
		runID:    uuid.New().String(),
	}
}

func (t *RunTracer) OnGraphStart(_ context.Context, entryPoint string) {
	t.log.Info("[%s] %s run %s started at %s", t.project, t.workflow, t.runID, entryPoint)
}

func (t *RunTracer) OnGraphEnd(_ context.Context, elapsed time.Duration) {
	t.log.Info("[%s] %s run %s finished in %s", t.project, t.workflow, t.runID, elapsed)
}

func (t *RunTracer) OnNodeStart(_ context.Context, node string) {
	t.log.Debug("[%s] %s run %s -> %s", t.project, t.workflow, t.runID, node)
}

func (t *RunTracer) OnNodeEnd(_ context.Context, node string, elapsed time.Duration) {
	t.log.Debug("[%s] %s run %s <- %s (%s)", t.project, t.workflow, t.runID, node, elapsed)
}

func (t *RunTracer) OnNodeError(_ context.Context, node string, err error) {
	t.log.Error("[%s] %s run %s failed at %s: %v", t.project, t.workflow, t.runID, node, err)
}

// tracerFor returns a tracer when the settings enable tracing, nil otherwise.
func tracerFor(settings *config.Settings, logger *log.Logger, workflow string) graph.Tracer {
	if logger == nil || !settings.TracingEnabled() {
		return nil
	}
	return NewRunTracer(logger, settings.LangsmithProject, workflow)
}
