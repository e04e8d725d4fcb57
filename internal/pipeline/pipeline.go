// Package pipeline runs a lead through the routing workflow: capture, enrich,
// score, then route and summarize, summarize alone, or nurture.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/resilience"
	"github.com/sells-group/lead-router/internal/routing"
)

// Node names of the standard workflow.
const (
	NodeCapture   = "capture"
	NodeEnrich    = "enrich"
	NodeScore     = "score"
	NodeRoute     = "route"
	NodeSummarize = "summarize"
	NodeNurture   = "nurture"
)

// DefaultTimeout bounds each collaborator call when Deps.Timeout is unset.
const DefaultTimeout = 20 * time.Second

// Deps are the collaborators and call bounds injected into the workflow.
type Deps struct {
	Enricher   Enricher
	CRM        CRM
	Similarity Similarity
	Advisor    Advisor
	Routing    routing.Table

	// Breakers holds one circuit breaker per collaborator. Nil disables them.
	Breakers *resilience.Breakers
	Timeout  time.Duration

	Now func() time.Time
}

type bounds struct {
	breakers *resilience.Breakers
	timeout  time.Duration
}

func (b bounds) breaker(name string) *resilience.Breaker {
	if b.breakers == nil {
		return nil
	}
	return b.breakers.Get(name)
}

// PipelineError is an orchestration failure, as opposed to a stage error
// recorded on the lead.
type PipelineError struct {
	Node string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Node == "" {
		return "pipeline: " + e.Err.Error()
	}
	return fmt.Sprintf("pipeline: at %s: %s", e.Node, e.Err.Error())
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Pipeline executes a validated Graph.
type Pipeline struct {
	graph *Graph
}

// New builds and validates the standard workflow.
func New(d Deps) (*Pipeline, error) {
	g, err := Standard(d)
	if err != nil {
		return nil, err
	}
	return FromGraph(g)
}

// FromGraph wraps a custom graph after validating it.
func FromGraph(g *Graph) (*Pipeline, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{graph: g}, nil
}

// Standard wires the lead routing graph:
//
//	capture -> enrich -> score -> {route -> summarize | summarize | nurture}
func Standard(d Deps) (*Graph, error) {
	switch {
	case d.Enricher == nil:
		return nil, eris.New("pipeline: missing enricher")
	case d.CRM == nil:
		return nil, eris.New("pipeline: missing crm")
	case d.Similarity == nil:
		return nil, eris.New("pipeline: missing similarity")
	case d.Advisor == nil:
		return nil, eris.New("pipeline: missing advisor")
	}

	table := d.Routing
	if len(table) == 0 {
		table = routing.Defaults()
	}
	b := bounds{breakers: d.Breakers, timeout: d.Timeout}
	if b.timeout <= 0 {
		b.timeout = DefaultTimeout
	}

	g := NewGraph()
	g.AddNode(captureStage{})
	g.AddNode(enrichStage{enricher: d.Enricher, bounds: b})
	g.AddNode(scoreStage{advisor: d.Advisor, bounds: b})
	g.AddNode(routeStage{crm: d.CRM, table: table, bounds: b})
	g.AddNode(summarizeStage{similarity: d.Similarity, advisor: d.Advisor, bounds: b})
	g.AddNode(nurtureStage{now: d.Now})

	g.SetEntry(NodeCapture)
	g.AddEdge(NodeCapture, NodeEnrich)
	g.AddEdge(NodeEnrich, NodeScore)
	g.AddConditionalEdge(NodeScore, Branch, NodeRoute, NodeNurture, NodeSummarize)
	g.AddEdge(NodeRoute, NodeSummarize)
	g.SetTerminal(NodeSummarize, NodeNurture)
	return g, nil
}

// Run executes one pass of the graph over l. Collaborator calls are detached
// from ctx cancellation so a caller hang-up does not abandon a half-routed
// lead. Stage failures are recorded on the lead; only orchestration failures
// return a *PipelineError.
func (p *Pipeline) Run(ctx context.Context, l *model.Lead) (out *model.Lead, err error) {
	if l == nil {
		return nil, &PipelineError{Err: eris.New("nil lead")}
	}
	ctx = context.WithoutCancel(ctx)

	node := p.graph.entry
	defer func() {
		if r := recover(); r != nil {
			out, err = l, &PipelineError{Node: node, Err: eris.Errorf("panic: %v", r)}
		}
	}()

	visited := make(map[string]bool, len(p.graph.nodes))
	for {
		stage, ok := p.graph.nodes[node]
		if !ok {
			return l, &PipelineError{Node: node, Err: eris.New("unknown node")}
		}
		if visited[node] {
			return l, &PipelineError{Node: node, Err: eris.New("cycle detected")}
		}
		visited[node] = true

		p.runStage(ctx, stage, l)

		if p.graph.terminals[node] {
			return l, nil
		}
		next, err := p.graph.next(node, l)
		if err != nil {
			return l, &PipelineError{Node: node, Err: err}
		}
		node = next
	}
}

// runStage executes one stage, converting a panic into a stage error, and
// records its result.
func (p *Pipeline) runStage(ctx context.Context, s Stage, l *model.Lead) {
	name := s.Name()
	before := len(l.Errors)
	start := time.Now()
	status := model.StageStatusComplete

	func() {
		defer func() {
			if r := recover(); r != nil {
				status = model.StageStatusFailed
				l.AddErrorf(name, "panic: %v", r)
			}
		}()
		s.Run(ctx, l)
	}()

	added := len(l.Errors) - before
	if status == model.StageStatusComplete && added > 0 {
		status = model.StageStatusDegraded
	}
	duration := time.Since(start).Milliseconds()
	l.Stages = append(l.Stages, model.StageResult{
		Name:     name,
		Status:   status,
		Duration: duration,
		Errors:   added,
	})

	fields := []zap.Field{
		zap.String("lead_id", l.LeadID),
		zap.String("stage", name),
		zap.Int64("duration_ms", duration),
		zap.String("status", string(status)),
	}
	switch status {
	case model.StageStatusFailed:
		zap.L().Error("pipeline: stage failed", append(fields, zap.Strings("errors", l.Errors[before:]))...)
	case model.StageStatusDegraded:
		zap.L().Warn("pipeline: stage degraded", append(fields, zap.Strings("errors", l.Errors[before:]))...)
	default:
		zap.L().Info("pipeline: stage complete", fields...)
	}
}
