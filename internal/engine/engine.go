package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/clusterprops/internal/ctxlog"
	"github.com/specialistvlad/clusterprops/internal/mask"
	"golang.org/x/sync/errgroup"
)

// Task is the per-active-task callback.
type Task interface {
	// Width is the number of values Evaluate writes per task.
	Width() int
	// Evaluate fills buf for one active task. node is the entity behind task;
	// callers must not assume the two are equal.
	Evaluate(ctx context.Context, task, node int, buf *Buffer) error
}

// Sink receives a cycle's results after every task completed.
type Sink interface {
	Publish(ctx context.Context, r *Result) error
}

// Config sizes an Engine.
type Config struct {
	Size    int // full task domain
	Width   int // values per task
	Inputs  int // derivative block columns
	Workers int // defaults to 1
	// NodeOf maps a task to its node. Nil means identity.
	NodeOf func(task int) int
	Sinks  []Sink
}

// Engine owns the task arenas and the worker pool.
type Engine struct {
	size    int
	width   int
	inputs  int
	workers int
	nodeOf  func(int) int
	sinks   []Sink

	// runMu is the barrier between cycles.
	runMu   sync.Mutex
	values  []float64
	derivs  []float64
	buffers []Buffer
}

// New validates cfg and allocates the value arena.
func New(cfg Config) (*Engine, error) {
	if cfg.Size < 0 {
		return nil, fmt.Errorf("task domain size must not be negative, got %d", cfg.Size)
	}
	if cfg.Width < 1 {
		return nil, fmt.Errorf("task width must be positive, got %d", cfg.Width)
	}
	if cfg.Inputs < 0 {
		return nil, fmt.Errorf("derivative inputs must not be negative, got %d", cfg.Inputs)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	nodeOf := cfg.NodeOf
	if nodeOf == nil {
		nodeOf = func(t int) int { return t }
	}
	return &Engine{
		size:    cfg.Size,
		width:   cfg.Width,
		inputs:  cfg.Inputs,
		workers: workers,
		nodeOf:  nodeOf,
		sinks:   cfg.Sinks,
		values:  make([]float64, cfg.Size*cfg.Width),
		buffers: make([]Buffer, cfg.Size),
	}, nil
}

// Size returns the registered task domain size.
func (e *Engine) Size() int { return e.size }

// Width returns the per-task value width.
func (e *Engine) Width() int { return e.width }

// Run evaluates task for every active entry of m and publishes the result.
// m must not be rebuilt until Run returns.
func (e *Engine) Run(ctx context.Context, m *mask.Mask, task Task, derivatives bool) (*Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if m.Size() != e.size {
		return nil, fmt.Errorf("mask covers %d tasks, engine registered %d", m.Size(), e.size)
	}
	if w := task.Width(); w != e.width {
		return nil, fmt.Errorf("task writes %d values, engine slots hold %d", w, e.width)
	}
	if derivatives && e.inputs == 0 {
		return nil, errors.New("derivatives requested but engine has no derivative inputs")
	}
	if derivatives && e.derivs == nil {
		e.derivs = make([]float64, e.size*e.width*e.inputs)
	}

	active := m.Indices()
	cycleID := uuid.New()
	ctx, logger := ctxlog.With(ctx, "cycle_id", cycleID.String())
	logger.Debug("Engine run starting.", "active", len(active), "workers", e.workers, "derivatives", derivatives)

	if err := e.dispatch(ctx, active, task, derivatives); err != nil {
		logger.Debug("Engine run aborted.", "error", err)
		return nil, err
	}

	res := e.collect(cycleID, active, derivatives)
	for _, s := range e.sinks {
		if err := s.Publish(ctx, res); err != nil {
			return nil, fmt.Errorf("publishing cycle %s: %w", cycleID, err)
		}
	}
	logger.Debug("Engine run finished.", "tasks", len(res.Tasks))
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, active []int, task Task, derivatives bool) error {
	g, gctx := errgroup.WithContext(ctx)
	ready := make(chan int)

	g.Go(func() error {
		defer close(ready)
		for _, t := range active {
			select {
			case ready <- t:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	workers := min(e.workers, max(len(active), 1))
	for id := 0; id < workers; id++ {
		g.Go(func() error {
			return e.worker(gctx, ready, task, derivatives, id)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// worker drains ready until it closes or a sibling fails.
func (e *Engine) worker(ctx context.Context, ready <-chan int, task Task, derivatives bool, workerID int) error {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)
	for t := range ready {
		if err := ctx.Err(); err != nil {
			return err
		}
		node := e.nodeOf(t)
		buf := e.slot(t, node, derivatives)
		if err := task.Evaluate(ctx, t, node, buf); err != nil {
			logger.Debug("Task failed.", "task", t, "node", node, "error", err)
			return err
		}
		if err := buf.complete(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) slot(t, node int, derivatives bool) *Buffer {
	values := e.values[t*e.width : (t+1)*e.width]
	var derivs []float64
	if derivatives {
		block := e.width * e.inputs
		derivs = e.derivs[t*block : (t+1)*block]
	}
	b := &e.buffers[t]
	b.reset(t, node, values, derivs, e.inputs)
	return b
}

func (e *Engine) collect(cycleID uuid.UUID, active []int, derivatives bool) *Result {
	res := &Result{
		CycleID:     cycleID,
		Width:       e.width,
		Inputs:      e.inputs,
		Derivatives: derivatives,
		Tasks:       make([]TaskOutput, len(active)),
	}
	for i, t := range active {
		out := TaskOutput{
			Task:   t,
			Node:   e.buffers[t].node,
			Values: append([]float64(nil), e.values[t*e.width:(t+1)*e.width]...),
		}
		if derivatives {
			block := e.width * e.inputs
			flat := e.derivs[t*block : (t+1)*block]
			out.Derivatives = make([][]float64, e.width)
			for k := range out.Derivatives {
				out.Derivatives[k] = append([]float64(nil), flat[k*e.inputs:(k+1)*e.inputs]...)
			}
		}
		res.Tasks[i] = out
	}
	return res
}
