// Package analysis drives cluster-properties cycles: select the ranked
// component, rebuild the activation mask, and let the engine relay the
// properties of every active node.
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/clusterprops/internal/cluster"
	"github.com/specialistvlad/clusterprops/internal/ctxlog"
	"github.com/specialistvlad/clusterprops/internal/engine"
	"github.com/specialistvlad/clusterprops/internal/faults"
	"github.com/specialistvlad/clusterprops/internal/mask"
	"github.com/specialistvlad/clusterprops/internal/metrics"
	"github.com/specialistvlad/clusterprops/internal/partition"
	"github.com/specialistvlad/clusterprops/internal/relay"
	"github.com/specialistvlad/clusterprops/internal/source"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/specialistvlad/clusterprops/internal/analysis"

// Config is the caller-facing configuration of one analysis.
type Config struct {
	// Rank selects the component, 1 being the largest.
	Rank int
	// Relay picks the relay variant; empty means relay.KindProperty.
	Relay   relay.Kind
	Columns []int
	// Derivatives enables derivative relaying from the first cycle on.
	Derivatives bool
	Workers     int
}

// Option customises a ClusterProperties.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
	sinks   []engine.Sink
	tracer  trace.Tracer
}

// WithMetrics records cycle outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithSinks publishes every successful cycle to sinks.
func WithSinks(sinks ...engine.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sinks...) }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// ClusterProperties evaluates node properties over the rank-th largest
// cluster of a partition. Calculate may be called from several goroutines;
// cycles are serialised.
type ClusterProperties struct {
	selector  *cluster.Selector
	partition partition.Partition
	task      engine.Task
	engine    *engine.Engine
	mask      *mask.Mask
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	cycleMu     sync.Mutex
	derivatives bool

	mu      sync.RWMutex
	last    *engine.Result
	members []int
}

// New validates cfg against p and src. Any failure is reported before a
// mask or engine is allocated.
func New(cfg Config, p partition.Partition, src source.PropertySource, opts ...Option) (*ClusterProperties, error) {
	if p == nil || src == nil {
		return nil, faults.InvalidConfiguration("analysis", "partition and property source are required")
	}
	nodes := p.NumberOfNodes()
	selector, err := cluster.NewSelector(cfg.Rank, nodes)
	if err != nil {
		return nil, err
	}
	task, err := relay.New(cfg.Relay, src, cfg.Columns)
	if err != nil {
		return nil, err
	}
	if cfg.Derivatives && src.Inputs() < 1 {
		return nil, faults.InvalidConfiguration("analysis", "derivatives requested but the property source declares no inputs")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	eng, err := engine.New(engine.Config{
		Size:    nodes,
		Width:   task.Width(),
		Inputs:  src.Inputs(),
		Workers: cfg.Workers,
		Sinks:   o.sinks,
	})
	if err != nil {
		return nil, faults.InvalidConfiguration("analysis", "%v", err)
	}

	return &ClusterProperties{
		selector:    selector,
		partition:   p,
		task:        task,
		engine:      eng,
		mask:        mask.New(nodes),
		metrics:     o.metrics,
		tracer:      o.tracer,
		derivatives: cfg.Derivatives,
	}, nil
}

// Rank returns the selected cluster rank.
func (c *ClusterProperties) Rank() int { return c.selector.Rank() }

// Width returns the number of values relayed per task.
func (c *ClusterProperties) Width() int { return c.task.Width() }

// SetDerivatives switches derivative relaying for subsequent cycles.
func (c *ClusterProperties) SetDerivatives(on bool) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	c.derivatives = on
}

// Calculate runs one cycle. On failure the previous result stays current.
func (c *ClusterProperties) Calculate(ctx context.Context) (*engine.Result, error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "cluster_properties.calculate", trace.WithAttributes(
		attribute.Int("cluster.rank", c.selector.Rank()),
		attribute.Bool("cluster.derivatives", c.derivatives),
	))
	defer span.End()
	ctx, logger := ctxlog.With(ctx, "rank", c.selector.Rank())

	res, members, err := c.cycle(ctx)
	c.metrics.ObserveCycle(len(members), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Cycle aborted.", "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("cluster.active", len(members)))
	logger.Info("Cycle complete.", "cycle_id", res.CycleID.String(), "active", len(members))

	c.mu.Lock()
	c.last = res
	c.members = members
	c.mu.Unlock()
	return res, nil
}

func (c *ClusterProperties) cycle(ctx context.Context) (*engine.Result, []int, error) {
	members, err := c.selector.Select(ctx, c.partition)
	if err != nil {
		return nil, nil, err
	}
	if err := c.mask.Rebuild(members); err != nil {
		return nil, nil, faults.PartitionUnavailable("mask", err)
	}
	res, err := c.engine.Run(ctx, c.mask, c.task, c.derivatives)
	if err != nil {
		return nil, nil, err
	}
	return res, members, nil
}

// Last returns the most recent successful result, or nil before the first.
func (c *ClusterProperties) Last() *engine.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Members returns a copy of the cluster membership of the last successful
// cycle.
func (c *ClusterProperties) Members() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]int(nil), c.members...)
}
