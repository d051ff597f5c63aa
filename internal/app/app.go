package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/clusterprops/internal/analysis"
	"github.com/specialistvlad/clusterprops/internal/config"
	"github.com/specialistvlad/clusterprops/internal/ctxlog"
	"github.com/specialistvlad/clusterprops/internal/engine"
	"github.com/specialistvlad/clusterprops/internal/metrics"
	"github.com/specialistvlad/clusterprops/internal/publish"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	config     *Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	analysis   *analysis.ClusterProperties
	publisher  *publish.SocketIO
	httpServer *http.Server
}

// New loads the analysis described by cfg and wires its collaborators.
// Results are written as JSON lines to outW, logs go to logW.
func New(ctx context.Context, outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	model, err := config.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	p, err := model.Partition()
	if err != nil {
		return nil, err
	}
	src, err := model.Source()
	if err != nil {
		return nil, err
	}
	logger.Debug("Partition and property source built.", "nodes", p.NumberOfNodes(), "components", p.NumberOfComponents())

	acfg := model.AnalysisConfig()
	if cfg.WorkerCount > 0 {
		acfg.Workers = cfg.WorkerCount
	}
	if on, ok := cfg.derivativesOverride(); ok {
		acfg.Derivatives = on
	}

	a := &App{config: cfg, logger: logger, registry: prometheus.NewRegistry()}
	sinks := []engine.Sink{publish.NewJSONLines(outW)}
	if cfg.PublishURL != "" {
		pub, err := publish.DialSocketIO(ctx, publish.SocketIOOptions{URL: cfg.PublishURL, Event: cfg.PublishEvent})
		if err != nil {
			return nil, err
		}
		a.publisher = pub
		sinks = append(sinks, pub)
	}

	a.analysis, err = analysis.New(acfg, p, src,
		analysis.WithMetrics(metrics.New(a.registry)),
		analysis.WithSinks(sinks...),
	)
	if err != nil {
		a.closePublisher()
		return nil, err
	}
	logger.Debug("Analysis constructed.", "rank", a.analysis.Rank(), "width", a.analysis.Width(), "relay", acfg.Relay)
	return a, nil
}

// Analysis returns the wired analysis. This is primarily for testing.
func (a *App) Analysis() *analysis.ClusterProperties {
	return a.analysis
}

func (a *App) closePublisher() {
	if a.publisher != nil {
		a.publisher.Close()
		a.publisher = nil
	}
}
