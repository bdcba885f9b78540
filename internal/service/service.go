// Package service wires the trust core components behind one façade used by
// the HTTP transports.
package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/workautomate224-lang/agentverse-sub002/internal/branching"
	"github.com/workautomate224-lang/agentverse-sub002/internal/config"
	"github.com/workautomate224-lang/agentverse-sub002/internal/observability"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
	"github.com/workautomate224-lang/agentverse-sub002/internal/stats"
	"github.com/workautomate224-lang/agentverse-sub002/internal/telemetry"
)

type Service struct {
	store    repository.Store
	config   *config.Config
	recorder *telemetry.Recorder
	resolver *telemetry.Resolver
	graph    *branching.Manager
	pool     *stats.Pool
	metrics  *observability.Metrics
	validate *validator.Validate
}

func New(store repository.Store, cfg *config.Config, graph *branching.Manager, metrics *observability.Metrics) *Service {
	return &Service{
		store:    store,
		config:   cfg,
		recorder: telemetry.NewRecorder(store, cfg.KeyframeInterval, cfg.DeltaSampleRate),
		resolver: telemetry.NewResolver(store),
		graph:    graph,
		pool:     stats.NewPool(cfg.StatsWorkers),
		metrics:  metrics,
		validate: validator.New(),
	}
}
