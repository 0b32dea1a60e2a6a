package container

import (
	"fmt"
	"net/http"

	"go-photo-culler/internal/analyzer"
	"go-photo-culler/internal/config"
	"go-photo-culler/internal/factory"
	"go-photo-culler/internal/logger"
	"go-photo-culler/internal/observer"
	"go-photo-culler/internal/orchestrator"
	"go-photo-culler/internal/storage"
	"go-photo-culler/internal/store"
	"go-photo-culler/internal/transport"
	"go-photo-culler/pkg/classify"
)

// Container holds all application dependencies
type Container struct {
	config  *config.Config
	records store.RecordStore
	source  storage.ImageSource
	orch    *orchestrator.Orchestrator
	manager *orchestrator.Manager
	metrics *observer.MetricsObserver
	handler http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Build dependency graph
	records, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	sources := factory.NewSourceFactory(cfg)
	local, err := sources.CreateSource(factory.LocalSource)
	if err != nil {
		return nil, err
	}
	httpSrc, err := sources.CreateSource(factory.HTTPSource)
	if err != nil {
		return nil, err
	}
	var azure storage.ImageSource
	if cfg.AzureAccountName != "" && cfg.AzureAccountKey != "" {
		azure, err = sources.CreateSource(factory.AzureSource)
		if err != nil {
			return nil, err
		}
	}
	source := factory.NewMultiSource(local, httpSrc, azure)

	extractor := analyzer.NewExtractor(analyzer.Options{
		SharpnessDivisor: cfg.Tunables.SharpnessDivisor,
		ContrastDivisor:  cfg.Tunables.ContrastDivisor,
	})

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	orch := orchestrator.New(orchestrator.Options{
		Source:              source,
		Extractor:           extractor,
		Classifier:          classify.NewClassifier(),
		Records:             records,
		Publisher:           publisher,
		Logger:              logger.Logger,
		ChunkSize:           cfg.Tunables.ChunkSize,
		SimilarityThreshold: cfg.Tunables.SimilarityThreshold,
	})
	manager := orchestrator.NewManager()

	handler := transport.NewHandler(orch, manager, records, metrics, cfg)

	return &Container{
		config:  cfg,
		records: records,
		source:  source,
		orch:    orch,
		manager: manager,
		metrics: metrics,
		handler: handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the container's resources.
func (c *Container) Close() error {
	return c.records.Close()
}
