// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"

	"github.com/medvault/grants/internal/config"
	"github.com/medvault/grants/internal/database"
	grantsRepository "github.com/medvault/grants/internal/grants/repository"
	grantsService "github.com/medvault/grants/internal/grants/service"
	grantsUsecase "github.com/medvault/grants/internal/grants/usecase"
	"github.com/medvault/grants/internal/http"
	"github.com/medvault/grants/internal/metrics"
	"github.com/medvault/grants/internal/notifier"
	recordsRepository "github.com/medvault/grants/internal/records/repository"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger      *slog.Logger
	db          *sql.DB
	pubsubTopic *pubsub.Topic

	// Managers
	txManager database.TxManager

	// Repositories and services
	grantRepo     grantsUsecase.GrantRepository
	recordRepo    grantsUsecase.RecordCatalog
	resolver      grantsUsecase.GrantResolver
	eventNotifier notifier.Notifier

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Use Cases
	grantUseCase   grantsUsecase.GrantUseCase
	accessUseCase  grantsUsecase.AccessUseCase
	sweeperUseCase grantsUsecase.SweeperUseCase

	// Servers
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	grantRepoInit       sync.Once
	recordRepoInit      sync.Once
	resolverInit        sync.Once
	notifierInit        sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	grantUseCaseInit    sync.Once
	accessUseCaseInit   sync.Once
	sweeperUseCaseInit  sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := database.Connect(database.Config{
			Driver:             c.config.DBDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			c.initErrors["db"] = fmt.Errorf("failed to connect to database: %w", err)
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// GrantRepository returns the grant repository instance.
func (c *Container) GrantRepository() (grantsUsecase.GrantRepository, error) {
	c.grantRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["grantRepo"] = fmt.Errorf("failed to get database for grant repository: %w", err)
			return
		}

		// Select the appropriate repository based on the database driver
		switch c.config.DBDriver {
		case "mysql":
			c.grantRepo = grantsRepository.NewMySQLGrantRepository(db)
		case "postgres":
			c.grantRepo = grantsRepository.NewPostgreSQLGrantRepository(db)
		default:
			c.initErrors["grantRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["grantRepo"]; exists {
		return nil, storedErr
	}
	return c.grantRepo, nil
}

// RecordCatalog returns the record catalog repository instance.
func (c *Container) RecordCatalog() (grantsUsecase.RecordCatalog, error) {
	c.recordRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["recordRepo"] = fmt.Errorf("failed to get database for record catalog: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.recordRepo = recordsRepository.NewMySQLRecordRepository(db)
		case "postgres":
			c.recordRepo = recordsRepository.NewPostgreSQLRecordRepository(db)
		default:
			c.initErrors["recordRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["recordRepo"]; exists {
		return nil, storedErr
	}
	return c.recordRepo, nil
}

// Resolver returns the grant resolver service.
func (c *Container) Resolver() (grantsUsecase.GrantResolver, error) {
	c.resolverInit.Do(func() {
		grantRepo, err := c.GrantRepository()
		if err != nil {
			c.initErrors["resolver"] = fmt.Errorf("failed to get grant repository for resolver: %w", err)
			return
		}
		catalog, err := c.RecordCatalog()
		if err != nil {
			c.initErrors["resolver"] = fmt.Errorf("failed to get record catalog for resolver: %w", err)
			return
		}
		c.resolver = grantsService.NewResolver(grantRepo, catalog, c.Logger())
	})
	if storedErr, exists := c.initErrors["resolver"]; exists {
		return nil, storedErr
	}
	return c.resolver, nil
}

// Notifier returns the notification delivery channel. A configured topic URL
// selects the pubsub publisher, otherwise events are only logged.
func (c *Container) Notifier(ctx context.Context) (notifier.Notifier, error) {
	c.notifierInit.Do(func() {
		if c.config.NotifierTopicURL == "" {
			c.eventNotifier = notifier.NewLogNotifier(c.Logger())
			return
		}

		topic, err := pubsub.OpenTopic(ctx, c.config.NotifierTopicURL)
		if err != nil {
			c.initErrors["notifier"] = fmt.Errorf("failed to open notification topic: %w", err)
			return
		}
		c.pubsubTopic = topic
		c.eventNotifier = notifier.NewPubSubNotifier(topic, float64(c.config.NotifierRatePerSec), c.config.NotifierBurst)
	})
	if storedErr, exists := c.initErrors["notifier"]; exists {
		return nil, storedErr
	}
	return c.eventNotifier, nil
}

// MetricsProvider returns the metrics provider instance.
// Returns nil provider when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
// Returns a no-op implementation when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to get metrics provider: %w", err)
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = businessMetrics
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// GrantUseCase returns the grant lifecycle use case instance.
func (c *Container) GrantUseCase(ctx context.Context) (grantsUsecase.GrantUseCase, error) {
	c.grantUseCaseInit.Do(func() {
		useCase, err := c.initGrantUseCase(ctx)
		if err != nil {
			c.initErrors["grantUseCase"] = err
			return
		}
		c.grantUseCase = useCase
	})
	if storedErr, exists := c.initErrors["grantUseCase"]; exists {
		return nil, storedErr
	}
	return c.grantUseCase, nil
}

// AccessUseCase returns the access check use case instance.
func (c *Container) AccessUseCase() (grantsUsecase.AccessUseCase, error) {
	c.accessUseCaseInit.Do(func() {
		resolver, err := c.Resolver()
		if err != nil {
			c.initErrors["accessUseCase"] = fmt.Errorf("failed to get resolver for access use case: %w", err)
			return
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["accessUseCase"] = fmt.Errorf("failed to get metrics for access use case: %w", err)
			return
		}
		c.accessUseCase = grantsUsecase.NewAccessUseCaseWithMetrics(
			grantsUsecase.NewAccessUseCase(resolver),
			businessMetrics,
		)
	})
	if storedErr, exists := c.initErrors["accessUseCase"]; exists {
		return nil, storedErr
	}
	return c.accessUseCase, nil
}

// SweeperUseCase returns the expiry sweeper use case instance.
func (c *Container) SweeperUseCase(ctx context.Context) (grantsUsecase.SweeperUseCase, error) {
	c.sweeperUseCaseInit.Do(func() {
		useCase, err := c.initSweeperUseCase(ctx)
		if err != nil {
			c.initErrors["sweeperUseCase"] = err
			return
		}
		c.sweeperUseCase = useCase
	})
	if storedErr, exists := c.initErrors["sweeperUseCase"]; exists {
		return nil, storedErr
	}
	return c.sweeperUseCase, nil
}

// MetricsServer returns the metrics HTTP server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider for server: %w", err)
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.MetricsHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.pubsubTopic != nil {
		if err := c.pubsubTopic.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("notification topic shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initGrantUseCase creates the grant use case with all its dependencies.
func (c *Container) initGrantUseCase(ctx context.Context) (grantsUsecase.GrantUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for grant use case: %w", err)
	}
	grantRepo, err := c.GrantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant repository for grant use case: %w", err)
	}
	catalog, err := c.RecordCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get record catalog for grant use case: %w", err)
	}
	resolver, err := c.Resolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolver for grant use case: %w", err)
	}
	eventNotifier, err := c.Notifier(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier for grant use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for grant use case: %w", err)
	}

	useCase := grantsUsecase.NewGrantUseCase(
		txManager,
		grantRepo,
		catalog,
		resolver,
		eventNotifier,
		c.Logger(),
		c.config.GrantDefaultDuration,
	)
	return grantsUsecase.NewGrantUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initSweeperUseCase creates the sweeper use case with all its dependencies.
func (c *Container) initSweeperUseCase(ctx context.Context) (grantsUsecase.SweeperUseCase, error) {
	grantRepo, err := c.GrantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant repository for sweeper: %w", err)
	}
	catalog, err := c.RecordCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get record catalog for sweeper: %w", err)
	}
	eventNotifier, err := c.Notifier(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier for sweeper: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for sweeper: %w", err)
	}

	sweeperConfig := grantsUsecase.SweeperConfig{
		SweepInterval:   c.config.SweepInterval,
		WarningInterval: c.config.WarningInterval,
		WarningWindow:   c.config.WarningWindow,
	}
	return grantsUsecase.NewSweeperUseCase(
		sweeperConfig,
		grantRepo,
		catalog,
		eventNotifier,
		c.Logger(),
		businessMetrics,
	), nil
}
