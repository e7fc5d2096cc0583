package container

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"qcalab/adapters/db/postgres/migrations"
	"qcalab/adapters/postgres"
	"qcalab/adapters/report"
	"qcalab/app"
	"qcalab/internal"
	"qcalab/internal/api"
	"qcalab/internal/config"
	"qcalab/internal/errors"
	"qcalab/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; nil when no DATABASE_URL is configured
	DB *sqlx.DB

	RunRepo ports.RunRepository
	Service *app.AnalysisService
}

// New creates a container with an in-process service and no run storage
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLoggerWithWriter(internal.ParseLogLevel(cfg.Logging.Level), cfg.Logging.Format, os.Stderr)

	c := &Container{Config: cfg, Logger: logger}
	if err := c.initService(); err != nil {
		return nil, err
	}
	return c, nil
}

// InitWithDatabase connects the run store, optionally migrates it, and
// rebuilds the service so runs are persisted
func (c *Container) InitWithDatabase(ctx context.Context, migrate bool) error {
	if err := c.Config.RequireDatabase(); err != nil {
		return err
	}

	db, err := postgres.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}
	c.DB = db

	if migrate {
		applied, err := migrations.NewMigrator(db, c.Logger).Up(ctx)
		if err != nil {
			return errors.DatabaseError("database migration failed", err)
		}
		if len(applied) > 0 {
			c.Logger.Info("[Container] applied %d migrations", len(applied))
		}
	}

	c.RunRepo = postgres.NewRunRepository(db)
	return c.initService()
}

func (c *Container) initService() error {
	policy, err := c.Config.Selection.NewPolicy()
	if err != nil {
		return errors.FromDomain(err)
	}
	svc, err := app.NewAnalysisService(c.Config.QCA, policy, app.AnalysisServiceDeps{
		Runs:      c.RunRepo,
		Renderers: report.ForFormat,
		Logger:    c.Logger,
	})
	if err != nil {
		return err
	}
	c.Service = svc
	return nil
}

// Health reports whether the run store answers
func (c *Container) Health(ctx context.Context) error {
	if c.DB == nil {
		return nil
	}
	return c.DB.PingContext(ctx)
}

// APIServer builds the HTTP API over the container's service
func (c *Container) APIServer() *api.Server {
	return api.NewServer(c.Service, c.Health, c.Logger)
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
