// Package servecmder provides the serve command for running the cortex
// memory store API.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/api"
	"github.com/SaintNick1214/cortex/api/mcp"
	"github.com/SaintNick1214/cortex/pkg/cascade"
	"github.com/SaintNick1214/cortex/pkg/config"
	"github.com/SaintNick1214/cortex/pkg/conversations"
	"github.com/SaintNick1214/cortex/pkg/eventstream/kafka"
	"github.com/SaintNick1214/cortex/pkg/eventstream/worker"
	"github.com/SaintNick1214/cortex/pkg/hierarchy"
	"github.com/SaintNick1214/cortex/pkg/immutable"
	"github.com/SaintNick1214/cortex/pkg/logger"
	"github.com/SaintNick1214/cortex/pkg/mutable"
	"github.com/SaintNick1214/cortex/pkg/records"
	"github.com/SaintNick1214/cortex/pkg/revision"
	"github.com/SaintNick1214/cortex/pkg/storage"
	"github.com/SaintNick1214/cortex/pkg/storage/inmemory"
	"github.com/SaintNick1214/cortex/pkg/storage/postgres"
	"github.com/SaintNick1214/cortex/pkg/storage/sqlite"
)

type ServeCommander struct {
	listen        string
	backend       string
	sqlitePath    string
	postgresURL   string
	eventsEnabled bool
	brokers       string
	topic         string
	debug         bool

	logger *zap.Logger
}

const serveLongDesc string = `Run the cortex memory store API server.

Serves the REST API and the MCP endpoint (/mcp) over a single listener.
Storage backend, listen address, and event publishing are resolved with
the usual precedence: CLI flags, then CORTEX_* environment variables,
then config.toml in the .cortex/ directory, then built-in defaults.

Examples:
  cortex serve
  cortex serve --backend sqlite --sqlite ./cortex.db
  cortex serve --backend postgres --postgres-url postgres://localhost/cortex
  cortex serve --events --brokers localhost:9092`

const serveShortDesc string = "Run the cortex API server"

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageBackend,
	config.FlagSQLite,
	config.FlagPostgresURL,
	config.FlagEventsEnabled,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)

			cmder.listen = v.GetString("api.listen")
			cmder.backend = v.GetString("storage.backend")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresURL = v.GetString("storage.postgres_url")
			cmder.eventsEnabled = v.GetBool("events.enabled")
			cmder.brokers = v.GetString("events.brokers")
			cmder.topic = v.GetString("events.topic")

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagStorageBackend, &cmder.backend)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPostgresURL, &cmder.postgresURL)
	config.AddBoolFlag(cmd, config.ServeFlags, config.FlagEventsEnabled, &cmder.eventsEnabled)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsTopic, &cmder.topic)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	driver, err := c.newStorageDriver()
	if err != nil {
		return err
	}
	defer driver.Close()

	events, err := c.newEventPool()
	if err != nil {
		return err
	}

	facts := revision.NewEngine(revision.Config{Driver: driver, Logger: c.logger})
	contexts := hierarchy.NewManager(hierarchy.Config{Driver: driver, Logger: c.logger})
	recs := records.NewService(records.Config{Driver: driver, Logger: c.logger})
	convs := conversations.NewService(conversations.Config{Driver: driver, Logger: c.logger})

	mcpServer, err := mcp.NewServer(mcp.Config{
		Facts:    facts,
		Records:  recs,
		Contexts: contexts,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server := api.NewServer(
		api.Config{ListenAddr: c.listen},
		driver,
		api.Services{
			Facts:         facts,
			Contexts:      contexts,
			Records:       recs,
			Conversations: convs,
			Cascade:       cascade.NewCoordinator(cascade.Config{Driver: driver, Logger: c.logger}),
			Immutable:     immutable.NewStore(),
			Mutable:       mutable.NewStore(),
			Events:        events,
			MCP:           mcpServer.Handler(),
		},
		c.logger,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *ServeCommander) newStorageDriver() (storage.Driver, error) {
	switch c.backend {
	case "sqlite":
		path := c.sqlitePath
		if path == "" {
			path = ":memory:"
		}
		driver, err := sqlite.NewDriver(path)
		if err != nil {
			return nil, fmt.Errorf("creating SQLite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", path))
		return driver, nil

	case "postgres":
		driver, err := postgres.NewDriver(context.Background(), c.postgresURL)
		if err != nil {
			return nil, fmt.Errorf("creating Postgres driver: %w", err)
		}
		c.logger.Info("using Postgres storage")
		return driver, nil

	case "inmemory":
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %q", c.backend)
	}
}

func (c *ServeCommander) newEventPool() (*worker.Pool, error) {
	if !c.eventsEnabled {
		return nil, nil
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: strings.Split(c.brokers, ","),
		Topic:   c.topic,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Kafka publisher: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event worker pool: %w", err)
	}

	c.logger.Info("event publishing enabled",
		zap.String("brokers", c.brokers),
		zap.String("topic", c.topic),
	)
	return pool, nil
}
