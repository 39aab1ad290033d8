// Package servecmder provides the serve command for running the answerline
// API server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerline/api"
	"github.com/papercomputeco/answerline/pkg/answer"
	"github.com/papercomputeco/answerline/pkg/assemble"
	"github.com/papercomputeco/answerline/pkg/chatstore"
	"github.com/papercomputeco/answerline/pkg/chatstore/inmemory"
	"github.com/papercomputeco/answerline/pkg/chatstore/sqlite"
	"github.com/papercomputeco/answerline/pkg/config"
	"github.com/papercomputeco/answerline/pkg/eventstream"
	"github.com/papercomputeco/answerline/pkg/eventstream/kafka"
	"github.com/papercomputeco/answerline/pkg/eventstream/nop"
	"github.com/papercomputeco/answerline/pkg/logger"
	"github.com/papercomputeco/answerline/pkg/registry"
	"github.com/papercomputeco/answerline/pkg/tools"
)

type ServeCommander struct {
	listen           string
	sqlitePath       string
	contextLimit     int
	maxParallelTools int
	toolTimeoutMs    int
	kafkaBrokers     string
	kafkaTopic       string
	debug            bool

	logger *zap.Logger
}

// serveFlags maps flag registry keys to flag definitions for this command.
var serveFlags = config.FlagSet{
	config.FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite database (default: in-memory)",
	},
	config.FlagContextLimit: {
		Name:        "context-limit",
		ViperKey:    "agent.context_limit",
		Description: "Default number of prior turns included in the model context",
	},
	config.FlagMaxParallelTools: {
		Name:        "max-parallel-tools",
		ViperKey:    "agent.max_parallel_tools",
		Description: "Maximum concurrent tool endpoint invocations per question",
	},
	config.FlagToolTimeout: {
		Name:        "tool-timeout",
		ViperKey:    "agent.tool_timeout_ms",
		Description: "Default per-call tool timeout in milliseconds",
	},
	config.FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "eventstream.kafka_brokers",
		Description: "Comma-separated Kafka brokers for turn events (empty disables publishing)",
	},
	config.FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "eventstream.kafka_topic",
		Description: "Kafka topic for turn events",
	},
}

// serveFlagKeys is the bind order for BindRegisteredFlags.
var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagSQLite,
	config.FlagContextLimit,
	config.FlagMaxParallelTools,
	config.FlagToolTimeout,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run the answerline API server.

The server exposes the agent answer endpoints (JSON and SSE streaming) plus
management endpoints for conversations, tool endpoints, providers, models,
and runtime profiles.

Config precedence: CLI flags > ANSWERLINE_* environment variables >
config.toml > built-in defaults.

Examples:
  answerline serve
  answerline serve --listen :9090 --sqlite ./answerline.sqlite
  answerline serve --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the answerline API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			cmder.listen = v.GetString("api.listen")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.contextLimit = v.GetInt("agent.context_limit")
			cmder.maxParallelTools = v.GetInt("agent.max_parallel_tools")
			cmder.toolTimeoutMs = v.GetInt("agent.tool_timeout_ms")
			cmder.kafkaBrokers = v.GetString("eventstream.kafka_brokers")
			cmder.kafkaTopic = v.GetString("eventstream.kafka_topic")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddIntFlag(cmd, serveFlags, config.FlagContextLimit, &cmder.contextLimit)
	config.AddIntFlag(cmd, serveFlags, config.FlagMaxParallelTools, &cmder.maxParallelTools)
	config.AddIntFlag(cmd, serveFlags, config.FlagToolTimeout, &cmder.toolTimeoutMs)
	config.AddStringFlag(cmd, serveFlags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	// Create conversation store
	store, err := c.createStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// Registry holds providers, models, profiles, tool endpoints, bindings
	reg := registry.NewMemoryRegistry()

	// Tool routing
	toolClient := tools.NewClient()
	router := tools.NewRouter(toolClient, reg, c.maxParallelTools, c.logger)

	// Context assembly
	asm := assemble.New(store, reg, router, c.contextLimit, c.logger)

	// Turn event publishing
	events := c.createPublisher()
	defer events.Close()

	// Orchestrator
	orch := answer.New(asm, reg, store, events, c.logger)

	apiConfig := api.Config{
		ListenAddr:         c.listen,
		DefaultToolTimeout: time.Duration(c.toolTimeoutMs) * time.Millisecond,
	}
	server := api.NewServer(apiConfig, orch, store, reg, toolClient, c.logger)

	c.logger.Info("starting api server",
		zap.String("listen", c.listen),
		zap.Int("context_limit", c.contextLimit),
		zap.Int("max_parallel_tools", c.maxParallelTools),
	)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
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

func (c *ServeCommander) createStore() (chatstore.Store, error) {
	if c.sqlitePath != "" {
		store, err := sqlite.NewStore(c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", c.sqlitePath))
		return store, nil
	}

	c.logger.Info("using in-memory storage")
	return inmemory.NewStore(), nil
}

func (c *ServeCommander) createPublisher() eventstream.Publisher {
	if c.kafkaBrokers == "" {
		c.logger.Info("turn event publishing disabled")
		return nop.NewPublisher()
	}

	brokers := strings.Split(c.kafkaBrokers, ",")
	for i, b := range brokers {
		brokers[i] = strings.TrimSpace(b)
	}

	c.logger.Info("publishing turn events to kafka",
		zap.Strings("brokers", brokers),
		zap.String("topic", c.kafkaTopic),
	)
	return kafka.NewPublisher(brokers, c.kafkaTopic)
}
