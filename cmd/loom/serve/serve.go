// Package servecmder provides the serve command for running the loom server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/api"
	"github.com/crosswirelabs/loom/pkg/agent"
	"github.com/crosswirelabs/loom/pkg/chat"
	"github.com/crosswirelabs/loom/pkg/config"
	embeddingutils "github.com/crosswirelabs/loom/pkg/embeddings/utils"
	"github.com/crosswirelabs/loom/pkg/eventstream"
	"github.com/crosswirelabs/loom/pkg/eventstream/kafka"
	llmutils "github.com/crosswirelabs/loom/pkg/llm/utils"
	"github.com/crosswirelabs/loom/pkg/logger"
	"github.com/crosswirelabs/loom/pkg/memory"
	memlocal "github.com/crosswirelabs/loom/pkg/memory/local"
	memsqlite "github.com/crosswirelabs/loom/pkg/memory/sqlite"
	"github.com/crosswirelabs/loom/pkg/msglog"
	msglocal "github.com/crosswirelabs/loom/pkg/msglog/local"
	msgsqlite "github.com/crosswirelabs/loom/pkg/msglog/sqlite"
	"github.com/crosswirelabs/loom/pkg/orchestrator"
	"github.com/crosswirelabs/loom/pkg/retrieval"
	"github.com/crosswirelabs/loom/pkg/telemetry"
	"github.com/crosswirelabs/loom/pkg/utils"
	vectorutils "github.com/crosswirelabs/loom/pkg/vector/utils"
)

type ServeCommander struct {
	listen          string
	storageProvider string
	sqlitePath      string
	llmProvider     string
	llmTarget       string
	model           string
	tenant          string
	eventProvider   string
	poolSize        int

	logger *logger.Logger
}

const serveLongDesc string = `Run the loom server.

Starts the HTTP API, the memory expiry sweeper, and the telemetry workers.
Chat requests flow through the full pipeline: message log append, context
assembly from memory and retrieval, generation or orchestrated reasoning,
and telemetry recording.`

const serveShortDesc string = "Run the loom server"

// serveFlags is the flag registry for the serve command.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "listen", Shorthand: "l", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagStorageProvider: {
		Name: "storage-provider", ViperKey: "storage.provider",
		Description: "Storage provider for messages and memory (local, sqlite)",
	},
	config.FlagSQLite: {
		Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path",
		Description: "Path to SQLite database for the sqlite provider",
	},
	config.FlagLLMProvider: {
		Name: "llm-provider", ViperKey: "llm.provider",
		Description: "LLM provider type (ollama)",
	},
	config.FlagLLMTarget: {
		Name: "llm-target", ViperKey: "llm.target",
		Description: "LLM provider URL",
	},
	config.FlagModel: {
		Name: "model", Shorthand: "m", ViperKey: "llm.model",
		Description: "Default generation model",
	},
	config.FlagTenant: {
		Name: "tenant", ViperKey: "chat.tenant",
		Description: "Tenant scope for retrieval and telemetry",
	},
	config.FlagEventProvider: {
		Name: "event-provider", ViperKey: "eventstream.provider",
		Description: "Event stream provider (nop, kafka)",
	},
	config.FlagPoolSize: {
		Name: "pool-size", ViperKey: "orchestrator.pool_size",
		Description: "Concurrent reasoning branch limit",
	},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagModel,
	config.FlagTenant,
	config.FlagEventProvider,
	config.FlagPoolSize,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	var v *viper.Viper

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			var err error
			v, err = config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			if !debug {
				debug = v.GetBool("debug")
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(v, configDir, debug)
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagStorageProvider, &cmder.storageProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, serveFlags, config.FlagTenant, &cmder.tenant)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventProvider, &cmder.eventProvider)
	config.AddIntFlag(cmd, serveFlags, config.FlagPoolSize, &cmder.poolSize)

	return cmd
}

func (c *ServeCommander) run(v *viper.Viper, configDir string, debug bool) error {
	c.logger = logger.NewLogger(debug)
	defer c.logger.Sync()

	// Re-apply the debug setting when config.toml changes on disk.
	config.WatchDebug(v, c.logger)

	// Message log + memory store share a storage provider.
	tenant := v.GetString("chat.tenant")
	log, mem, err := c.newStores(v, tenant)
	if err != nil {
		return err
	}
	defer log.Close()
	defer mem.Close()

	// Vector store and embedder feed the retrieval engine.
	vdriver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: v.GetString("vector_store.provider"),
		Target:       v.GetString("vector_store.target"),
		Port:         v.GetInt("vector_store.port"),
		Collection:   v.GetString("vector_store.collection"),
		Dimensions:   v.GetUint("embedding.dimensions"),
		Logger:       c.logger.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer vdriver.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	engine := retrieval.NewEngine(embedder, vdriver, c.logger.Logger)

	generator, err := llmutils.NewGenerator(&llmutils.NewGeneratorOpts{
		ProviderType: v.GetString("llm.provider"),
		TargetURL:    v.GetString("llm.target"),
		Model:        v.GetString("llm.model"),
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	defer generator.Close()

	// Event publishers: the in-process journal always runs so the API can
	// serve recent events; Kafka is added when configured.
	journal := eventstream.NewJournal(v.GetInt("eventstream.journal_capacity"))
	publisher, err := c.newPublisher(v, journal)
	if err != nil {
		return err
	}
	defer publisher.Close()

	recorder := telemetry.NewRecorder(&telemetry.Config{
		Publisher: publisher,
		Logger:    c.logger.Logger,
	})
	defer recorder.Close()

	registry := c.newRegistry()

	orch := orchestrator.New(orchestrator.Config{
		PoolSize:    v.GetInt("orchestrator.pool_size"),
		StepTimeout: time.Duration(v.GetInt("orchestrator.step_timeout_seconds")) * time.Second,
	}, registry, generator, publisher, c.logger.Logger)

	pricing := c.loadPricing(configDir)

	pipeline := chat.NewPipeline(log, mem, engine, orch, generator, recorder, chat.Options{
		Tenant:       tenant,
		RecentWindow: v.GetInt("chat.recent_window"),
		CharBudget:   v.GetInt("chat.char_budget"),
		TopK:         v.GetInt("chat.top_k"),
		DefaultModel: v.GetString("llm.model"),
		Pricing:      pricing,
	}, c.logger.Logger)

	// Background memory expiry sweeper.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweepInterval := time.Duration(v.GetInt("storage.sweep_interval_seconds")) * time.Second
	sweeper := memory.NewSweeper(mem, sweepInterval, c.logger.Logger)
	go sweeper.Run(ctx)

	server := api.NewServer(api.Config{
		ListenAddr: v.GetString("api.listen"),
	}, pipeline, mem, log, registry, journal, c.logger.Logger)

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

// newStores creates the message log and memory store for the configured
// storage provider.
func (c *ServeCommander) newStores(v *viper.Viper, tenant string) (msglog.Log, memory.Store, error) {
	provider := v.GetString("storage.provider")

	switch provider {
	case "local":
		c.logger.Info("using in-memory storage")
		return msglocal.NewLog(tenant), memlocal.NewStore(), nil

	case "sqlite":
		path := v.GetString("storage.sqlite_path")
		if path == "" {
			return nil, nil, fmt.Errorf("storage.sqlite_path is required for the sqlite provider")
		}

		log, err := msgsqlite.NewLog(path, tenant)
		if err != nil {
			return nil, nil, fmt.Errorf("creating sqlite message log: %w", err)
		}

		mem, err := memsqlite.NewStore(path)
		if err != nil {
			log.Close()
			return nil, nil, fmt.Errorf("creating sqlite memory store: %w", err)
		}

		c.logger.Info("using SQLite storage", zap.String("path", path))
		return log, mem, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage provider: %s", provider)
	}
}

// newPublisher assembles the event publisher fan-out.
func (c *ServeCommander) newPublisher(v *viper.Viper, journal *eventstream.Journal) (eventstream.Publisher, error) {
	provider := v.GetString("eventstream.provider")

	switch provider {
	case "nop", "":
		return eventstream.NewMulti(journal), nil

	case "kafka":
		kp, err := kafka.NewPublisher(kafka.Config{
			Brokers: v.GetStringSlice("eventstream.brokers"),
			Topic:   v.GetString("eventstream.topic"),
		}, c.logger.Logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}

		c.logger.Info("publishing events to kafka",
			zap.Strings("brokers", v.GetStringSlice("eventstream.brokers")),
			zap.String("topic", v.GetString("eventstream.topic")),
		)
		return eventstream.NewMulti(journal, kp), nil

	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", provider)
	}
}

// newRegistry registers one agent per pipeline role.
func (c *ServeCommander) newRegistry() *agent.Registry {
	registry := agent.NewRegistry()

	for _, t := range []agent.Type{
		agent.TypePlanner,
		agent.TypeResearcher,
		agent.TypeReasoner,
		agent.TypeSynthesizer,
	} {
		registry.Register(agent.Agent{
			ID:      uuid.NewString(),
			Type:    t,
			Name:    fmt.Sprintf("%s-1", t),
			Version: utils.Version,
			Status:  agent.StatusAvailable,
		})
	}

	return registry
}

// loadPricing merges config.toml pricing overrides onto the default table.
func (c *ServeCommander) loadPricing(configDir string) telemetry.PricingTable {
	pricing := telemetry.DefaultPricing()

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		c.logger.Warn("loading pricing overrides", zap.Error(err))
		return pricing
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		c.logger.Warn("loading pricing overrides", zap.Error(err))
		return pricing
	}

	for model, price := range cfg.Pricing {
		pricing[model] = telemetry.Pricing{Input: price.Input, Output: price.Output}
	}

	return pricing
}
