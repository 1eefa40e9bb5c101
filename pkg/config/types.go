package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent loom configuration stored as config.toml.
// The TOML layout uses sections for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	API          APIConfig          `toml:"api"`
	Client       ClientConfig       `toml:"client"`
	Storage      StorageConfig      `toml:"storage"`
	VectorStore  VectorStoreConfig  `toml:"vector_store"`
	Embedding    EmbeddingConfig    `toml:"embedding"`
	LLM          LLMConfig          `toml:"llm"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Chat         ChatConfig         `toml:"chat"`
	EventStream  EventStreamConfig  `toml:"eventstream"`
	Pricing      map[string]Price   `toml:"pricing,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// loom server (e.g. loom chat). APITarget is a full URL (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// StorageConfig holds message log and memory store settings.
type StorageConfig struct {
	// Provider selects the storage driver: "local" or "sqlite".
	Provider string `toml:"provider,omitempty"`

	// SQLitePath is the database path for the sqlite provider.
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// SweepInterval is the memory expiry sweep cadence in seconds.
	SweepIntervalSeconds int `toml:"sweep_interval_seconds,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	// Provider selects the driver: "sqlitevec" or "qdrant".
	Provider string `toml:"provider,omitempty"`

	// Target is the database path (sqlitevec) or host (qdrant).
	Target string `toml:"target,omitempty"`

	// Port is the qdrant gRPC port.
	Port int `toml:"port,omitempty"`

	// Collection is the qdrant collection name.
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds generation provider settings.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// OrchestratorConfig holds reasoning pipeline settings.
type OrchestratorConfig struct {
	// PoolSize bounds concurrent strategy branches.
	PoolSize int `toml:"pool_size,omitempty"`

	// StepTimeoutSeconds bounds each external generation call.
	StepTimeoutSeconds int `toml:"step_timeout_seconds,omitempty"`
}

// ChatConfig holds chat pipeline settings.
type ChatConfig struct {
	Tenant       string `toml:"tenant,omitempty"`
	RecentWindow int    `toml:"recent_window,omitempty"`
	CharBudget   int    `toml:"char_budget,omitempty"`
	TopK         int    `toml:"top_k,omitempty"`
}

// EventStreamConfig holds event stream settings.
type EventStreamConfig struct {
	// Provider selects the publisher: "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is the Kafka broker list for the kafka provider.
	Brokers []string `toml:"brokers,omitempty"`

	// Topic is the Kafka destination topic.
	Topic string `toml:"topic,omitempty"`

	// JournalCapacity bounds the in-process orchestration journal.
	JournalCapacity int `toml:"journal_capacity,omitempty"`
}

// Price holds per-model USD prices per million tokens.
type Price struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.sweep_interval_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.Storage.SweepIntervalSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid sweep interval %q: %w", v, err)
			}
			c.Storage.SweepIntervalSeconds = n
			return nil
		},
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.port": {
		get: func(c *Config) string { return strconv.Itoa(c.VectorStore.Port) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", v, err)
			}
			c.VectorStore.Port = n
			return nil
		},
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid dimensions %q: %w", v, err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"orchestrator.pool_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Orchestrator.PoolSize) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid pool size %q: %w", v, err)
			}
			c.Orchestrator.PoolSize = n
			return nil
		},
	},
	"orchestrator.step_timeout_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.Orchestrator.StepTimeoutSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid step timeout %q: %w", v, err)
			}
			c.Orchestrator.StepTimeoutSeconds = n
			return nil
		},
	},
	"chat.tenant": {
		get: func(c *Config) string { return c.Chat.Tenant },
		set: func(c *Config, v string) error { c.Chat.Tenant = v; return nil },
	},
	"chat.recent_window": {
		get: func(c *Config) string { return strconv.Itoa(c.Chat.RecentWindow) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid recent window %q: %w", v, err)
			}
			c.Chat.RecentWindow = n
			return nil
		},
	},
	"chat.char_budget": {
		get: func(c *Config) string { return strconv.Itoa(c.Chat.CharBudget) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid char budget %q: %w", v, err)
			}
			c.Chat.CharBudget = n
			return nil
		},
	},
	"chat.top_k": {
		get: func(c *Config) string { return strconv.Itoa(c.Chat.TopK) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid top_k %q: %w", v, err)
			}
			c.Chat.TopK = n
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = splitBrokers(v)
			return nil
		},
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"eventstream.journal_capacity": {
		get: func(c *Config) string { return strconv.Itoa(c.EventStream.JournalCapacity) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid journal capacity %q: %w", v, err)
			}
			c.EventStream.JournalCapacity = n
			return nil
		},
	},
}

// splitBrokers parses a comma-separated broker list, dropping empty entries.
func splitBrokers(v string) []string {
	parts := strings.Split(v, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
