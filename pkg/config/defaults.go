package config

const (
	defaultAPIListen = ":8080"

	defaultClientAPITarget = "http://localhost:8080"

	defaultStorageProvider = "local"
	defaultSweepSeconds    = 60

	defaultVectorProvider   = "sqlitevec"
	defaultQdrantPort       = 6334
	defaultVectorCollection = "loom_chunks"

	defaultOllamaTarget = "http://localhost:11434"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMModel    = "llama3"

	defaultPoolSize           = 4
	defaultStepTimeoutSeconds = 120

	defaultTenant       = "default"
	defaultRecentWindow = 10
	defaultCharBudget   = 4000
	defaultTopK         = 5

	defaultEventProvider   = "nop"
	defaultEventTopic      = "loom.events"
	defaultJournalCapacity = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Storage: StorageConfig{
			Provider:             defaultStorageProvider,
			SweepIntervalSeconds: defaultSweepSeconds,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Port:       defaultQdrantPort,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultOllamaTarget,
			Model:    defaultLLMModel,
		},
		Orchestrator: OrchestratorConfig{
			PoolSize:           defaultPoolSize,
			StepTimeoutSeconds: defaultStepTimeoutSeconds,
		},
		Chat: ChatConfig{
			Tenant:       defaultTenant,
			RecentWindow: defaultRecentWindow,
			CharBudget:   defaultCharBudget,
			TopK:         defaultTopK,
		},
		EventStream: EventStreamConfig{
			Provider:        defaultEventProvider,
			Topic:           defaultEventTopic,
			JournalCapacity: defaultJournalCapacity,
		},
	}
}
