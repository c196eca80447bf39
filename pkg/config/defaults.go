package config

const (
	defaultStorageBackend = "sqlite"

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultEventsBrokers = "localhost:9092"
	defaultEventsTopic   = "cortex.memory.events"

	defaultExportFormat = "json"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Backend: defaultStorageBackend,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Events: EventsConfig{
			Brokers: defaultEventsBrokers,
			Topic:   defaultEventsTopic,
		},
		Export: ExportConfig{
			Format: defaultExportFormat,
		},
	}
}
