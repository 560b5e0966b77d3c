package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	NATS struct {
		URL            string        `mapstructure:"url"`
		Stream         string        `mapstructure:"stream"`         // JetStream stream holding outreach events
		SubjectPrefix  string        `mapstructure:"subjectPrefix"`  // Base subject (e.g. v1.outreach)
		Consumer       string        `mapstructure:"consumer"`       // Durable name for the enrollment request consumer
		MaxAge         int64         `mapstructure:"maxAge"`         // Max age of stream messages in days
		MaxDeliver     int           `mapstructure:"maxDeliver"`     // Max delivery attempts for enrollment requests
		NakBaseDelay   time.Duration `mapstructure:"nakBaseDelay"`   // Base delay for exponential backoff NAK
		NakMaxDelay    time.Duration `mapstructure:"nakMaxDelay"`    // Maximum delay for exponential backoff NAK
		FetchBatchSize int           `mapstructure:"fetchBatchSize"` // Pull batch size for the enrollment consumer
	} `mapstructure:"nats"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	Company struct {
		Default string `mapstructure:"default"`
		ID      string `mapstructure:"id"`
	} `mapstructure:"company"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Outreach struct {
		InsertChunkSize int `mapstructure:"insertChunkSize"` // Touchpoints per bulk-insert chunk
		BatchCutoffHour int `mapstructure:"batchCutoffHour"` // Local hour after which new batches anchor to the next business day
	} `mapstructure:"outreach"`
	WorkerPools struct {
		Enrollment EnrollmentWorkerPoolConfig `mapstructure:"enrollment"`
	} `mapstructure:"workerPools"`
}

// EnrollmentWorkerPoolConfig holds configuration for the enrollment worker pool
type EnrollmentWorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to block when submitting if queue full
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	// Create new viper instance
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)

	// NATS defaults
	v.SetDefault("nats.stream", "outreach_events")
	v.SetDefault("nats.subjectPrefix", "v1.outreach")
	v.SetDefault("nats.consumer", "outreach_enrollment")
	v.SetDefault("nats.maxAge", 30)
	v.SetDefault("nats.maxDeliver", 5)
	v.SetDefault("nats.nakBaseDelay", 2*time.Second)
	v.SetDefault("nats.nakMaxDelay", 5*time.Minute)
	v.SetDefault("nats.fetchBatchSize", 10)

	// Outreach defaults
	v.SetDefault("outreach.insertChunkSize", 200)
	v.SetDefault("outreach.batchCutoffHour", 17)

	// WorkerPools defaults
	v.SetDefault("workerPools.enrollment.poolSize", 10)
	v.SetDefault("workerPools.enrollment.queueSize", 10000)
	v.SetDefault("workerPools.enrollment.maxBlock", time.Second)
	v.SetDefault("workerPools.enrollment.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default") // name of config file (without extension)
	v.SetConfigType("yaml")

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.outreach-crm-service")
	v.AddConfigPath("/etc/outreach-crm-service")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}
	if company := os.Getenv("COMPANY_ID"); company != "" {
		v.Set("company.id", company)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		// Get the field tag value (mapstructure)
		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		// Build the env var path
		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		// Bind the env var
		_ = v.BindEnv(key)
	}
}
