package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"news_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"news_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"newsriver" description:"Database name"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source definition files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for source processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler tick interval in seconds"`
	DefaultFrequency  int    `long:"default-frequency" env:"DEFAULT_FREQUENCY" default:"10" description:"Default per-source fetch frequency in minutes"`
	FetchTimeout      int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-request fetch timeout in seconds"`
	MaxItemsPerSource int    `long:"max-items" env:"MAX_ITEMS_PER_SOURCE" default:"50" description:"Maximum items ingested per source per fetch"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Clustering configuration
	ClusterWindowHours int `long:"cluster-window" env:"CLUSTER_WINDOW_HOURS" default:"48" description:"Lookback window in hours for cluster candidate comparison"`
	HammingThreshold   int `long:"hamming-threshold" env:"HAMMING_THRESHOLD" default:"3" description:"Maximum Hamming distance for near-duplicate cluster assignment"`

	// Generation configuration
	OllamaBaseURL     string `long:"ollama-url" env:"OLLAMA_BASE_URL" default:"http://localhost:11434" description:"Ollama base URL for text generation"`
	OllamaModel       string `long:"ollama-model" env:"OLLAMA_MODEL" default:"llama3" description:"Default Ollama model identifier"`
	GenerationTimeout int    `long:"generation-timeout" env:"GENERATION_TIMEOUT" default:"120" description:"Generation request timeout in seconds"`
	RedisAddr         string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the shared generation cache (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Newsriver/1.0 (+https://github.com/ilyakom/newsriver)" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:             raw.DBHost,
		DBPort:             raw.DBPort,
		DBUser:             raw.DBUser,
		DBPassword:         raw.DBPassword,
		DBName:             raw.DBName,
		SourcesDir:         raw.SourcesDir,
		Port:               raw.Port,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  raw.SchedulerInterval,
		DefaultFrequency:   raw.DefaultFrequency,
		FetchTimeout:       raw.FetchTimeout,
		MaxItemsPerSource:  raw.MaxItemsPerSource,
		APIAccessKey:       raw.APIAccessKey,
		ClusterWindowHours: raw.ClusterWindowHours,
		HammingThreshold:   raw.HammingThreshold,
		OllamaBaseURL:      raw.OllamaBaseURL,
		OllamaModel:        raw.OllamaModel,
		GenerationTimeout:  raw.GenerationTimeout,
		RedisAddr:          raw.RedisAddr,
		UserAgent:          raw.UserAgent,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
