package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	DefaultFrequency  int
	FetchTimeout      int
	MaxItemsPerSource int
	APIAccessKey      string

	// Clustering configuration
	ClusterWindowHours int
	HammingThreshold   int

	// Generation configuration
	OllamaBaseURL     string
	OllamaModel       string
	GenerationTimeout int
	RedisAddr         string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
