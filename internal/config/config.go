package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for lorekeeper.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Visited VisitedConfig `mapstructure:"visited" yaml:"visited"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Ingest  IngestConfig  `mapstructure:"ingest"  yaml:"ingest"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// SiteConfig describes the lore site being harvested.
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// ProfilePath overrides the embedded extraction profile.
	ProfilePath string `mapstructure:"profile_path" yaml:"profile_path"`
}

// FetcherConfig controls document retrieval and the retry policy.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay"  yaml:"politeness_delay"`
	MaxAttempts     int           `mapstructure:"max_attempts"      yaml:"max_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"       yaml:"retry_delay"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// BrowserConfig controls the headless browser fetcher.
type BrowserConfig struct {
	Headless   bool          `mapstructure:"headless"    yaml:"headless"`
	Stealth    bool          `mapstructure:"stealth"     yaml:"stealth"`
	Bin        string        `mapstructure:"bin"         yaml:"bin"`
	WindowSize string        `mapstructure:"window_size" yaml:"window_size"`
	SettleTime time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
}

// VisitedConfig controls the persistent visited-set.
type VisitedConfig struct {
	Backend    string `mapstructure:"backend"     yaml:"backend"`
	Path       string `mapstructure:"path"        yaml:"path"`
	FlushEvery int    `mapstructure:"flush_every" yaml:"flush_every"`
	// Key names the state document when the backend is mongo.
	Key string `mapstructure:"key" yaml:"key"`
}

// StorageConfig controls the document stage.
type StorageConfig struct {
	StageDir string `mapstructure:"stage_dir" yaml:"stage_dir"`
}

// IngestConfig controls batch hand-off to the downstream pipeline.
type IngestConfig struct {
	Types          []string            `mapstructure:"types"            yaml:"types"`
	BatchSize      int                 `mapstructure:"batch_size"       yaml:"batch_size"`
	CommitOnFinish bool                `mapstructure:"commit_on_finish" yaml:"commit_on_finish"`
	ArchiveDir     string              `mapstructure:"archive_dir"      yaml:"archive_dir"`
	Mongo          MongoConfig         `mapstructure:"mongo"            yaml:"mongo"`
	Elasticsearch  ElasticsearchConfig `mapstructure:"elasticsearch"    yaml:"elasticsearch"`
}

// MongoConfig locates a MongoDB deployment.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"        yaml:"uri"`
	Database   string        `mapstructure:"database"   yaml:"database"`
	Collection string        `mapstructure:"collection" yaml:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// ElasticsearchConfig locates an Elasticsearch cluster.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses" yaml:"addresses"`
	Index     string   `mapstructure:"index"     yaml:"index"`
	Username  string   `mapstructure:"username"  yaml:"username"`
	Password  string   `mapstructure:"password"  yaml:"password"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus-text metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL: "https://www.hp-lexicon.org",
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			RequestTimeout:  30 * time.Second,
			PolitenessDelay: 1 * time.Second,
			MaxAttempts:     3,
			RetryDelay:      10 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
		},
		Browser: BrowserConfig{
			Headless:   true,
			Stealth:    true,
			WindowSize: "1440,900",
			SettleTime: 300 * time.Millisecond,
		},
		Visited: VisitedConfig{
			Backend:    "file",
			Path:       "./state/visited.json",
			FlushEvery: 10,
			Key:        "visited",
		},
		Storage: StorageConfig{
			StageDir: "./data/stage",
		},
		Ingest: IngestConfig{
			Types:          []string{"archive"},
			BatchSize:      20,
			CommitOnFinish: true,
			ArchiveDir:     "./data/corpus",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "lorekeeper",
				Collection: "documents",
				Timeout:    30 * time.Second,
			},
			Elasticsearch: ElasticsearchConfig{
				Addresses: []string{"http://localhost:9200"},
				Index:     "lore-documents",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
