package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
// A .env file in the working directory is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("LOREKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("lorekeeper")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".lorekeeper"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides apply to every key.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.base_url", cfg.Site.BaseURL)
	v.SetDefault("site.profile_path", cfg.Site.ProfilePath)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.politeness_delay", cfg.Fetcher.PolitenessDelay)
	v.SetDefault("fetcher.max_attempts", cfg.Fetcher.MaxAttempts)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.settle_time", cfg.Browser.SettleTime)

	v.SetDefault("visited.backend", cfg.Visited.Backend)
	v.SetDefault("visited.path", cfg.Visited.Path)
	v.SetDefault("visited.flush_every", cfg.Visited.FlushEvery)
	v.SetDefault("visited.key", cfg.Visited.Key)

	v.SetDefault("storage.stage_dir", cfg.Storage.StageDir)

	v.SetDefault("ingest.types", cfg.Ingest.Types)
	v.SetDefault("ingest.batch_size", cfg.Ingest.BatchSize)
	v.SetDefault("ingest.commit_on_finish", cfg.Ingest.CommitOnFinish)
	v.SetDefault("ingest.archive_dir", cfg.Ingest.ArchiveDir)
	v.SetDefault("ingest.mongo.uri", cfg.Ingest.Mongo.URI)
	v.SetDefault("ingest.mongo.database", cfg.Ingest.Mongo.Database)
	v.SetDefault("ingest.mongo.collection", cfg.Ingest.Mongo.Collection)
	v.SetDefault("ingest.mongo.timeout", cfg.Ingest.Mongo.Timeout)
	v.SetDefault("ingest.elasticsearch.addresses", cfg.Ingest.Elasticsearch.Addresses)
	v.SetDefault("ingest.elasticsearch.index", cfg.Ingest.Elasticsearch.Index)
	v.SetDefault("ingest.elasticsearch.username", cfg.Ingest.Elasticsearch.Username)
	v.SetDefault("ingest.elasticsearch.password", cfg.Ingest.Elasticsearch.Password)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
