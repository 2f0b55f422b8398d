package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Exporters []string        `yaml:"exporters"` // mongodb | splashcat | archive
	Source    SourceConfig    `yaml:"source"`
	Mongo     MongoConfig     `yaml:"mongodb"`
	Splashcat SplashcatConfig `yaml:"splashcat"`
	Archive   StorageConfig   `yaml:"archive"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Report    ReportConfig    `yaml:"report"`
	Versions  VersionConfig   `yaml:"versions"`
}

type SourceConfig struct {
	Dir string `yaml:"dir"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	WebBaseURL string `yaml:"webBaseUrl"`
}

type SplashcatConfig struct {
	APIKey    string `yaml:"apiKey"`
	BaseURL   string `yaml:"baseUrl"`
	UserAgent string `yaml:"userAgent"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"` // local | gcs | s3
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	LocalDir string `yaml:"localDir"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type CatalogConfig struct {
	PostgresDSN string `yaml:"postgresDsn"`
	Namespace   string `yaml:"namespace"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

type ReportConfig struct {
	Path string `yaml:"path"`
}

type VersionConfig struct {
	NsoVersion   string `yaml:"nsoVersion"`
	AgentVersion string `yaml:"agentVersion"`
}

// profile is the on-disk layout. The flat keys are the ones older profiles
// carry and take effect when the nested sections leave them empty.
type profile struct {
	Config          `yaml:",inline"`
	MongoDBURI      string `yaml:"mongoDbUri"`
	SplashcatAPIKey string `yaml:"splashcatApiKey"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Exporters: []string{"mongodb"},
		Source:    SourceConfig{Dir: "./export"},
		Mongo: MongoConfig{
			Database:   "splashcat",
			WebBaseURL: "https://new.splatoon.catgirlin.space",
		},
		Splashcat: SplashcatConfig{
			BaseURL:   "https://splashcat.ink",
			UserAgent: "battle-exporter",
		},
		Archive: StorageConfig{
			Backend:  "local",
			Prefix:   "splatnet3/",
			LocalDir: "./archive",
		},
		Catalog: CatalogConfig{Namespace: "default"},
		Metrics: MetricsConfig{Address: ":9090"},
		Logging: LoggingConfig{Format: "text", Level: "info"},
		Report:  ReportConfig{Path: "errored-games.json"},
	}
}

// Load reads .env (if present), then the YAML profile at path (if set and
// present), then environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read profile %s: %w", path, err)
		default:
			p := profile{Config: cfg}
			if err := yaml.Unmarshal(data, &p); err != nil {
				return Config{}, fmt.Errorf("parse profile %s: %w", path, err)
			}
			cfg = p.Config
			if cfg.Mongo.URI == "" {
				cfg.Mongo.URI = p.MongoDBURI
			}
			if cfg.Splashcat.APIKey == "" {
				cfg.Splashcat.APIKey = p.SplashcatAPIKey
			}
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// MustLoad is Load that exits the process on error.
func MustLoad(path string) Config {
	log.Println("[config] loading")
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EXPORTERS"); v != "" {
		cfg.Exporters = splitList(v)
	}
	cfg.Source.Dir = getenvDefault("SOURCE_DIR", cfg.Source.Dir)

	cfg.Mongo.URI = getenvDefault("MONGODB_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getenvDefault("MONGODB_DATABASE", cfg.Mongo.Database)
	cfg.Mongo.WebBaseURL = getenvDefault("MONGODB_WEB_BASE_URL", cfg.Mongo.WebBaseURL)

	cfg.Splashcat.APIKey = getenvDefault("SPLASHCAT_API_KEY", cfg.Splashcat.APIKey)
	cfg.Splashcat.BaseURL = getenvDefault("SPLASHCAT_BASE_URL", cfg.Splashcat.BaseURL)

	cfg.Archive.Backend = getenvDefault("STORAGE_BACKEND", cfg.Archive.Backend)
	cfg.Archive.Bucket = getenvDefault("STORAGE_BUCKET", cfg.Archive.Bucket)
	cfg.Archive.Prefix = getenvDefault("STORAGE_PREFIX", cfg.Archive.Prefix)
	cfg.Archive.LocalDir = getenvDefault("LOCAL_DIR", cfg.Archive.LocalDir)
	cfg.Archive.Region = getenvDefault("AWS_REGION", cfg.Archive.Region)
	cfg.Archive.Endpoint = getenvDefault("S3_ENDPOINT", cfg.Archive.Endpoint)

	cfg.Catalog.PostgresDSN = getenvDefault("CATALOG_DSN", cfg.Catalog.PostgresDSN)
	cfg.Catalog.Namespace = getenvDefault("CATALOG_NAMESPACE", cfg.Catalog.Namespace)

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	cfg.Metrics.Address = getenvDefault("METRICS_ADDRESS", cfg.Metrics.Address)

	cfg.Logging.Format = getenvDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Level = getenvDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Report.Path = getenvDefault("REPORT_PATH", cfg.Report.Path)

	cfg.Versions.NsoVersion = getenvDefault("NSO_VERSION", cfg.Versions.NsoVersion)
	cfg.Versions.AgentVersion = getenvDefault("AGENT_VERSION", cfg.Versions.AgentVersion)
}

// Validate checks that every selected exporter has what it needs.
func (c Config) Validate() error {
	if len(c.Exporters) == 0 {
		return errors.New("no exporters selected")
	}
	for _, name := range c.Exporters {
		switch name {
		case "mongodb":
			if c.Mongo.URI == "" {
				return errors.New("mongodb exporter selected but MongoDB URI not set")
			}
		case "splashcat":
			if c.Splashcat.APIKey == "" {
				return errors.New("splashcat exporter selected but API key not set")
			}
		case "archive":
			switch c.Archive.Backend {
			case "local":
			case "gcs", "s3":
				if c.Archive.Bucket == "" {
					return fmt.Errorf("archive backend %s requires a bucket", c.Archive.Backend)
				}
			default:
				return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
			}
		default:
			return fmt.Errorf("unknown exporter %q", name)
		}
	}
	return nil
}

// Has reports whether the named exporter is selected.
func (c Config) Has(name string) bool {
	for _, n := range c.Exporters {
		if n == name {
			return true
		}
	}
	return false
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
