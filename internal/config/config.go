// Package config assembles the server configuration. Sources are applied in
// order, each overriding the previous one: built-in defaults, an optional YAML
// file, a .env file and GEARSEARCH_* environment variables, then flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/Cyclone1070/gearsearch/internal/search"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GEARSEARCH_"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Search  search.Config `yaml:"search"`
	Catalog CatalogConfig `yaml:"catalog"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxResults caps every response, never above product.MaxResults.
	MaxResults  int             `yaml:"max_results"`
	CORSOrigins []string        `yaml:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Frontend    bool            `yaml:"frontend"`
}

// RateLimitConfig is a per client IP token bucket. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

// CatalogConfig locates the SQLite catalog. An empty path disables it.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

type JobsConfig struct {
	// RefreshSpec is a cron spec for the catalog refresh. Empty disables it.
	RefreshSpec    string `yaml:"refresh_spec"`
	RefreshQueries int    `yaml:"refresh_queries"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 8 * time.Second,
			MaxResults:      product.MaxResults,
			CORSOrigins:     []string{"*"},
			RateLimit:       RateLimitConfig{RPS: 5, Burst: 10},
			Frontend:        true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Search: search.Config{}.WithDefaults(),
		Catalog: CatalogConfig{
			Path: "gearsearch.db",
		},
		Jobs: JobsConfig{
			RefreshSpec:    "@every 6h",
			RefreshQueries: 20,
		},
	}
}

// Load builds the configuration for the server from args (without the
// program name). A missing .env file is not an error.
func Load(args []string) (Config, error) {
	return load(args, ".env", os.Stderr)
}

func load(args []string, envFile string, output io.Writer) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	path := envOr(envPrefix+"CONFIG", configPathFromArgs(args))
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	fs := flag.NewFlagSet("gearsearch", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		_            = fs.String("config", path, "Path to a YAML config file")
		listenAddr   = fs.String("listen", envOr(envPrefix+"LISTEN", cfg.Server.ListenAddr), "HTTP listen address")
		maxResults   = fs.Int("max-results", envOrInt(envPrefix+"MAX_RESULTS", cfg.Server.MaxResults), "Maximum results per response")
		corsOrigins  = fs.String("cors-origins", envOr(envPrefix+"CORS_ORIGINS", strings.Join(cfg.Server.CORSOrigins, ",")), "Comma-separated allowed CORS origins")
		rateLimit    = fs.Float64("rate-limit", envOrFloat(envPrefix+"RATE_LIMIT", cfg.Server.RateLimit.RPS), "Requests per second per client, 0 disables")
		rateBurst    = fs.Int("rate-burst", envOrInt(envPrefix+"RATE_BURST", cfg.Server.RateLimit.Burst), "Rate limit burst")
		frontend     = fs.Bool("frontend", envOrBool(envPrefix+"FRONTEND", cfg.Server.Frontend), "Serve the demo page on /")
		logLevel     = fs.String("log-level", envOr(envPrefix+"LOG_LEVEL", cfg.Log.Level), "Log level: debug|info|warn|error")
		logFormat    = fs.String("log-format", envOr(envPrefix+"LOG_FORMAT", cfg.Log.Format), "Log format: json|console")
		providers    = fs.String("providers", envOr(envPrefix+"PROVIDERS", strings.Join(cfg.Search.Providers, ",")), "Comma-separated provider fallback order")
		searchURL    = fs.String("search-url", envOr(envPrefix+"SEARCH_URL", cfg.Search.Scrape.SearchURL), "Search page URL template with one %s")
		cardSelector = fs.String("card-selector", envOr(envPrefix+"CARD_SELECTOR", cfg.Search.Scrape.CardSelector), "CSS selector of one result card")
		sourcesFile  = fs.String("sources", envOr(envPrefix+"SOURCES_FILE", cfg.Search.Scrape.SourcesFile), "sources.json to search instead of -search-url")
		followLinks  = fs.Bool("follow-links", envOrBool(envPrefix+"FOLLOW_LINKS", cfg.Search.Scrape.FollowLinks), "Open product pages for details")
		catalogPath  = fs.String("catalog", envOr(envPrefix+"CATALOG_PATH", cfg.Catalog.Path), "SQLite catalog path, empty disables")
		refreshSpec  = fs.String("refresh", envOr(envPrefix+"REFRESH_SPEC", cfg.Jobs.RefreshSpec), "Cron spec for the catalog refresh, empty disables")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Server.ListenAddr = strings.TrimSpace(*listenAddr)
	cfg.Server.MaxResults = *maxResults
	cfg.Server.CORSOrigins = splitCSV(*corsOrigins)
	cfg.Server.RateLimit.RPS = *rateLimit
	cfg.Server.RateLimit.Burst = *rateBurst
	cfg.Server.Frontend = *frontend
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(*logLevel))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(*logFormat))
	cfg.Search.Providers = splitCSV(*providers)
	cfg.Search.Scrape.SearchURL = strings.TrimSpace(*searchURL)
	cfg.Search.Scrape.CardSelector = strings.TrimSpace(*cardSelector)
	cfg.Search.Scrape.SourcesFile = strings.TrimSpace(*sourcesFile)
	cfg.Search.Scrape.FollowLinks = *followLinks
	cfg.Catalog.Path = strings.TrimSpace(*catalogPath)
	cfg.Jobs.RefreshSpec = strings.TrimSpace(*refreshSpec)

	cfg.Search = cfg.Search.WithDefaults()

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// configPathFromArgs finds -config before the full flag set exists, since
// the file supplies the flag defaults.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func validate(cfg Config) error {
	if cfg.Server.ListenAddr == "" {
		return errors.New("listen must not be empty")
	}
	if cfg.Server.MaxResults <= 0 || cfg.Server.MaxResults > product.MaxResults {
		return fmt.Errorf("max-results out of range [1, %d]: %d", product.MaxResults, cfg.Server.MaxResults)
	}
	if cfg.Server.RateLimit.RPS < 0 {
		return fmt.Errorf("rate-limit must not be negative: %v", cfg.Server.RateLimit.RPS)
	}
	if cfg.Server.RateLimit.RPS > 0 && cfg.Server.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate-burst must be positive: %d", cfg.Server.RateLimit.Burst)
	}
	for _, d := range []time.Duration{cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout, cfg.Server.ShutdownTimeout} {
		if d <= 0 {
			return errors.New("server timeouts must be positive")
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log-level: %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "console", "text":
	default:
		return fmt.Errorf("invalid log-format: %q", cfg.Log.Format)
	}

	for _, name := range cfg.Search.Providers {
		switch name {
		case search.ProviderScrape, search.ProviderMock:
		case search.ProviderCatalog:
			if cfg.Catalog.Path == "" {
				return errors.New("the catalog provider needs a catalog path")
			}
		default:
			return fmt.Errorf("unknown provider %q", name)
		}
	}
	if cfg.Search.Scrape.SourcesFile == "" && !strings.Contains(cfg.Search.Scrape.SearchURL, "%s") {
		return fmt.Errorf("search-url %q has no %%s placeholder", cfg.Search.Scrape.SearchURL)
	}

	if cfg.Jobs.RefreshSpec != "" {
		if cfg.Catalog.Path == "" {
			return errors.New("the catalog refresh needs a catalog path")
		}
		if _, err := cron.ParseStandard(cfg.Jobs.RefreshSpec); err != nil {
			return fmt.Errorf("invalid refresh spec %q: %w", cfg.Jobs.RefreshSpec, err)
		}
		if cfg.Jobs.RefreshQueries <= 0 {
			return fmt.Errorf("refresh_queries must be positive: %d", cfg.Jobs.RefreshQueries)
		}
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrInt(key string, def int) int {
	n, err := strconv.Atoi(envOr(key, ""))
	if err != nil {
		return def
	}
	return n
}

func envOrFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(envOr(key, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func envOrBool(key string, def bool) bool {
	switch strings.ToLower(envOr(key, "")) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if t := strings.TrimSpace(r); t != "" {
			out = append(out, t)
		}
	}
	return out
}
