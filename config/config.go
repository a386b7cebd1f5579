package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/carlistingworker/helpers"
	"sjsage522/carlistingworker/internal/crawler"
	crawlerrors "sjsage522/carlistingworker/pkg/errors"
	"sjsage522/carlistingworker/services/publisher"
)

// Config represents the application configuration
type Config struct {
	// Marketplace and search filters
	Provider      string
	BaseURL       string
	City          string
	Make          string
	Model         string
	MinPrice      *int
	MaxPrice      *int
	MinYear       *int
	MaxYear       *int
	ResultsWanted int
	MaxPages      int
	StartURL      string

	// Crawler behaviour
	Concurrency       int
	MaxRetries        int
	RetryBackoff      time.Duration
	MinDelay          time.Duration
	MaxDelay          time.Duration
	RequestsPerSecond float64
	RequestTimeout    time.Duration
	BlockTokens       []string

	// Identities
	ProxyURLs        []string
	ProxySourceURL   string
	ProxyVerify      bool
	IdentityPoolSize int
	TaintTTL         time.Duration

	// Memcache configuration
	MemcacheAddr string

	// Output
	Sink       string
	BatchSize  int
	OutputPath string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int64

	// Postgres configuration
	PostgresDSN string

	// Worker configuration
	CrawlInterval time.Duration

	// Environment
	Environment string

	parseErrors []string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	c := &Config{}

	c.Provider = getEnv("MARKETPLACE_PROVIDER", crawler.PakWheels)
	c.BaseURL = getEnv("MARKETPLACE_BASE_URL", "https://www.pakwheels.com")
	c.City = getEnv("CITY", "")
	c.Make = getEnv("MAKE", "")
	c.Model = getEnv("MODEL", "")
	c.MinPrice = c.getEnvOptionalInt("MIN_PRICE")
	c.MaxPrice = c.getEnvOptionalInt("MAX_PRICE")
	c.MinYear = c.getEnvOptionalInt("MIN_YEAR")
	c.MaxYear = c.getEnvOptionalInt("MAX_YEAR")
	c.ResultsWanted = c.getEnvInt("RESULTS_WANTED", crawler.DefaultResultsWanted)
	c.MaxPages = c.getEnvInt("MAX_PAGES", crawler.DefaultMaxPages)
	c.StartURL = getEnv("START_URL", "")

	c.Concurrency = c.getEnvInt("CRAWL_CONCURRENCY", 5)
	c.MaxRetries = c.getEnvInt("MAX_RETRIES", 3)
	c.RetryBackoff = time.Duration(c.getEnvInt("RETRY_BACKOFF_MS", 2000)) * time.Millisecond
	c.MinDelay = time.Duration(c.getEnvInt("MIN_DELAY_MS", 500)) * time.Millisecond
	c.MaxDelay = time.Duration(c.getEnvInt("MAX_DELAY_MS", 2000)) * time.Millisecond
	c.RequestsPerSecond = c.getEnvFloat("REQUESTS_PER_SECOND", 0)
	c.RequestTimeout = time.Duration(c.getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second
	c.BlockTokens = helpers.SplitList(getEnv("BLOCK_TOKENS", strings.Join(crawler.DefaultBlockTokens, ",")))

	c.ProxyURLs = helpers.SplitList(getEnv("PROXY_URLS", ""))
	c.ProxySourceURL = getEnv("PROXY_SOURCE_URL", "")
	c.ProxyVerify = c.getEnvBool("PROXY_VERIFY", false)
	c.IdentityPoolSize = c.getEnvInt("IDENTITY_POOL_SIZE", 3)
	c.TaintTTL = time.Duration(c.getEnvInt("TAINT_TTL_SECONDS", 86400)) * time.Second

	c.MemcacheAddr = getEnv("MEMCACHE_ADDR", "")

	c.Sink = strings.ToLower(getEnv("SINK", publisher.SinkFile))
	c.BatchSize = c.getEnvInt("BATCH_SIZE", 25)
	c.OutputPath = getEnv("OUTPUT_PATH", "output/listings.jsonl")

	c.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	c.RedisDB = c.getEnvInt("REDIS_DB", 0)
	c.RedisStream = getEnv("REDIS_STREAM", "listings")
	c.RedisStreamMaxLength = int64(c.getEnvInt("REDIS_STREAM_MAX_LENGTH", 10000))

	c.PostgresDSN = getEnv("POSTGRES_DSN", "")

	c.CrawlInterval = time.Duration(c.getEnvInt("CRAWL_INTERVAL_SECONDS", 0)) * time.Second

	c.Environment = getEnv("WORKER_ENVIRONMENT", "development")

	return c
}

// Validate rejects settings that would make every run fail.
func (c *Config) Validate() error {
	var problems []string
	problems = append(problems, c.parseErrors...)

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("MARKETPLACE_BASE_URL %q is not an absolute url", c.BaseURL))
	}
	if c.StartURL != "" {
		if u, err := url.Parse(c.StartURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("START_URL %q is not an absolute url", c.StartURL))
		}
	}
	if _, ok := crawler.LookupProvider(c.Provider); !ok {
		problems = append(problems, fmt.Sprintf("unknown MARKETPLACE_PROVIDER %q", c.Provider))
	}

	for name, v := range map[string]*int{"MIN_PRICE": c.MinPrice, "MAX_PRICE": c.MaxPrice, "MIN_YEAR": c.MinYear, "MAX_YEAR": c.MaxYear} {
		if v != nil && *v < 0 {
			problems = append(problems, name+" must not be negative")
		}
	}
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		problems = append(problems, "MIN_PRICE is greater than MAX_PRICE")
	}
	if c.MinYear != nil && c.MaxYear != nil && *c.MinYear > *c.MaxYear {
		problems = append(problems, "MIN_YEAR is greater than MAX_YEAR")
	}

	if c.MinDelay < 0 || c.MaxDelay < 0 {
		problems = append(problems, "request delays must not be negative")
	}
	if c.MinDelay > c.MaxDelay {
		problems = append(problems, "MIN_DELAY_MS is greater than MAX_DELAY_MS")
	}
	if c.Concurrency < 1 {
		problems = append(problems, "CRAWL_CONCURRENCY must be at least 1")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "MAX_RETRIES must not be negative")
	}

	switch c.Sink {
	case publisher.SinkFile:
		if c.OutputPath == "" {
			problems = append(problems, "OUTPUT_PATH is required for the file sink")
		}
	case publisher.SinkRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis sink")
		}
	case publisher.SinkPostgres:
		if c.PostgresDSN == "" {
			problems = append(problems, "POSTGRES_DSN is required for the postgres sink")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown SINK %q", c.Sink))
	}

	if len(problems) > 0 {
		return crawlerrors.NewConfiguration(strings.Join(problems, "; "), nil)
	}
	return nil
}

// Filter returns the search filters, normalized.
func (c *Config) Filter() crawler.FilterSpec {
	return crawler.FilterSpec{
		City:          c.City,
		Make:          c.Make,
		Model:         c.Model,
		MinPrice:      c.MinPrice,
		MaxPrice:      c.MaxPrice,
		MinYear:       c.MinYear,
		MaxYear:       c.MaxYear,
		ResultsWanted: c.ResultsWanted,
		MaxPages:      c.MaxPages,
		StartURL:      c.StartURL,
	}.Normalize()
}

// CrawlerOptions returns the crawler settings.
func (c *Config) CrawlerOptions() crawler.Options {
	provider, _ := crawler.LookupProvider(c.Provider)
	return crawler.Options{
		Provider:          provider,
		BaseURL:           c.BaseURL,
		Concurrency:       c.Concurrency,
		MaxRetries:        c.MaxRetries,
		RetryBackoff:      c.RetryBackoff,
		MinDelay:          c.MinDelay,
		MaxDelay:          c.MaxDelay,
		RequestsPerSecond: c.RequestsPerSecond,
		BlockTokens:       c.BlockTokens,
	}
}

// IsProduction reports whether the worker runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s=%q is not an integer", key, value))
		return defaultValue
	}
	return n
}

func (c *Config) getEnvOptionalInt(key string) *int {
	value := getEnv(key, "")
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s=%q is not an integer", key, value))
		return nil
	}
	return &n
}

func (c *Config) getEnvFloat(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s=%q is not a number", key, value))
		return defaultValue
	}
	return f
}

func (c *Config) getEnvBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s=%q is not a boolean", key, value))
		return defaultValue
	}
	return b
}
