package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sjsage522/carlistingworker/config"
	"sjsage522/carlistingworker/internal/crawler"
	"sjsage522/carlistingworker/logger"
	"sjsage522/carlistingworker/services/cache"
	"sjsage522/carlistingworker/services/proxy"
	"sjsage522/carlistingworker/services/publisher"
	"sjsage522/carlistingworker/services/session"
	"sjsage522/carlistingworker/services/worker"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := run(); err != nil {
		logger.Get().Error().Err(err).Msg("Worker exited with error")
		os.Exit(1)
	}
}

func run() error {
	log := logger.Get()

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("provider", cfg.Provider).
		Str("sink", cfg.Sink).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	c, err := crawler.NewMarketplaceCrawler(cfg.CrawlerOptions(), services.Pool)
	if err != nil {
		return err
	}

	w := worker.NewWorker(c, services.Publisher, cfg.Filter(), cfg.BatchSize, cfg.CrawlInterval)

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Str("crawler", c.String()).Msg("Starting listing worker")
		workerDone <- w.Start(ctx)
	}()

	// Wait for shutdown signal or worker exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		// in-flight pages finish and the final flush runs before Start returns
		err = <-workerDone
	case err = <-workerDone:
	}

	if err != nil {
		return err
	}
	log.Info().Msg("Worker exited normally")
	return nil
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Pool      *session.Pool
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.Get().Warn().Err(err).Msg("Failed to close publisher")
		}
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	log := logger.Get()
	services := &Services{}

	// Initialize cache service
	cacheLog := logger.ForCache()
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			cacheLog.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unreachable, using in-memory cache")
			services.Cache = cache.NewMemoryCache()
		} else {
			cacheLog.Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
			services.Cache = mc
		}
	} else {
		cacheLog.Debug().Msg("Using in-memory cache")
		services.Cache = cache.NewMemoryCache()
	}

	// Resolve proxies, then one identity per proxy
	proxies, err := proxy.NewManager(proxy.Options{
		Static:    cfg.ProxyURLs,
		SourceURL: cfg.ProxySourceURL,
		Verify:    cfg.ProxyVerify,
		Client:    &http.Client{Timeout: cfg.RequestTimeout},
	}).Load(ctx)
	if err != nil {
		return nil, err
	}

	identities, err := session.BuildIdentities(proxies, cfg.IdentityPoolSize, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	services.Pool = session.NewPool(identities, services.Cache, cfg.TaintTTL)
	log.Info().
		Int("proxies", len(proxies)).
		Int("identities", services.Pool.Size()).
		Msg("Identity pool ready")

	// Initialize publisher
	pub, err := newPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	services.Publisher = pub

	return services, nil
}

func newPublisher(ctx context.Context, cfg *config.Config) (publisher.Publisher, error) {
	log := logger.Get()

	switch cfg.Sink {
	case publisher.SinkRedis:
		p := publisher.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		log.Info().
			Str("addr", cfg.RedisAddr).
			Int("db", cfg.RedisDB).
			Str("stream", cfg.RedisStream).
			Msg("Connected to Redis")
		return p, nil

	case publisher.SinkPostgres:
		p, err := publisher.NewPostgresPublisher(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := p.EnsureSchema(ctx); err != nil {
			p.Close()
			return nil, err
		}
		log.Info().Msg("Connected to Postgres")
		return p, nil

	default:
		p, err := publisher.NewFilePublisher(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.OutputPath).Msg("Writing listings to file")
		return p, nil
	}
}
