// Package insight provides the length-of-stay insight server implementation.
package insight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/los-insight/internal/insight/biz"
	"github.com/kart-io/los-insight/internal/insight/handler"
	"github.com/kart-io/los-insight/internal/insight/metrics"
	"github.com/kart-io/los-insight/internal/insight/router"
	"github.com/kart-io/los-insight/internal/insight/store"
	"github.com/kart-io/los-insight/internal/pkg/cohort"
	"github.com/kart-io/los-insight/internal/pkg/conditions"
	"github.com/kart-io/los-insight/internal/pkg/notes"
	"github.com/kart-io/los-insight/pkg/component/milvus"
	"github.com/kart-io/los-insight/pkg/component/mongodb"
	"github.com/kart-io/los-insight/pkg/component/redis"
	"github.com/kart-io/los-insight/pkg/infra/app"
	"github.com/kart-io/los-insight/pkg/infra/config"
	"github.com/kart-io/los-insight/pkg/infra/pool"
	"github.com/kart-io/los-insight/pkg/infra/tracing"
	"github.com/kart-io/los-insight/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/los-insight/pkg/llm/ollama"
	_ "github.com/kart-io/los-insight/pkg/llm/openai"
	"github.com/kart-io/los-insight/pkg/llm/resilience"
	"github.com/kart-io/los-insight/pkg/middleware"
	cohortopts "github.com/kart-io/los-insight/pkg/options/cohort"
	evidenceopts "github.com/kart-io/los-insight/pkg/options/evidence"
	httpopts "github.com/kart-io/los-insight/pkg/options/http"
	llmopts "github.com/kart-io/los-insight/pkg/options/llm"
	logopts "github.com/kart-io/los-insight/pkg/options/logger"
	middlewareopts "github.com/kart-io/los-insight/pkg/options/middleware"
	milvusopts "github.com/kart-io/los-insight/pkg/options/milvus"
	mongodbopts "github.com/kart-io/los-insight/pkg/options/mongodb"
	notesopts "github.com/kart-io/los-insight/pkg/options/notes"
	redisopts "github.com/kart-io/los-insight/pkg/options/redis"
	tracingopts "github.com/kart-io/los-insight/pkg/options/tracing"
	"github.com/kart-io/los-insight/pkg/validator"
)

// Name is the name of the application.
const Name = "los-insight"

// ingestBatchSize 语料向量化时每批文档数量。
const ingestBatchSize = 32

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	MiddlewareOptions *middlewareopts.Options
	CohortOptions     *cohortopts.Options
	EvidenceOptions   *evidenceopts.Options
	NotesOptions      *notesopts.Options
	RedisOptions      *redisopts.Options
	MilvusOptions     *milvusopts.Options
	MongoDBOptions    *mongodbopts.Options
	ChatOptions       *llmopts.ProviderOptions
	EmbeddingOptions  *llmopts.ProviderOptions
	TracingOptions    *tracingopts.Options
}

// Server represents the insight server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	cleanups        []func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)
	s := &Server{shutdownTimeout: cfg.HTTPOptions.ShutdownTimeout}

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting insight service...")

	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions, app.GetVersion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("Failed to flush traces", "error", err.Error())
		}
	})
	if tp.Enabled() {
		logger.Infow("Tracing enabled",
			"exporter", cfg.TracingOptions.ExporterType,
			"endpoint", cfg.TracingOptions.Endpoint,
		)
	}

	// 2. 加载住院队列
	records, loadStats, err := cohort.Load(cfg.CohortOptions)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load cohort: %w", err)
	}
	snapshot := cohort.New(records, time.Now())
	logger.Infow("Cohort loaded",
		"path", cfg.CohortOptions.Path,
		"rows", loadStats.Rows,
		"loaded", loadStats.Loaded,
		"skipped", loadStats.Skipped,
		"p75", snapshot.Percentiles().P75,
		"p90", snapshot.Percentiles().P90,
	)

	// 3. 初始化 Redis 客户端（笔记存储或向量缓存需要时）
	var rdb *redis.Client
	if cfg.needsRedis() {
		rdb, err = redis.New(ctx, cfg.RedisOptions)
		if err != nil {
			if cfg.NotesOptions.Backend == notesopts.BackendRedis {
				s.close()
				return nil, fmt.Errorf("failed to initialize redis: %w", err)
			}
			logger.Warnw("Failed to connect to redis, embedding cache will be disabled", "error", err.Error())
			rdb = nil
		} else {
			s.onClose(func() { _ = rdb.Close() })
			logger.Infow("Redis client initialized", "addr", cfg.RedisOptions.Addr())
		}
	}

	// 4. 初始化笔记存储
	clients := notes.Clients{Redis: universal(rdb)}
	if cfg.NotesOptions.Backend == notesopts.BackendMongo {
		mc, err := mongodb.New(ctx, cfg.MongoDBOptions)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to initialize mongodb: %w", err)
		}
		s.onClose(func() { _ = mc.Close() })
		clients.Mongo = mc.Database()
		logger.Infow("MongoDB client initialized", "mongodb", cfg.MongoDBOptions.String())
	}
	noteStore, err := notes.New(ctx, cfg.NotesOptions, clients)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to initialize notes store: %w", err)
	}
	s.onClose(func() { _ = noteStore.Close() })

	// 5. 初始化 LLM 供应商
	m := metrics.Get()
	chat := cfg.newChatProvider()
	embedder := cfg.newEmbeddingProvider(rdb)

	// 6. 初始化证据检索
	evidence := cfg.newEvidenceIndex(ctx, s, embedder, m)

	// 7. 初始化协程池
	workers, err := pool.New("cohort-assess", &pool.Config{
		Capacity:       cfg.CohortOptions.Workers,
		ExpiryDuration: 10 * time.Second,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to initialize worker pool: %w", err)
	}
	s.onClose(workers.Release)

	// 8. 初始化 Biz 层
	extractor := conditions.NewExtractor(conditions.WithLabSignals(cfg.EvidenceOptions.LabSignals))
	responder := biz.NewResponder(extractor, evidence, chat, &biz.ResponderConfig{
		Timeout: cfg.ChatOptions.Timeout,
		TopK:    cfg.EvidenceOptions.TopK,
	}, m)
	svc := biz.NewInsightService(snapshot, noteStore, responder, evidence, workers, m)
	logger.Infow("Insight service initialized",
		"chat.enabled", chat != nil,
		"evidence.enabled", cfg.EvidenceOptions.Enabled,
		"evidence.backend", cfg.EvidenceOptions.Backend,
		"notes.backend", cfg.NotesOptions.Backend,
	)

	// 9. 监听数据文件变更
	if cfg.CohortOptions.Watch {
		w := config.NewWatcher(cfg.CohortOptions.Path, cfg.CohortOptions.WatchDebounce)
		w.Subscribe("cohort", cfg.reloadCohort(svc))
		if err := w.Start(ctx); err != nil {
			logger.Warnw("Cohort watch disabled", "path", cfg.CohortOptions.Path, "error", err.Error())
		} else {
			s.onClose(w.Stop)
		}
	}

	// 10. 初始化 HTTP 服务器并注册路由
	gin.SetMode(cfg.HTTPOptions.Mode)
	validator.Install()
	engine := gin.New()
	collector := middleware.NewMetricsCollector(router.MetricsNamespace, "http")
	engine.Use(middleware.Chain(cfg.MiddlewareOptions, collector)...)
	if tp.Enabled() {
		engine.Use(middleware.Tracing("/healthz", "/metrics"))
	}
	router.Register(engine, handler.NewInsightHandler(svc), m, collector)

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("Insight service is ready")
	return s, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) onClose(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

// close 按注册的逆序释放资源。
func (s *Server) close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}

// universal 避免将 nil *redis.Client 包装成非 nil 接口。
func universal(rdb *redis.Client) goredis.UniversalClient {
	if rdb == nil {
		return nil
	}
	return rdb.Client()
}

// reloadCohort 重新加载数据文件并替换快照。加载失败或没有有效行时保留旧快照。
func (cfg *Config) reloadCohort(svc *biz.InsightService) config.ChangeHandler {
	return func(_ context.Context, path string) error {
		records, stats, err := cohort.Load(cfg.CohortOptions)
		if err != nil {
			return fmt.Errorf("reload cohort: %w", err)
		}
		if stats.Loaded == 0 {
			return fmt.Errorf("reload cohort: %s has no usable rows", path)
		}
		snapshot := cohort.New(records, time.Now())
		svc.SetCohort(snapshot)
		logger.Infow("Cohort reloaded",
			"path", path,
			"loaded", stats.Loaded,
			"skipped", stats.Skipped,
			"p75", snapshot.Percentiles().P75,
			"p90", snapshot.Percentiles().P90,
		)
		return nil
	}
}

func (cfg *Config) needsRedis() bool {
	if cfg.NotesOptions.Backend == notesopts.BackendRedis {
		return true
	}
	e := cfg.EvidenceOptions
	return e.Enabled && e.Cache != nil && e.Cache.Enabled
}

// newChatProvider 未配置凭据时返回 nil，所有问答走规则回答。
func (cfg *Config) newChatProvider() llm.ChatProvider {
	if !cfg.ChatOptions.Configured() {
		logger.Warnw("Chat provider not configured, answers will use the rule-based fallback",
			"provider", cfg.ChatOptions.Provider)
		return nil
	}

	provider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		logger.Warnw("Failed to initialize chat provider, answers will use the rule-based fallback",
			"provider", cfg.ChatOptions.Provider, "error", err.Error())
		return nil
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	b := cfg.EvidenceOptions.Breaker
	if b == nil || !b.Enabled {
		return provider
	}
	logger.Infow("Chat circuit breaker enabled", "max_failures", b.MaxFailures, "timeout", b.Timeout)
	return resilience.NewBreakerChatProvider(provider, &resilience.CircuitBreakerConfig{
		MaxFailures:      b.MaxFailures,
		Timeout:          b.Timeout,
		HalfOpenMaxCalls: 1,
	})
}

// newEmbeddingProvider 证据检索关闭或初始化失败时返回 nil。
func (cfg *Config) newEmbeddingProvider(rdb *redis.Client) llm.EmbeddingProvider {
	if !cfg.EvidenceOptions.Enabled {
		return nil
	}
	provider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		logger.Warnw("Failed to initialize embedding provider, evidence retrieval disabled",
			"provider", cfg.EmbeddingOptions.Provider, "error", err.Error())
		return nil
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	c := cfg.EvidenceOptions.Cache
	if rdb == nil || c == nil || !c.Enabled {
		return provider
	}
	logger.Infow("Embedding cache enabled", "ttl", c.TTL, "prefix", c.Prefix)
	return llm.NewCachedEmbeddingProvider(provider, rdb.Client(), &llm.EmbeddingCacheConfig{
		TTL:       c.TTL,
		KeyPrefix: c.Prefix,
	})
}

// newEvidenceIndex 证据不可用时返回空索引，问答不受影响。
func (cfg *Config) newEvidenceIndex(ctx context.Context, s *Server, embedder llm.EmbeddingProvider, m *metrics.InsightMetrics) *biz.EvidenceIndex {
	evidenceConfig := &biz.EvidenceConfig{
		TopK:    cfg.EvidenceOptions.TopK,
		Timeout: cfg.EvidenceOptions.SearchTimeout,
	}
	if !cfg.EvidenceOptions.Enabled || embedder == nil {
		logger.Info("Evidence retrieval is disabled")
		return biz.NewEvidenceIndex(nil, nil, evidenceConfig, m)
	}

	var vs store.VectorStore
	switch cfg.EvidenceOptions.Backend {
	case evidenceopts.BackendMilvus:
		client, err := milvus.New(ctx, cfg.MilvusOptions)
		if err != nil {
			logger.Warnw("Evidence unavailable", "backend", "milvus", "error", err.Error())
			break
		}
		s.onClose(func() { _ = client.Close(context.Background()) })
		vs = store.NewMilvusStore(client, cfg.EvidenceOptions.Collection)
		logger.Infow("Milvus evidence store initialized",
			"address", cfg.MilvusOptions.Address,
			"collection", cfg.EvidenceOptions.Collection,
		)
	default:
		docs, err := store.LoadCorpus(cfg.EvidenceOptions.CorpusPath)
		if err != nil {
			logger.Warnw("Evidence unavailable", "backend", "memory", "error", err.Error())
			break
		}
		ms := store.NewMemoryStore()
		n, err := biz.IngestCorpus(ctx, ms, embedder, docs, ingestBatchSize)
		if err != nil {
			logger.Warnw("Evidence unavailable", "backend", "memory", "error", err.Error())
			break
		}
		vs = ms
		logger.Infow("Memory evidence store initialized", "path", cfg.EvidenceOptions.CorpusPath, "documents", n)
	}

	if vs == nil {
		return biz.NewEvidenceIndex(nil, nil, evidenceConfig, m)
	}
	return biz.NewEvidenceIndex(vs, embedder, evidenceConfig, m)
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Cohort: %s\n", cfg.CohortOptions.Path)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	if cfg.EvidenceOptions.Enabled {
		fmt.Printf("  Evidence: %s, embedding %s (%s)\n", cfg.EvidenceOptions.Backend, cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	}
	fmt.Printf("  Notes: %s\n", cfg.NotesOptions.Backend)
}
