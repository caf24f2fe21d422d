// Package http is the gin API surface: authenticated JSON endpoints under
// /api and token-gated media delivery under /stream.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"learntrust/internal/config"
	"learntrust/internal/domain"
	"learntrust/internal/infra/anchor"
	"learntrust/internal/infra/anchor/httpchain"
	"learntrust/internal/infra/auth/jwtauth"
	"learntrust/internal/infra/auth/rbac"
	"learntrust/internal/infra/cachemem"
	cryptoinfra "learntrust/internal/infra/crypto"
	"learntrust/internal/infra/db"
	"learntrust/internal/infra/hls"
	"learntrust/internal/infra/ledgermem"
	"learntrust/internal/infra/policyopa"
	"learntrust/internal/infra/ratelimit"
	"learntrust/internal/infra/token"
	"learntrust/internal/usecase"
)

type Server struct {
	cfg    config.Config
	store  *db.Store
	r      *gin.Engine
	logger *slog.Logger

	ledger      *usecase.Ledger
	watchEvents *usecase.WatchEvents
	progress    *usecase.ProgressTracker
	heatmap     *usecase.Heatmap
	modules     usecase.ModuleStore

	issuer      *token.Issuer
	packager    *hls.Packager
	workers     *hls.WorkerPool
	verifyCache *cachemem.Cache

	authenticator domain.Authenticator
	authorizer    domain.Authorizer
	authInitErr   error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store, logger *slog.Logger) (*Server, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, store: store, r: r, logger: logger}
	if err := s.initDeps(); err != nil {
		return nil, err
	}
	s.initAuth()
	s.initRateLimit(nil)
	s.routes()
	return s, nil
}

// ServerDeps lets tests and alternative wiring inject every collaborator.
type ServerDeps struct {
	Ledger        *usecase.Ledger
	WatchEvents   *usecase.WatchEvents
	Progress      *usecase.ProgressTracker
	Heatmap       *usecase.Heatmap
	Modules       usecase.ModuleStore
	Issuer        *token.Issuer
	Packager      *hls.Packager
	Workers       *hls.WorkerPool
	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   domain.RateLimiter
	Logger        *slog.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:           cfg,
		r:             r,
		logger:        logger,
		ledger:        deps.Ledger,
		watchEvents:   deps.WatchEvents,
		progress:      deps.Progress,
		heatmap:       deps.Heatmap,
		modules:       deps.Modules,
		issuer:        deps.Issuer,
		packager:      deps.Packager,
		workers:       deps.Workers,
		verifyCache:   cachemem.New(),
		authenticator: deps.Authenticator,
		authorizer:    deps.Authorizer,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() error {
	cryptoSvc, err := cryptoinfra.NewService(s.cfg.SecretKey)
	if err != nil {
		return err
	}
	issuer, err := token.NewIssuer(s.cfg.SecretKey, s.cfg.TokenTTL())
	if err != nil {
		return err
	}
	s.issuer = issuer
	s.verifyCache = cachemem.New()

	var (
		ledgerStore usecase.LedgerStore
		eventStore  usecase.WatchEventStore
		moduleStore usecase.ModuleStore
		progStore   usecase.ProgressStore
		assetStore  hls.AssetStore
		receiptRepo domain.AnchorReceiptRepository
	)
	if s.store != nil && s.store.DB != nil {
		ledgerStore = db.NewLedgerRepository(s.store.DB, cryptoSvc)
		eventStore = db.NewWatchEventRepository(s.store.DB, cryptoSvc)
		moduleStore = db.NewModuleRepository(s.store.DB)
		progStore = db.NewProgressRepository(s.store.DB)
		assetStore = db.NewMediaAssetRepository(s.store.DB)
		receiptRepo = db.NewAnchorReceiptRepository(s.store.DB)
	} else {
		mem := ledgermem.New(cryptoSvc)
		ledgerStore = mem.Ledger()
		eventStore = mem.WatchEvents()
		moduleStore = mem.Modules()
		progStore = mem.Progress()
		assetStore = mem.Media()
		receiptRepo = mem.Receipts()
	}
	s.modules = moduleStore

	var anchorProvider anchor.Provider
	anchorEnabled := s.cfg.AnchorURL != ""
	if anchorEnabled {
		provider, err := httpchain.NewProvider(s.cfg.AnchorURL, s.cfg.AnchorAPIKey, &http.Client{
			Timeout: s.cfg.AnchorTimeout(),
		})
		if err != nil {
			return err
		}
		anchorProvider = provider
	}
	anchorSvc, err := anchor.NewService(anchorProvider, receiptRepo, anchorEnabled)
	if err != nil {
		return err
	}

	s.ledger = &usecase.Ledger{
		Store:         ledgerStore,
		Crypto:        cryptoSvc,
		Anchor:        anchorSvc,
		AnchorTimeout: s.cfg.AnchorTimeout(),
		MaxAttempts:   s.cfg.LedgerAppendAttempts,
	}
	s.progress = &usecase.ProgressTracker{Progress: progStore}
	s.watchEvents = &usecase.WatchEvents{
		Modules:     moduleStore,
		Events:      eventStore,
		Crypto:      cryptoSvc,
		Progress:    s.progress,
		StaleWindow: s.cfg.StaleEventWindow(),
		MaxAttempts: s.cfg.LedgerAppendAttempts,
	}
	s.heatmap = &usecase.Heatmap{Events: eventStore}

	s.packager = hls.NewPackager(
		s.cfg.MediaRoot,
		s.cfg.KeyBaseURL,
		hls.NewFFmpegTranscoder(s.cfg.FFmpegPath),
		assetStore,
		s.logger,
	)
	s.workers = hls.NewWorkerPool(s.packager, s.cfg.PackagingWorkers, 16, s.logger)
	return nil
}

func (s *Server) initAuth() {
	var policy rbac.PolicyEvaluator
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath)
		if err != nil {
			s.authInitErr = err
			return
		}
		s.logger.Info("policy bundle loaded", "hash", engine.BundleHash())
		policy = engine
	}
	s.authorizer = rbac.NewAuthorizer(policy)

	switch s.cfg.AuthMode {
	case "none":
		// Development only: the subject comes from a plain header.
	case "jwt":
		authenticator, err := jwtauth.NewAuthenticator(s.cfg.JWTSecret)
		if err != nil {
			s.authInitErr = err
			return
		}
		s.authenticator = authenticator
	default:
		s.authInitErr = errUnknownAuthMode(s.cfg.AuthMode)
	}
}

func (s *Server) initRateLimit(limiter domain.RateLimiter) {
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	if s.rateLimitWindow <= 0 {
		s.rateLimitWindow = time.Minute
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed

	if limiter != nil {
		s.rateLimiter = limiter
		return
	}
	if s.rateLimitRequests <= 0 {
		return
	}
	if s.cfg.RedisAddr != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil)
		if err == nil {
			s.rateLimiter = redisLimiter
			return
		}
		s.logger.Warn("redis rate limiter unavailable, using in-memory limiter", "error", err)
	}
	s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: s.cfg.RateLimitMaxKeys})
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealthz)

	api := s.r.Group("/api")
	{
		api.POST("/watch-events", s.handleSubmitWatchEvent)
		api.GET("/modules/:module_id/stream-token", s.handleStreamToken)
		api.GET("/modules/:module_id/unlock", s.handleUnlock)
		api.GET("/modules/:module_id/heatmap", s.handleHeatmap)
		api.POST("/modules/:module_id/package", s.handlePackageModule)
		api.GET("/courses/:course_id/logs/export", s.handleExportLogs)
		api.GET("/ledger/verify", s.handleVerifyChain)
	}

	stream := s.r.Group("/stream")
	{
		stream.GET("/key/:module_id", s.handleStreamKey)
		stream.GET("/:module_id/:file", s.handleStreamFile)
		stream.GET("/:module_id/segments/:file", s.handleStreamSegment)
	}
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
