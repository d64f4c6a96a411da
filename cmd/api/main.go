package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pos/internal/auth"
	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/dashboard"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/health"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/order"
	"github.com/noah-isme/backend-pos/internal/profile"
	"github.com/noah-isme/backend-pos/internal/ratelimit"
	"github.com/noah-isme/backend-pos/internal/repo"
	"github.com/noah-isme/backend-pos/internal/security"
	"github.com/noah-isme/backend-pos/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	shutdownTracer, err := obs.InitTracer(context.Background(), "pos-api", envOrDefault("OBS_OTLP_ENDPOINT", ""))
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := obs.NewHTTPMetrics(registry, obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", "")))
	domainMetrics := obs.NewDomainMetrics(registry)

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Username: redisOpts.Username, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	usersRepo := repo.UsersRepo{DB: pool}
	sessionsRepo := repo.SessionsRepo{DB: pool}
	productsRepo := repo.ProductsRepo{DB: pool}
	ordersRepo := repo.OrdersRepo{Pool: pool}
	profilesRepo := repo.ProfilesRepo{DB: pool}

	validate := validator.New()
	secret := []byte(cfg.JWTSecret)

	authSvc := auth.Service{
		Users:      usersRepo,
		Sessions:   sessionsRepo,
		Secret:     secret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}
	authHandlers := auth.Handlers{
		Svc:      authSvc,
		Validate: validate,
		Cookie: auth.CookieConfig{
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
		},
		Logger: logger,
	}
	authMW := auth.Middleware{Secret: secret}

	catalogSvc := catalog.Service{
		Q:      productsRepo,
		Cache:  cache.Cache{R: redisClient, TTL: cfg.CatalogCacheTTL},
		Logger: logger,
	}
	catalogHandlers := catalog.Handlers{Svc: catalogSvc, Validate: validate, Logger: logger}

	cartSvc := cart.Service{R: redisClient, Products: productsRepo, TTL: cfg.CartTTL}
	cartHandlers := cart.Handlers{Svc: cartSvc, Logger: logger}

	dashSvc := dashboard.Service{
		Orders:         ordersRepo,
		Products:       productsRepo,
		Cache:          cache.Cache{R: redisClient, TTL: cfg.DashboardCacheTTL},
		MarginFallback: cfg.ProfitMarginFallback,
		Logger:         logger,
	}
	dashHandlers := dashboard.Handlers{Svc: dashSvc, Logger: logger}

	bus := &events.Bus{Notifiers: []events.Notifier{
		events.LogNotifier{Logger: logger},
		dashboard.InvalidateNotifier{Svc: dashSvc},
	}}

	checkoutSvc := checkout.Service{
		Orders:  ordersRepo,
		Carts:   cartSvc,
		Locker:  lock.Locker{R: redisClient},
		LockTTL: cfg.CheckoutLockTTL,
		Bus:     bus,
		Tasks:   taskClient,
		Metrics: domainMetrics,
		Logger:  logger,
	}
	checkoutHandlers := checkout.Handlers{Svc: checkoutSvc, Validate: validate, Logger: logger}

	orderHandlers := order.Handlers{Q: ordersRepo, Logger: logger}

	profileSvc := profile.Service{
		Q:             profilesRepo,
		UploadDir:     cfg.UploadDir,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	profileHandlers := profile.Handlers{Svc: profileSvc, Validate: validate, Logger: logger}

	loginLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:login:"},
		Config: ratelimit.Config{
			Key:    ratelimit.IPKey(""),
			Window: cfg.LoginRateWindow,
			Max:    cfg.LoginRateMax,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("login rate limit") },
	}

	apiLimiterMW, err := newAPILimiter(redisClient, cfg.APIRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise api rate limiter")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{HSTSMaxAge: 365 * 24 * time.Hour}.Middleware)
	r.Use(security.MaxBody(1 << 20))
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.TracingMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(apiLimiterMW.Handler)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{Checker: health.Probes{Pool: pool, Redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	r.Route("/auth", func(a chi.Router) {
		if envBool("SECURE_CSRF_ENABLED", false) {
			a.Use(security.CSRF{}.Middleware)
		}
		a.Post("/register", authHandlers.Register)
		a.With(loginLimiter.Middleware).Post("/login", authHandlers.Login)
		a.Post("/refresh", authHandlers.Refresh)
		a.Post("/logout", authHandlers.Logout)
		a.With(authMW.RequireAuth).Get("/me", authHandlers.Me)
	})

	r.Group(func(protected chi.Router) {
		protected.Use(authMW.RequireAuth)

		protected.Route("/products", func(p chi.Router) {
			p.Get("/", catalogHandlers.List)
			p.Get("/low-stock", catalogHandlers.LowStock)
			p.Post("/", catalogHandlers.Create)
			p.Route("/{id}", func(child chi.Router) {
				child.Get("/", catalogHandlers.Get)
				child.Put("/", catalogHandlers.Update)
				child.Delete("/", catalogHandlers.Delete)
			})
		})

		protected.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandlers.Create)
			c.Route("/{cartID}", func(child chi.Router) {
				child.Get("/", cartHandlers.Get)
				child.Delete("/", cartHandlers.Clear)
				child.Post("/items", cartHandlers.AddItem)
				child.Patch("/items/{productID}", cartHandlers.SetQuantity)
				child.Delete("/items/{productID}", cartHandlers.RemoveItem)
				child.Put("/customer", cartHandlers.SetCustomer)
				child.Post("/checkout", checkoutHandlers.Checkout)
			})
		})

		protected.Get("/orders", orderHandlers.List)
		protected.Get("/orders/{id}", orderHandlers.Get)

		protected.Get("/dashboard/stats", dashHandlers.Stats)

		protected.Route("/profile", func(p chi.Router) {
			p.Get("/", profileHandlers.Get)
			p.Put("/", profileHandlers.Upsert)
			p.Post("/logo", profileHandlers.UploadLogo)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           otelhttp.NewHandler(r, "pos-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	health.SetReady(true)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
	logger.Info().Msg("server shutdown complete")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newAPILimiter(redisClient *redis.Client, formatted string) (*limiterstdlib.Middleware, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	store, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "ratelimit:api"})
	if err != nil {
		return nil, err
	}
	return limiterstdlib.NewMiddleware(limiter.New(store, rate)), nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
