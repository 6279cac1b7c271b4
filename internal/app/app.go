// Package app はコマンドの解析と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dsfg/calendar/internal/cache"
	"github.com/dsfg/calendar/internal/calendar"
	"github.com/dsfg/calendar/internal/clock"
	"github.com/dsfg/calendar/internal/config"
	"github.com/dsfg/calendar/internal/database"
	"github.com/dsfg/calendar/internal/extract"
	"github.com/dsfg/calendar/internal/handler"
	"github.com/dsfg/calendar/internal/logger"
	"github.com/dsfg/calendar/internal/metrics"
	"github.com/dsfg/calendar/internal/middleware"
	"github.com/dsfg/calendar/internal/repository"
	"github.com/dsfg/calendar/internal/security"
	fetchpkg "github.com/dsfg/calendar/internal/worker/fetch"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。ログはwに、calendarコマンドの表示は標準出力に書き出す。
func Run(w io.Writer, args []string) error {
	return run(w, os.Stdout, args)
}

func run(w, out io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("cache_backend", cfg.CacheBackend),
		slog.Int("source_count", len(cfg.FeedSources)),
		slog.String("timezone", cfg.TimezoneName),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCalendar:
		return runCalendar(cfg, out, args[1:])
	default:
		return runServe(cfg)
	}
}

// runtime はコマンド間で共有する依存関係をまとめた構造体。
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	db       *sql.DB
	service  *calendar.Service
}

// newRuntime は設定に従って依存関係を組み立てる。
// CACHE_BACKEND=postgresの場合はDBに接続し、キャッシュの保存先として使用する。
func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	// 1. メトリクス
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.metrics = metrics.NewCollector(rt.registry)

	// 2. キャッシュの保存先
	var store cache.Store
	switch cfg.CacheBackend {
	case config.CacheBackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("database connection established")

		rt.db = db
		store = repository.NewPostgresEventCacheRepo(db)
	default:
		store = cache.NewMemoryStore()
	}

	sysClock := clock.System{}
	eventCache := cache.NewCache(store, sysClock, cfg.CacheTTL, rt.metrics)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	// 4. 取得・抽出・組み立て
	fetcher := fetchpkg.NewFetcher(
		cfg.FeedSources, ssrfGuard, cfg.ProxyURL, rt.metrics,
		logger, cfg.FetchTimeout, cfg.FetchMaxSize, cfg.FetchMaxConcurrent,
	)
	extractor := extract.NewExtractor(sanitizer, cfg.Location, logger)

	rt.service = calendar.NewService(
		fetcher, extractor, eventCache, sysClock,
		cfg.Location, cfg.CacheKey, rt.metrics, logger,
	)

	return rt, nil
}

// Close はDB接続などのリソースを解放する。
func (rt *runtime) Close() error {
	if rt.db != nil {
		return rt.db.Close()
	}
	return nil
}

// router はAPIサーバーのハンドラーを組み立てる。
func (rt *runtime) router(rl *middleware.RateLimiter) http.Handler {
	deps := &handler.RouterDeps{
		Logger:            rt.logger,
		CORSAllowedOrigin: rt.cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		TrustProxyHeaders: rt.cfg.TrustProxyHeaders,
		CalendarService:   rt.service,
		Clock:             clock.System{},
		MetricsHandler:    metrics.Handler(rt.registry),
	}
	// nilの*sql.DBをインターフェースに入れないようにする
	if rt.db != nil {
		deps.HealthChecker = rt.db
	}
	return handler.NewRouter(deps)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	rt, err := newRuntime(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer rt.Close()

	rl := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitRefresh),
		slog.Default(),
	)
	defer rl.Stop()

	server := newHTTPServer(cfg, rt.router(rl))

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newHTTPServer はHTTPサーバーを生成する。
// 書き込みタイムアウトは直接取得と中継プロキシ経由の取得が両方行われる場合を考慮する。
func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2*cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// runWorker はキャッシュ更新ワーカーモードで起動する。
// 保存先が共有されている必要があるため、CACHE_BACKEND=postgresでのみ起動できる。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.CacheBackend != config.CacheBackendPostgres {
		return fmt.Errorf("worker requires CACHE_BACKEND=%s (got %q)", config.CacheBackendPostgres, cfg.CacheBackend)
	}

	rt, err := newRuntime(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer rt.Close()

	scheduler := fetchpkg.NewScheduler(rt.service, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("refresh_interval", cfg.RefreshInterval),
		slog.Duration("cache_ttl", cfg.CacheTTL),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.RefreshInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runCalendar はカレンダーを1回組み立てて端末向けに表示する。
func runCalendar(cfg *config.Config, out io.Writer, args []string) error {
	opts, err := parseCalendarFlags(args, out)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer rt.Close()

	view, err := calendar.ParseView(opts.View, opts.Month, rt.service.Today())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cal, _, err := rt.service.Calendar(ctx, view, opts.Refresh)
	if err != nil {
		return fmt.Errorf("failed to load calendar: %w", err)
	}

	return calendar.RenderText(out, cal)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
