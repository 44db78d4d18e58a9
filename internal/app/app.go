package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/releasecal/internal/config"
	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/handler"
	"github.com/hitoshi/releasecal/internal/logger"
	"github.com/hitoshi/releasecal/internal/metrics"
	"github.com/hitoshi/releasecal/internal/middleware"
	"github.com/hitoshi/releasecal/internal/release"
	"github.com/hitoshi/releasecal/internal/revalidate"
	"github.com/hitoshi/releasecal/internal/security"
	"github.com/hitoshi/releasecal/internal/site"
	"github.com/hitoshi/releasecal/internal/upstream"
	"github.com/hitoshi/releasecal/internal/view"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	switch cmd {
	case CommandRevalidate:
		return runRevalidate(cfg)
	default:
		return runServe(cfg)
	}
}

// components は設定から組み立てた依存関係一式。
type components struct {
	location    *time.Location
	registry    *prometheus.Registry
	store       *revalidate.Store
	revalidator *revalidate.Revalidator
	rateLimiter *middleware.RateLimiter
	router      http.Handler
}

// newComponents は全依存関係をワイヤリングする。
// バックグラウンド処理（再検証ループ）はここでは開始しない。
func newComponents(cfg *config.Config, log *slog.Logger) (*components, error) {
	// 1. タイムゾーン
	loc, err := dateutil.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	clock := dateutil.SystemClock{Location: loc}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg)

	// 3. 上流APIクライアント（SSRF対策済みHTTPクライアント）
	guard := security.NewSSRFGuard(cfg.AllowPrivateUpstream)
	httpClient, err := guard.NewSafeClient(cfg.APIBaseURL, cfg.UpstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream client: %w", err)
	}
	client := upstream.NewClient(httpClient, log, m, cfg.APIBaseURL, cfg.UpstreamMaxSize)

	// 4. ドメインサービス
	releases := release.NewService(client, log, m, release.Options{
		Location:     loc,
		CacheTTL:     cfg.ReleasesCacheTTL,
		FetchTimeout: cfg.UpstreamTimeout,
	})
	store := revalidate.NewStore()
	revalidator := revalidate.NewRevalidator(client, store, log, m, revalidate.Options{
		Clock:        clock,
		UpcomingDays: cfg.UpcomingDays,
	})

	// 5. 表示
	content, err := site.Load(cfg.SiteConfigPath)
	if err != nil {
		return nil, err
	}
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	builder := view.NewBuilder(
		view.NewImageBuilder(cfg.ImageEndpoint, cfg.ImageQuality),
		security.NewTextSanitizer(),
		content,
		loc,
	)

	// 6. ハンドラーとルーター
	api := handler.NewAPIHandler(client, client, store, clock, loc, log)
	pages := handler.NewPageHandler(releases, client, store, builder, renderer, clock, loc, log, handler.PageConfig{
		RenderBudget: cfg.RenderBudget,
		SecureCookie: cfg.SecureCookie(),
	})
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitAPI), log)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		API:               api,
		Pages:             pages,
		Metrics:           metrics.Handler(reg),
		Snapshots:         store,
	})

	return &components{
		location:    loc,
		registry:    reg,
		store:       store,
		revalidator: revalidator,
		rateLimiter: rateLimiter,
		router:      router,
	}, nil
}

// runServe はHTTPサーバーモードで起動する。
// 参照データの再検証ループをバックグラウンドで開始し、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	c, err := newComponents(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer c.rateLimiter.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 参照データの再検証（起動直後に1回実行し、以降は定期実行）
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.revalidator.Start(ctx, cfg.RevalidateInterval)
	}()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           c.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RenderBudget + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", server.Addr),
			slog.String("timezone", c.location.String()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		cancel()
		<-done
		return fmt.Errorf("server listen failed: %w", err)
	}
	slog.Info("shutting down HTTP server...")

	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runRevalidate は参照データを1回だけ取得し、件数をログに出力する。
// 上流APIの疎通確認に使用する。
func runRevalidate(cfg *config.Config) error {
	c, err := newComponents(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer c.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout*3)
	defer cancel()

	if err := c.revalidator.RunOnce(ctx); err != nil {
		return fmt.Errorf("revalidation failed: %w", err)
	}

	snap, _ := c.store.Get()
	slog.Info("reference data fetched",
		slog.Int("publishers", len(snap.Publishers)),
		slog.Int("types", len(snap.Types)),
		slog.Int("upcoming_days", len(snap.Upcoming)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(url string) error {
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
