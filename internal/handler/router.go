package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/releasecal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ハンドラー
	API   *APIHandler
	Pages *PageHandler

	// Metrics はPrometheusスクレイプ用ハンドラー。nilの場合は/metricsを公開しない。
	Metrics http.Handler
	// Snapshots はヘルスチェックで参照データの取得状況を返すために使用する。
	Snapshots SnapshotReader
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Logging → Recovery → SecurityHeaders → Compress
//
// /api/* には CORS → RateLimit を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(chimw.Compress(5, "text/html", "application/json"))

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.Snapshots))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// --- 公開API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(deps.RateLimiter.Middleware())

		// メソッド判定はハンドラー側で行い、405に統一エラー形式を返す
		r.HandleFunc("/releases", deps.API.ListReleases)
		r.Get("/publishers", deps.API.ListPublishers)
		r.Get("/types", deps.API.ListTypes)
		r.Get("/series/{id}", deps.API.GetSerie)
	})

	// --- ページ ---
	r.Get("/", deps.Pages.Calendar)
	r.Get("/series", deps.Pages.Series)
	r.Get("/series/{id}", deps.Pages.Serie)
	r.NotFound(deps.Pages.NotFound)

	return r
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status        string     `json:"status"`
	Snapshot      bool       `json:"snapshot"`
	RevalidatedAt *time.Time `json:"revalidated_at,omitempty"`
}

// healthHandler はプロセスの稼働状況を返す。参照データが未取得でも200を返す。
func healthHandler(snapshots SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if snapshots != nil {
			if snap, ok := snapshots.Get(); ok {
				resp.Snapshot = true
				fetchedAt := snap.FetchedAt
				resp.RevalidatedAt = &fetchedAt
			}
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, resp)
	}
}
