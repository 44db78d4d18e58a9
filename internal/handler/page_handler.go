package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/releasecal/internal/calendar"
	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/middleware"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/release"
	"github.com/hitoshi/releasecal/internal/series"
	"github.com/hitoshi/releasecal/internal/upstream"
	"github.com/hitoshi/releasecal/internal/view"
)

// loadingRefreshSeconds は読み込み中ページの再読み込み間隔。
const loadingRefreshSeconds = 2

// ReleaseSource は発売スケジュールの取得元。再読み込み時はキャッシュを破棄してから取得する。
type ReleaseSource interface {
	release.Source
	Invalidate(q release.Query)
}

// SeriesSource はライセンス作品の取得元。
type SeriesSource interface {
	ListSeries(ctx context.Context, p upstream.SeriesParams) ([]model.Serie, error)
	GetSerie(ctx context.Context, id string) (*model.SerieDetail, error)
}

// PageConfig はページハンドラーの設定。
type PageConfig struct {
	// RenderBudget は発売スケジュールの取得を待つ最大時間。超えた場合は読み込み中として描画する。
	RenderBudget time.Duration
	// SecureCookie はビュー設定のCookieにSecure属性を付けるか。
	SecureCookie bool
}

// PageHandler はHTMLページのHTTPハンドラー。
type PageHandler struct {
	releases  ReleaseSource
	series    SeriesSource
	snapshots SnapshotReader
	builder   *view.Builder
	renderer  *view.Renderer
	clock     dateutil.Clock
	location  *time.Location
	logger    *slog.Logger
	config    PageConfig
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(
	releases ReleaseSource,
	seriesSource SeriesSource,
	snapshots SnapshotReader,
	builder *view.Builder,
	renderer *view.Renderer,
	clock dateutil.Clock,
	loc *time.Location,
	logger *slog.Logger,
	config PageConfig,
) *PageHandler {
	if loc == nil {
		loc = time.UTC
	}
	if config.RenderBudget <= 0 {
		config.RenderBudget = 3 * time.Second
	}
	return &PageHandler{
		releases:  releases,
		series:    seriesSource,
		snapshots: snapshots,
		builder:   builder,
		renderer:  renderer,
		clock:     clock,
		location:  loc,
		logger:    logger,
		config:    config,
	}
}

// Calendar は発売カレンダーページを描画する。
// GET /
//
// 表示状態はすべてURLのクエリで表す。ビューがURLで指定された場合はCookieに保存し、
// 指定がない場合はCookieの値を使う。
func (h *PageHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	today := h.clock.Now().In(h.location)
	snap, _ := h.snapshots.Get()

	state := calendar.FromRequest(r.URL.Path, r.URL.Query(), calendar.Defaults{
		Today:      today,
		Publishers: snap.PublisherIDs(),
		Grid:       calendar.ReadViewPreference(r, true),
	})
	if state.ViewExplicit {
		calendar.WriteViewPreference(w, state.Grid, h.config.SecureCookie)
	}

	// 1. 描画予算内で発売スケジュールを取得
	ctx, cancel := context.WithTimeout(r.Context(), h.config.RenderBudget)
	defer cancel()
	loader := release.NewLoader(h.releases)
	var loaded release.State
	if state.Reload {
		q := state.Query()
		h.releases.Invalidate(q)
		loader.Begin(q)
		loaded = loader.Revalidate(ctx)
	} else {
		loaded = loader.Load(ctx, state.Query())
	}

	if loaded.Status == release.StatusError {
		h.logger.Warn("rendering calendar error state",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("key", loaded.Key),
			slog.String("error", loaded.Err.Error()),
		)
	}

	// 2. 最も近い発売日
	var tracker release.NearestTracker
	if loaded.Status == release.StatusReady {
		tracker.Observe(loaded.Groups, today)
	}

	// 3. 描画
	page := h.builder.CalendarPage(view.CalendarInput{
		State:          state,
		Today:          today,
		Load:           loaded,
		Nearest:        tracker.Value(),
		Publishers:     snap.Publishers,
		Upcoming:       snap.Upcoming,
		RefreshSeconds: loadingRefreshSeconds,
	})

	if state.Reload || page.Status == view.PageLoading || page.Status == view.PageError {
		w.Header().Set("Cache-Control", "no-store")
	}
	h.render(w, r, http.StatusOK, view.PageCalendar, page)
}

// Series はライセンス作品一覧ページを描画する。
// GET /series
func (h *PageHandler) Series(w http.ResponseWriter, r *http.Request) {
	snap, _ := h.snapshots.Get()
	f := series.FromRequest(r.URL.Path, r.URL.Query(), snap.PublisherIDs(), snap.TypeIDs())

	list, err := h.series.ListSeries(r.Context(), f.Params())
	if err != nil {
		h.logger.Error("failed to list series",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}

	page := h.builder.SeriesPage(view.SeriesInput{
		Filter:     f,
		Publishers: snap.Publishers,
		Types:      snap.Types,
		Series:     list,
		Err:        err,
	})
	h.render(w, r, http.StatusOK, view.PageSeries, page)
}

// Serie は作品詳細ページを描画する。
// GET /series/{id}
func (h *PageHandler) Serie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.series.GetSerie(r.Context(), id)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			h.renderMessage(w, r, http.StatusNotFound, "Không tìm thấy!", "Bộ truyện này không tồn tại.")
			return
		}
		h.logger.Error("failed to get serie",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("serie_id", id),
			slog.String("error", err.Error()),
		)
		h.renderMessage(w, r, http.StatusBadGateway, "Nani?", "Đã có lỗi khi tải dữ liệu. Hãy tải lại trang sau ít phút.")
		return
	}

	page := h.builder.SeriePage(detail, h.clock.Now().In(h.location))
	h.render(w, r, http.StatusOK, view.PageSerie, page)
}

// NotFound は存在しないパスに対するページを描画する。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderMessage(w, r, http.StatusNotFound, "Không tìm thấy!", "")
}

func (h *PageHandler) renderMessage(w http.ResponseWriter, r *http.Request, statusCode int, heading, message string) {
	site := h.builder.Site()
	h.render(w, r, statusCode, view.PageMessage, view.MessagePage{
		Title:   site.PageTitle(heading),
		Heading: heading,
		Message: message,
		BackURL: "/",
		Site:    site,
	})
}

// render はページを描画する。描画に失敗した場合は500を返す。
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, statusCode int, name string, data any) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, name, data); err != nil {
		h.logger.Error("failed to render page",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}
