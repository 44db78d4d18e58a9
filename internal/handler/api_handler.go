package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/middleware"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/revalidate"
	"github.com/hitoshi/releasecal/internal/upstream"
)

// releasesCacheControl は発売スケジュールAPIのキャッシュ指定。
// ブラウザでは毎回再検証し、共有キャッシュでは2時間保持する。
const releasesCacheControl = "public, max-age=0, s-maxage=7200, stale-while-revalidate=60"

// ReleaseLister は発売スケジュールの取得元。
type ReleaseLister interface {
	ListReleases(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error)
}

// SnapshotReader は再検証済みの参照データを読み取る。
type SnapshotReader interface {
	Get() (revalidate.Snapshot, bool)
}

// APIHandler は公開JSON APIのHTTPハンドラー。
type APIHandler struct {
	releases  ReleaseLister
	series    SeriesSource
	snapshots SnapshotReader
	clock     dateutil.Clock
	location  *time.Location
	logger    *slog.Logger
}

// NewAPIHandler はAPIHandlerを生成する。
func NewAPIHandler(releases ReleaseLister, seriesSource SeriesSource, snapshots SnapshotReader, clock dateutil.Clock, loc *time.Location, logger *slog.Logger) *APIHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &APIHandler{
		releases:  releases,
		series:    seriesSource,
		snapshots: snapshots,
		clock:     clock,
		location:  loc,
		logger:    logger,
	}
}

// ListReleases は発売スケジュールを上流APIから取得して返す。
// GET /api/releases?start=YYYY-MM-DD&end=YYYY-MM-DD&order=ascending|descending&publisher=...
//
// start/endの既定値は今月の初日と末日、orderの既定値はascending。
// 上流が空を返した場合は204、上流の失敗は502を返す。
func (h *APIHandler) ListReleases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		middleware.WriteAPIError(w, model.NewMethodNotAllowedError(r.Method))
		return
	}

	params, apiErr := h.parseReleaseParams(r)
	if apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	groups, err := h.releases.ListReleases(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to proxy releases",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("start", dateutil.ISODate(params.Start)),
			slog.String("end", dateutil.ISODate(params.End)),
			slog.String("error", err.Error()),
		)
		middleware.WriteAPIError(w, model.NewUpstreamFailedError())
		return
	}

	w.Header().Set("Cache-Control", releasesCacheControl)
	// 上流がデータなし（204/null）の場合のみ204。空配列はそのまま200で返す
	if groups == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// parseReleaseParams はクエリパラメータを検証して取得条件に変換する。
func (h *APIHandler) parseReleaseParams(r *http.Request) (upstream.ReleaseParams, *model.APIError) {
	q := r.URL.Query()
	start, end := dateutil.MonthRange(dateutil.PeriodOf(h.clock.Now().In(h.location)), h.location)

	if v := q.Get("start"); v != "" {
		t, err := dateutil.ParseISODate(v, h.location)
		if err != nil {
			return upstream.ReleaseParams{}, model.NewInvalidQueryError("start", v)
		}
		start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := dateutil.ParseISODate(v, h.location)
		if err != nil {
			return upstream.ReleaseParams{}, model.NewInvalidQueryError("end", v)
		}
		end = t
	}
	if end.Before(start) {
		return upstream.ReleaseParams{}, model.NewInvalidQueryError("end", q.Get("end"))
	}

	order := q.Get("order")
	switch order {
	case "":
		order = upstream.OrderAscending
	case upstream.OrderAscending, upstream.OrderDescending:
	default:
		return upstream.ReleaseParams{}, model.NewInvalidQueryError("order", order)
	}

	return upstream.ReleaseParams{
		Start:      start,
		End:        end,
		Order:      order,
		Publishers: q["publisher"],
	}, nil
}

// ListPublishers は再検証済みの出版社一覧を返す。
// GET /api/publishers
func (h *APIHandler) ListPublishers(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshots.Get()
	if !ok {
		middleware.WriteAPIError(w, model.NewSnapshotMissingError())
		return
	}
	publishers := snap.Publishers
	if publishers == nil {
		publishers = []model.Publisher{}
	}
	w.Header().Set("Cache-Control", releasesCacheControl)
	writeJSON(w, http.StatusOK, publishers)
}

// ListTypes は再検証済みの作品種別一覧を返す。
// GET /api/types
func (h *APIHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshots.Get()
	if !ok {
		middleware.WriteAPIError(w, model.NewSnapshotMissingError())
		return
	}
	types := snap.Types
	if types == nil {
		types = []model.SerieType{}
	}
	w.Header().Set("Cache-Control", releasesCacheControl)
	writeJSON(w, http.StatusOK, types)
}

// GetSerie は作品詳細を上流APIから取得して返す。
// GET /api/series/{id}
func (h *APIHandler) GetSerie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.series.GetSerie(r.Context(), id)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			middleware.WriteAPIError(w, model.NewSerieNotFoundError(id))
			return
		}
		h.logger.Error("failed to proxy serie",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("serie_id", id),
			slog.String("error", err.Error()),
		)
		middleware.WriteAPIError(w, model.NewUpstreamFailedError())
		return
	}

	w.Header().Set("Cache-Control", releasesCacheControl)
	writeJSON(w, http.StatusOK, detail)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
