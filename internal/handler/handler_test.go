package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/release"
	"github.com/hitoshi/releasecal/internal/revalidate"
	"github.com/hitoshi/releasecal/internal/security"
	"github.com/hitoshi/releasecal/internal/site"
	"github.com/hitoshi/releasecal/internal/upstream"
	"github.com/hitoshi/releasecal/internal/view"
)

// --- モック定義 ---

// mockReleaseLister はReleaseListerのモック実装。
type mockReleaseLister struct {
	listReleasesFn func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error)
}

func (m *mockReleaseLister) ListReleases(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
	if m.listReleasesFn != nil {
		return m.listReleasesFn(ctx, p)
	}
	return nil, nil
}

// mockSnapshots はSnapshotReaderのモック実装。
type mockSnapshots struct {
	snap revalidate.Snapshot
	ok   bool
}

func (m *mockSnapshots) Get() (revalidate.Snapshot, bool) {
	return m.snap, m.ok
}

// mockReleaseSource はReleaseSourceのモック実装。
type mockReleaseSource struct {
	fetchFn      func(ctx context.Context, q release.Query) ([]model.PublicationByDate, error)
	invalidateFn func(q release.Query)
}

func (m *mockReleaseSource) Fetch(ctx context.Context, q release.Query) ([]model.PublicationByDate, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, q)
	}
	return nil, nil
}

func (m *mockReleaseSource) Invalidate(q release.Query) {
	if m.invalidateFn != nil {
		m.invalidateFn(q)
	}
}

// mockSeriesSource はSeriesSourceのモック実装。
type mockSeriesSource struct {
	listSeriesFn func(ctx context.Context, p upstream.SeriesParams) ([]model.Serie, error)
	getSerieFn   func(ctx context.Context, id string) (*model.SerieDetail, error)
}

func (m *mockSeriesSource) ListSeries(ctx context.Context, p upstream.SeriesParams) ([]model.Serie, error) {
	if m.listSeriesFn != nil {
		return m.listSeriesFn(ctx, p)
	}
	return nil, nil
}

func (m *mockSeriesSource) GetSerie(ctx context.Context, id string) (*model.SerieDetail, error) {
	if m.getSerieFn != nil {
		return m.getSerieFn(ctx, id)
	}
	return nil, upstream.ErrNotFound
}

// --- テストヘルパー ---

var testNow = time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func testSnapshot() *mockSnapshots {
	return &mockSnapshots{
		ok: true,
		snap: revalidate.Snapshot{
			Publishers: []model.Publisher{
				{ID: "kim", Name: "Kim Đồng", Color: "#e30613"},
				{ID: "tre", Name: "Trẻ", Color: "#0066b3"},
			},
			Types:     []model.SerieType{{ID: "manga", Name: "Manga"}},
			FetchedAt: testNow,
		},
	}
}

func newTestAPIHandler(lister ReleaseLister, snaps SnapshotReader) *APIHandler {
	return newTestAPIHandlerWithSeries(lister, &mockSeriesSource{}, snaps)
}

func newTestAPIHandlerWithSeries(lister ReleaseLister, seriesSrc SeriesSource, snaps SnapshotReader) *APIHandler {
	var buf bytes.Buffer
	return NewAPIHandler(lister, seriesSrc, snaps, dateutil.FixedClock{T: testNow}, time.UTC, newTestLogger(&buf))
}

func newTestPageHandler(t *testing.T, src ReleaseSource, seriesSrc SeriesSource, snaps SnapshotReader, budget time.Duration) *PageHandler {
	t.Helper()
	content, err := site.Default()
	if err != nil {
		t.Fatalf("site.Default: %v", err)
	}
	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	builder := view.NewBuilder(view.NewImageBuilder("", 90), security.NewTextSanitizer(), content, time.UTC)
	var buf bytes.Buffer
	return NewPageHandler(src, seriesSrc, snaps, builder, renderer,
		dateutil.FixedClock{T: testNow}, time.UTC, newTestLogger(&buf),
		PageConfig{RenderBudget: budget})
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func testGroups() []model.PublicationByDate {
	return []model.PublicationByDate{
		{Date: "2024-02-05", Entries: []model.Publication{{ID: model.NewNumericEntryID(1), Name: "Conan", Date: "2024-02-05", Price: 25000}}},
		{Date: "2024-02-12", Entries: []model.Publication{{ID: model.NewNumericEntryID(2), Name: "Frieren", Date: "2024-02-12", Price: 40000}}},
	}
}
