package revalidate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/upstream"
)

// --- モック定義 ---

// mockSource はSourceのテスト用モック。
type mockSource struct {
	calls              atomic.Int32
	listPublishersFunc func(ctx context.Context) ([]model.Publisher, error)
	listTypesFunc      func(ctx context.Context) ([]model.SerieType, error)
	listReleasesFunc   func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error)
}

func (m *mockSource) ListPublishers(ctx context.Context) ([]model.Publisher, error) {
	m.calls.Add(1)
	if m.listPublishersFunc != nil {
		return m.listPublishersFunc(ctx)
	}
	return []model.Publisher{{ID: "kim", Name: "Kim Đồng"}, {ID: "tre", Name: "Trẻ"}}, nil
}

func (m *mockSource) ListTypes(ctx context.Context) ([]model.SerieType, error) {
	if m.listTypesFunc != nil {
		return m.listTypesFunc(ctx)
	}
	return []model.SerieType{{ID: "manga", Name: "Manga"}}, nil
}

func (m *mockSource) ListReleases(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
	if m.listReleasesFunc != nil {
		return m.listReleasesFunc(ctx, p)
	}
	return []model.PublicationByDate{{Date: "2024-02-12"}}, nil
}

// mockMetrics は再検証結果のみを記録するテスト用モック。
type mockMetrics struct {
	success atomic.Int32
	failure atomic.Int32
}

func (m *mockMetrics) RecordUpstreamRequest(string, int) {}
func (m *mockMetrics) RecordUpstreamFailure(string, string) {}
func (m *mockMetrics) RecordUpstreamLatency(string, time.Duration) {}
func (m *mockMetrics) RecordCacheHit() {}
func (m *mockMetrics) RecordCacheMiss() {}
func (m *mockMetrics) RecordRenderPending() {}
func (m *mockMetrics) RecordRevalidation(success bool) {
	if success {
		m.success.Add(1)
		return
	}
	m.failure.Add(1)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

var testNow = time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC)

func TestRunOnce_StoresSnapshot(t *testing.T) {
	var buf bytes.Buffer
	var gotParams upstream.ReleaseParams
	src := &mockSource{
		listReleasesFunc: func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
			gotParams = p
			return []model.PublicationByDate{{Date: "2024-02-12"}}, nil
		},
	}
	m := &mockMetrics{}
	store := NewStore()
	r := NewRevalidator(src, store, newTestLogger(&buf), m, Options{Clock: dateutil.FixedClock{T: testNow}})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	snap, ok := store.Get()
	if !ok {
		t.Fatal("snapshot must be stored")
	}
	if diff := cmp.Diff([]string{"kim", "tre"}, snap.PublisherIDs()); diff != "" {
		t.Errorf("publisher ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"manga"}, snap.TypeIDs()); diff != "" {
		t.Errorf("type ids mismatch (-want +got):\n%s", diff)
	}
	if !snap.FetchedAt.Equal(testNow) {
		t.Errorf("FetchedAt = %v, want %v", snap.FetchedAt, testNow)
	}

	// 直近の発売予定は今日から14日後まで
	if got := dateutil.ISODate(gotParams.Start); got != "2024-02-10" {
		t.Errorf("start = %s, want 2024-02-10", got)
	}
	if got := dateutil.ISODate(gotParams.End); got != "2024-02-24" {
		t.Errorf("end = %s, want 2024-02-24", got)
	}
	if len(gotParams.Publishers) != 0 {
		t.Errorf("upcoming releases must not be filtered: %v", gotParams.Publishers)
	}

	if m.success.Load() != 1 || m.failure.Load() != 0 {
		t.Errorf("metrics success=%d failure=%d, want 1/0", m.success.Load(), m.failure.Load())
	}
	if !strings.Contains(buf.String(), "revalidation completed") {
		t.Error("completion must be logged")
	}
}

// TestRunOnce_FailureKeepsPreviousSnapshot は取得失敗時に直前のスナップショットを保持することを検証する。
func TestRunOnce_FailureKeepsPreviousSnapshot(t *testing.T) {
	var buf bytes.Buffer
	src := &mockSource{}
	m := &mockMetrics{}
	store := NewStore()
	r := NewRevalidator(src, store, newTestLogger(&buf), m, Options{Clock: dateutil.FixedClock{T: testNow}})

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}

	src.listTypesFunc = func(ctx context.Context) ([]model.SerieType, error) {
		return nil, errors.New("upstream down")
	}
	err := r.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed to list types") {
		t.Errorf("error = %v", err)
	}

	snap, ok := store.Get()
	if !ok || len(snap.Types) != 1 {
		t.Errorf("previous snapshot must be kept, got %+v", snap)
	}
	if m.failure.Load() != 1 {
		t.Errorf("failure = %d, want 1", m.failure.Load())
	}
}

func TestStore_EmptyUntilSet(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get(); ok {
		t.Error("new store must be empty")
	}
	s.Set(Snapshot{Publishers: []model.Publisher{{ID: "kim"}}})
	if snap, ok := s.Get(); !ok || len(snap.Publishers) != 1 {
		t.Errorf("Get() = %+v, %v", snap, ok)
	}
}

func TestNewRevalidator_Defaults(t *testing.T) {
	var buf bytes.Buffer
	r := NewRevalidator(&mockSource{}, NewStore(), newTestLogger(&buf), nil, Options{})

	if r.upcomingDays != DefaultUpcomingDays {
		t.Errorf("upcomingDays = %d, want %d", r.upcomingDays, DefaultUpcomingDays)
	}
	if r.metrics == nil || r.clock == nil {
		t.Error("metrics and clock must have defaults")
	}
}

// TestStart_RunsImmediatelyAndStops は起動直後に1回実行し、キャンセルでgoroutineが終了することを検証する。
func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf bytes.Buffer
	src := &mockSource{}
	store := NewStore()
	r := NewRevalidator(src, store, newTestLogger(&buf), nil, Options{Clock: dateutil.FixedClock{T: testNow}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Start(ctx, time.Hour)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := store.Get(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial revalidation did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if src.calls.Load() != 1 {
		t.Errorf("ListPublishers calls = %d, want 1", src.calls.Load())
	}
}
