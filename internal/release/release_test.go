package release

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/upstream"
)

// --- テスト用モック ---

type mockFetcher struct {
	calls          atomic.Int32
	listReleasesFn func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error)
}

func (m *mockFetcher) ListReleases(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
	m.calls.Add(1)
	return m.listReleasesFn(ctx, p)
}

type mockSource struct {
	fetchFn func(ctx context.Context, q Query) ([]model.PublicationByDate, error)
}

func (m *mockSource) Fetch(ctx context.Context, q Query) ([]model.PublicationByDate, error) {
	return m.fetchFn(ctx, q)
}

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil))
}

func group(date string, ids ...string) model.PublicationByDate {
	g := model.PublicationByDate{Date: date}
	for _, id := range ids {
		g.Entries = append(g.Entries, model.Publication{ID: model.NewEntryID(id), Date: date})
	}
	return g
}

var feb2024 = Query{Period: model.Period{Year: 2024, Month: 2}, Ascending: true, Publishers: []string{"kim", "tre"}}

// --- Query ---

// TestQuery_Params は2024年2月が閏日までの範囲で要求されることを検証する。
func TestQuery_Params(t *testing.T) {
	p := feb2024.Params(time.UTC)

	if got := p.Start.Format("2006-01-02"); got != "2024-02-01" {
		t.Errorf("Start = %s, want 2024-02-01", got)
	}
	if got := p.End.Format("2006-01-02"); got != "2024-02-29" {
		t.Errorf("End = %s, want 2024-02-29", got)
	}
	if p.Order != "ascending" {
		t.Errorf("Order = %s, want ascending", p.Order)
	}
	if diff := cmp.Diff([]string{"kim", "tre"}, p.Publishers); diff != "" {
		t.Errorf("Publishers mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_Key(t *testing.T) {
	desc := feb2024
	desc.Ascending = false
	reordered := feb2024
	reordered.Publishers = []string{"tre", "kim"}
	empty := feb2024
	empty.Publishers = nil

	keys := map[string]string{
		"base":      feb2024.Key(),
		"desc":      desc.Key(),
		"reordered": reordered.Key(),
		"empty":     empty.Key(),
	}
	seen := map[string]string{}
	for name, k := range keys {
		if other, ok := seen[k]; ok {
			t.Errorf("%s and %s share key %q", name, other, k)
		}
		seen[k] = name
	}
	if desc.Order() != "descending" {
		t.Errorf("Order() = %s, want descending", desc.Order())
	}
}

// --- Service ---

func TestService_Fetch_ReturnsUpstreamOrder(t *testing.T) {
	want := []model.PublicationByDate{group("2024-02-20", "b", "a"), group("2024-02-03", "c")}
	fetcher := &mockFetcher{listReleasesFn: func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
		return want, nil
	}}
	svc := NewService(fetcher, newTestLogger(), nil, Options{})

	got, err := svc.Fetch(context.Background(), feb2024)
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(model.EntryID{})); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

// TestService_Fetch_NoRetry は失敗時にリトライしないことを検証する。
func TestService_Fetch_NoRetry(t *testing.T) {
	fetcher := &mockFetcher{listReleasesFn: func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
		return nil, errors.New("connection refused")
	}}
	svc := NewService(fetcher, newTestLogger(), nil, Options{CacheTTL: time.Minute})

	if _, err := svc.Fetch(context.Background(), feb2024); err == nil {
		t.Fatal("expected error")
	}
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	// エラーはキャッシュしない
	if _, err := svc.Fetch(context.Background(), feb2024); err == nil {
		t.Fatal("expected error")
	}
	if n := fetcher.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

// TestService_Fetch_DeduplicatesConcurrent は同一キーの同時取得が1回にまとめられることを検証する。
func TestService_Fetch_DeduplicatesConcurrent(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 10)
	fetcher := &mockFetcher{listReleasesFn: func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
		started <- struct{}{}
		<-release
		return []model.PublicationByDate{group("2024-02-10", "x")}, nil
	}}
	svc := NewService(fetcher, newTestLogger(), nil, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Fetch(context.Background(), feb2024)
			errs <- err
		}()
	}

	<-started
	// 後続の呼び出しが同じフライトに合流するまで待つ
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Fetch がエラーを返した: %v", err)
		}
	}
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestService_Fetch_CachesWithinTTL(t *testing.T) {
	fetcher := &mockFetcher{listReleasesFn: func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
		return []model.PublicationByDate{}, nil
	}}
	svc := NewService(fetcher, newTestLogger(), nil, Options{CacheTTL: time.Minute})
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.Fetch(context.Background(), feb2024)
	svc.Fetch(context.Background(), feb2024)
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("calls within TTL = %d, want 1", n)
	}

	now = now.Add(2 * time.Minute)
	svc.Fetch(context.Background(), feb2024)
	if n := fetcher.calls.Load(); n != 2 {
		t.Errorf("calls after TTL = %d, want 2", n)
	}

	svc.Invalidate(feb2024)
	svc.Fetch(context.Background(), feb2024)
	if n := fetcher.calls.Load(); n != 3 {
		t.Errorf("calls after Invalidate = %d, want 3", n)
	}
}

// TestService_Fetch_PendingContinuesDetached は待機期限切れ後も取得が継続しキャッシュされることを検証する。
func TestService_Fetch_PendingContinuesDetached(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockFetcher{listReleasesFn: func(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []model.PublicationByDate{group("2024-02-10", "x")}, nil
	}}
	svc := NewService(fetcher, newTestLogger(), nil, Options{CacheTTL: time.Minute, FetchTimeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := svc.Fetch(ctx, feb2024); !errors.Is(err, ErrPending) {
		t.Fatalf("error = %v, want ErrPending", err)
	}

	close(release)
	groups, err := svc.Fetch(context.Background(), feb2024)
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if len(groups) != 1 {
		t.Errorf("len(groups) = %d, want 1", len(groups))
	}
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

// --- Loader ---

// TestLoader_LastKeyWins は古いキーの結果が破棄されることを検証する。
func TestLoader_LastKeyWins(t *testing.T) {
	l := NewLoader(&mockSource{})
	march := Query{Period: model.Period{Year: 2024, Month: 3}, Ascending: true}

	t1 := l.Begin(feb2024)
	t2 := l.Begin(march)

	if l.Complete(t1, []model.PublicationByDate{group("2024-02-10", "old")}, nil) {
		t.Error("stale ticket must be rejected")
	}
	if st := l.State(); st.Status != StatusLoading || st.Key != march.Key() {
		t.Errorf("state = %v/%s, want loading for march", st.Status, st.Key)
	}

	if !l.Complete(t2, []model.PublicationByDate{group("2024-03-01", "new")}, nil) {
		t.Fatal("current ticket must be applied")
	}
	st := l.State()
	if st.Status != StatusReady || st.Groups[0].Date != "2024-03-01" {
		t.Errorf("state = %+v, want ready with march data", st)
	}
}

// TestLoader_EmptyIsReady は0件の結果がエラーではなくReadyになることを検証する。
func TestLoader_EmptyIsReady(t *testing.T) {
	l := NewLoader(&mockSource{fetchFn: func(ctx context.Context, q Query) ([]model.PublicationByDate, error) {
		return nil, nil
	}})

	st := l.Load(context.Background(), feb2024)
	if st.Status != StatusReady {
		t.Fatalf("Status = %v, want ready", st.Status)
	}
	if !st.Empty() || st.Err != nil {
		t.Errorf("state = %+v, want empty without error", st)
	}
}

// TestLoader_ErrorIsTerminalUntilRevalidate はエラー状態が同じキーで再取得されないことを検証する。
func TestLoader_ErrorIsTerminalUntilRevalidate(t *testing.T) {
	var calls int
	fail := true
	l := NewLoader(&mockSource{fetchFn: func(ctx context.Context, q Query) ([]model.PublicationByDate, error) {
		calls++
		if fail {
			return nil, errors.New("boom")
		}
		return []model.PublicationByDate{group("2024-02-10", "x")}, nil
	}})

	if st := l.Load(context.Background(), feb2024); st.Status != StatusError {
		t.Fatalf("Status = %v, want error", st.Status)
	}
	fail = false
	if st := l.Load(context.Background(), feb2024); st.Status != StatusError || calls != 1 {
		t.Errorf("same key reload: status %v, calls %d; want error, 1", st.Status, calls)
	}

	if st := l.Revalidate(context.Background()); st.Status != StatusReady || calls != 2 {
		t.Errorf("revalidate: status %v, calls %d; want ready, 2", st.Status, calls)
	}
}

func TestLoader_KeyChangeClearsError(t *testing.T) {
	l := NewLoader(&mockSource{fetchFn: func(ctx context.Context, q Query) ([]model.PublicationByDate, error) {
		if q.Period.Month == 2 {
			return nil, errors.New("boom")
		}
		return []model.PublicationByDate{}, nil
	}})

	l.Load(context.Background(), feb2024)
	march := Query{Period: model.Period{Year: 2024, Month: 3}, Ascending: true}
	if st := l.Load(context.Background(), march); st.Status != StatusReady {
		t.Errorf("Status = %v, want ready", st.Status)
	}
}

func TestLoader_PendingStaysLoading(t *testing.T) {
	l := NewLoader(&mockSource{fetchFn: func(ctx context.Context, q Query) ([]model.PublicationByDate, error) {
		return nil, ErrPending
	}})

	st := l.Load(context.Background(), feb2024)
	if !st.Loading() {
		t.Errorf("Status = %v, want loading", st.Status)
	}
}

func TestLoader_RevalidateIdleIsNoop(t *testing.T) {
	l := NewLoader(&mockSource{fetchFn: func(ctx context.Context, q Query) ([]model.PublicationByDate, error) {
		t.Error("idle revalidate must not fetch")
		return nil, nil
	}})
	if st := l.Revalidate(context.Background()); st.Status != StatusIdle {
		t.Errorf("Status = %v, want idle", st.Status)
	}
}

// --- Nearest ---

func TestNearest(t *testing.T) {
	today := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		groups []model.PublicationByDate
		want   string
		wantOK bool
	}{
		{
			name:   "今日・2日後・昨日なら今日",
			groups: []model.PublicationByDate{group("2024-02-10"), group("2024-02-12"), group("2024-02-09")},
			want:   "2024-02-10", wantOK: true,
		},
		{
			name:   "降順でも最小差を選ぶ",
			groups: []model.PublicationByDate{group("2024-02-28"), group("2024-02-15"), group("2024-02-01")},
			want:   "2024-02-15", wantOK: true,
		},
		{
			name:   "過去のみなら該当なし",
			groups: []model.PublicationByDate{group("2024-02-01"), group("2024-02-09")},
			wantOK: false,
		},
		{
			name:   "別の月は対象外",
			groups: []model.PublicationByDate{group("2024-03-01"), group("2025-02-11")},
			wantOK: false,
		},
		{
			name:   "空",
			groups: nil,
			wantOK: false,
		},
		{
			name:   "RFC3339の日付はISO日付で返す",
			groups: []model.PublicationByDate{group("2024-02-09T00:00:00Z"), group("2024-02-12T00:00:00Z")},
			want:   "2024-02-12", wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Nearest(tt.groups, today)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Nearest() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// TestNearestTracker_Sticky は該当なしの結果で前回値が維持されることを検証する。
func TestNearestTracker_Sticky(t *testing.T) {
	today := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	var tr NearestTracker

	if !tr.Observe([]model.PublicationByDate{group("2024-02-12")}, today) {
		t.Fatal("expected update")
	}
	if tr.Observe([]model.PublicationByDate{group("2024-02-01")}, today) {
		t.Error("expected no update for past-only groups")
	}
	if got := tr.Value(); got != "2024-02-12" {
		t.Errorf("Value() = %q, want 2024-02-12", got)
	}
}
