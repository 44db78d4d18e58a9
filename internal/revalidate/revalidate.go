// Package revalidate は参照データ（出版社・種別・直近の発売予定）を定期的に再取得する。
// 取得に失敗した場合は直前に成功したスナップショットを保持し続ける。
package revalidate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/metrics"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/upstream"
)

const (
	// DefaultUpcomingDays は直近の発売予定として取得する日数の既定値。
	DefaultUpcomingDays = 14
	// DefaultInterval は再検証間隔の既定値。
	DefaultInterval = 10 * time.Minute
)

// Snapshot はある時点で取得した参照データ。
type Snapshot struct {
	Publishers []model.Publisher
	Types      []model.SerieType
	Upcoming   []model.PublicationByDate
	FetchedAt  time.Time
}

// PublisherIDs は出版社IDを取得順で返す。
func (s Snapshot) PublisherIDs() []string {
	ids := make([]string, 0, len(s.Publishers))
	for _, p := range s.Publishers {
		ids = append(ids, p.ID)
	}
	return ids
}

// TypeIDs は種別IDを取得順で返す。
func (s Snapshot) TypeIDs() []string {
	ids := make([]string, 0, len(s.Types))
	for _, t := range s.Types {
		ids = append(ids, t.ID)
	}
	return ids
}

// Store は最後に成功したスナップショットを保持する。
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Get はスナップショットを返す。まだ一度も成功していない場合はfalse。
func (s *Store) Get() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Snapshot{}, false
	}
	return *s.snap, true
}

// Set はスナップショットを置き換える。
func (s *Store) Set(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
}

// Source は参照データの取得元。
type Source interface {
	ListPublishers(ctx context.Context) ([]model.Publisher, error)
	ListTypes(ctx context.Context) ([]model.SerieType, error)
	ListReleases(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error)
}

// Options は再検証の設定。
type Options struct {
	Clock        dateutil.Clock
	UpcomingDays int
}

// Revalidator は参照データを取得してStoreを更新する。
type Revalidator struct {
	source       Source
	store        *Store
	logger       *slog.Logger
	metrics      metrics.MetricsCollector
	clock        dateutil.Clock
	upcomingDays int
}

// NewRevalidator はRevalidatorの新しいインスタンスを生成する。
// UpcomingDaysが0以下の場合はDefaultUpcomingDaysを使用する。
func NewRevalidator(source Source, store *Store, logger *slog.Logger, m metrics.MetricsCollector, opts Options) *Revalidator {
	if m == nil {
		m = metrics.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = dateutil.SystemClock{}
	}
	if opts.UpcomingDays <= 0 {
		opts.UpcomingDays = DefaultUpcomingDays
	}
	return &Revalidator{
		source:       source,
		store:        store,
		logger:       logger,
		metrics:      m,
		clock:        opts.Clock,
		upcomingDays: opts.UpcomingDays,
	}
}

// Start は起動直後に1回、その後interval間隔で再検証を実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (r *Revalidator) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("revalidator started", slog.Duration("interval", interval))

	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("revalidation failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("revalidator stopped")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("revalidation failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce は参照データを並列に取得し、全て成功した場合のみStoreを更新する。
func (r *Revalidator) RunOnce(ctx context.Context) error {
	start := time.Now()
	now := r.clock.Now()
	today := dateutil.StartOfDay(now)

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		publishers, err := r.source.ListPublishers(gctx)
		if err != nil {
			return fmt.Errorf("failed to list publishers: %w", err)
		}
		snap.Publishers = publishers
		return nil
	})
	g.Go(func() error {
		types, err := r.source.ListTypes(gctx)
		if err != nil {
			return fmt.Errorf("failed to list types: %w", err)
		}
		snap.Types = types
		return nil
	})
	g.Go(func() error {
		upcoming, err := r.source.ListReleases(gctx, upstream.ReleaseParams{
			Start: today,
			End:   today.AddDate(0, 0, r.upcomingDays),
			Order: upstream.OrderAscending,
		})
		if err != nil {
			return fmt.Errorf("failed to list upcoming releases: %w", err)
		}
		snap.Upcoming = upcoming
		return nil
	})

	if err := g.Wait(); err != nil {
		r.metrics.RecordRevalidation(false)
		return err
	}

	snap.FetchedAt = now
	r.store.Set(snap)
	r.metrics.RecordRevalidation(true)

	r.logger.Info("revalidation completed",
		slog.Int("publisher_count", len(snap.Publishers)),
		slog.Int("type_count", len(snap.Types)),
		slog.Int("upcoming_group_count", len(snap.Upcoming)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
