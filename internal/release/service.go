package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/releasecal/internal/metrics"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/upstream"
)

// ErrPending は呼び出し元の待機期限までに結果が得られなかったことを示す。
// 取得処理はバックグラウンドで継続し、成功すればキャッシュに格納される。
var ErrPending = errors.New("release: result pending")

// Fetcher は上流APIから発売スケジュールを取得するインターフェース。
type Fetcher interface {
	ListReleases(ctx context.Context, p upstream.ReleaseParams) ([]model.PublicationByDate, error)
}

// Options はServiceの動作設定。
type Options struct {
	Location *time.Location
	// CacheTTL は成功結果を保持する期間。0の場合はキャッシュしない。
	CacheTTL time.Duration
	// FetchTimeout は上流APIの呼び出し1回あたりの上限時間。
	FetchTimeout time.Duration
}

type cacheEntry struct {
	groups    []model.PublicationByDate
	expiresAt time.Time
}

// Service は発売スケジュールの取得サービス。
// 同一キーの同時取得を1回にまとめ、成功結果を短時間キャッシュする。
// リトライと並べ替えは行わない。
type Service struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	opts    Options
	now     func() time.Time

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(fetcher Fetcher, logger *slog.Logger, m metrics.MetricsCollector, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		fetcher: fetcher,
		logger:  logger,
		metrics: m,
		opts:    opts,
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
}

// Fetch はクエリに対応する発売スケジュールを返す。
// ctxが先に終了した場合はErrPendingを返し、上流APIの呼び出しは切り離して継続する。
func (s *Service) Fetch(ctx context.Context, q Query) ([]model.PublicationByDate, error) {
	key := q.Key()
	if groups, ok := s.cached(key); ok {
		s.metrics.RecordCacheHit()
		return groups, nil
	}
	s.metrics.RecordCacheMiss()

	// 呼び出し元のキャンセルを引き継がないコンテキストで取得する
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(detached, s.opts.FetchTimeout)
		defer cancel()

		groups, err := s.fetcher.ListReleases(fctx, q.Params(s.opts.Location))
		if err != nil {
			s.logger.Warn("failed to fetch releases",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("failed to fetch releases: %w", err)
		}
		s.store(key, groups)
		return groups, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.PublicationByDate), nil
	case <-ctx.Done():
		s.metrics.RecordRenderPending()
		return nil, ErrPending
	}
}

// Invalidate はキーのキャッシュを破棄する。
func (s *Service) Invalidate(q Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, q.Key())
}

func (s *Service) cached(key string) ([]model.PublicationByDate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.cache, key)
		return nil, false
	}
	return entry.groups, true
}

func (s *Service) store(key string, groups []model.PublicationByDate) {
	if s.opts.CacheTTL <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// 期限切れのエントリを掃除する
	for k, e := range s.cache {
		if !now.Before(e.expiresAt) {
			delete(s.cache, k)
		}
	}
	s.cache[key] = cacheEntry{groups: groups, expiresAt: now.Add(s.opts.CacheTTL)}
}
