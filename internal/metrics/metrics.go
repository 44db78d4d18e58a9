// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 上流クライアント、発売データサービス、再検証ジョブから利用する。
type MetricsCollector interface {
	RecordUpstreamRequest(endpoint string, statusCode int)
	RecordUpstreamFailure(endpoint string, reason string)
	RecordUpstreamLatency(endpoint string, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordRenderPending()
	RecordRevalidation(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamFail     *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	cacheHit         prometheus.Counter
	cacheMiss        prometheus.Counter
	renderPending    prometheus.Counter
	revalidations    *prometheus.CounterVec
	lastRevalidated  prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasecal_upstream_requests_total",
			Help: "上流APIへのリクエスト数（エンドポイント・ステータス別）",
		}, []string{"endpoint", "status_code"}),
		upstreamFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasecal_upstream_fail_total",
			Help: "上流APIの呼び出し失敗数",
		}, []string{"endpoint", "reason"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "releasecal_upstream_latency_seconds",
			Help:    "上流APIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "releasecal_releases_cache_hit_total",
			Help: "発売データキャッシュのヒット数",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "releasecal_releases_cache_miss_total",
			Help: "発売データキャッシュのミス数",
		}),
		renderPending: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "releasecal_render_pending_total",
			Help: "描画予算内に上流APIが応答せずローディング表示になった回数",
		}),
		revalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasecal_revalidations_total",
			Help: "参照データ再検証の実行数（結果別）",
		}, []string{"result"}),
		lastRevalidated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "releasecal_last_revalidation_timestamp_seconds",
			Help: "最後に再検証が成功した時刻（UNIX秒）",
		}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamFail,
		c.upstreamLatency,
		c.cacheHit,
		c.cacheMiss,
		c.renderPending,
		c.revalidations,
		c.lastRevalidated,
	)

	return c
}

// RecordUpstreamRequest は上流APIのレスポンスステータスを記録する。
func (c *Collector) RecordUpstreamRequest(endpoint string, statusCode int) {
	c.upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamFailure は上流APIの呼び出し失敗を記録する。
func (c *Collector) RecordUpstreamFailure(endpoint string, reason string) {
	c.upstreamFail.WithLabelValues(endpoint, reason).Inc()
}

// RecordUpstreamLatency は上流APIのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(endpoint string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHit.Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMiss.Inc()
}

// RecordRenderPending はローディング状態での描画を記録する。
func (c *Collector) RecordRenderPending() {
	c.renderPending.Inc()
}

// RecordRevalidation は再検証の結果を記録する。
func (c *Collector) RecordRevalidation(success bool) {
	if success {
		c.revalidations.WithLabelValues("success").Inc()
		c.lastRevalidated.SetToCurrentTime()
		return
	}
	c.revalidations.WithLabelValues("failure").Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクス不要なコマンドやテストで使用する。
type Nop struct{}

func (Nop) RecordUpstreamRequest(string, int) {}
func (Nop) RecordUpstreamFailure(string, string) {}
func (Nop) RecordUpstreamLatency(string, time.Duration) {}
func (Nop) RecordCacheHit() {}
func (Nop) RecordCacheMiss() {}
func (Nop) RecordRenderPending() {}
func (Nop) RecordRevalidation(bool) {}
