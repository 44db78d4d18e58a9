// Package upstream は発売スケジュールと参照データを提供する外部APIのクライアントを提供する。
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/metrics"
	"github.com/hitoshi/releasecal/internal/model"
)

const (
	// defaultMaxSize はレスポンスボディの既定の上限（5MB）。
	defaultMaxSize = 5 * 1024 * 1024
	userAgent      = "Releasecal/1.0"
)

// メトリクスのendpointラベル。
const (
	endpointReleases   = "releases"
	endpointPublishers = "publishers"
	endpointTypes      = "types"
	endpointSeries     = "series"
	endpointSerie      = "serie"
)

// 並び順の値。
const (
	OrderAscending  = "ascending"
	OrderDescending = "descending"
)

var (
	// ErrNotFound は上流APIが404を返したことを示す。
	ErrNotFound = errors.New("upstream: not found")
	// ErrTooLarge はレスポンスボディが上限を超えたことを示す。
	ErrTooLarge = errors.New("upstream: response body too large")
)

// StatusError は上流APIが想定外のHTTPステータスを返したことを示す。
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Endpoint, e.StatusCode)
}

// ReleaseParams は発売スケジュール取得の条件。
// Publishersは空でもそのまま渡す（publisherパラメータなし）。
type ReleaseParams struct {
	Start      time.Time
	End        time.Time
	Order      string
	Publishers []string
}

// Values はクエリパラメータを組み立てる。publisherは指定順に繰り返す。
func (p ReleaseParams) Values() url.Values {
	q := url.Values{}
	q.Set("start", dateutil.ISODate(p.Start))
	q.Set("end", dateutil.ISODate(p.End))
	order := p.Order
	if order == "" {
		order = OrderAscending
	}
	q.Set("order", order)
	for _, id := range p.Publishers {
		q.Add("publisher", id)
	}
	return q
}

// SeriesParams はライセンス作品一覧の取得条件。
type SeriesParams struct {
	Publishers []string
	Types      []string
	Status     []model.Status
}

// Values はクエリパラメータを組み立てる。
func (p SeriesParams) Values() url.Values {
	q := url.Values{}
	for _, id := range p.Publishers {
		q.Add("publisher", id)
	}
	for _, id := range p.Types {
		q.Add("type", id)
	}
	for _, s := range p.Status {
		q.Add("status", string(s))
	}
	return q
}

// Client は外部APIのクライアント。
// 失敗時のリトライは行わず、呼び出し元にエラーを返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
	maxSize    int64
}

// NewClient はClientの新しいインスタンスを生成する。
// maxSizeが0以下の場合は既定値を使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, m metrics.MetricsCollector, baseURL string, maxSize int64) *Client {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxSize:    maxSize,
	}
}

// ListReleases は期間内の発売スケジュールを日付グループ単位で取得する。
// 204・空ボディ・JSONのnullはデータなしとしてnilを返し、エラーにしない。
// JSONの空配列は空スライス（非nil）として返す。
// グループとエントリの順序は上流APIの返却順のまま返す。
func (c *Client) ListReleases(ctx context.Context, p ReleaseParams) ([]model.PublicationByDate, error) {
	var groups []model.PublicationByDate
	if err := c.getJSON(ctx, endpointReleases, "/api/releases", p.Values(), &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListPublishers は出版社の一覧を取得する。
func (c *Client) ListPublishers(ctx context.Context) ([]model.Publisher, error) {
	var publishers []model.Publisher
	if err := c.getJSON(ctx, endpointPublishers, "/api/publishers", nil, &publishers); err != nil {
		return nil, err
	}
	if publishers == nil {
		publishers = []model.Publisher{}
	}
	return publishers, nil
}

// ListTypes は作品種別の一覧を取得する。
func (c *Client) ListTypes(ctx context.Context) ([]model.SerieType, error) {
	var types []model.SerieType
	if err := c.getJSON(ctx, endpointTypes, "/api/types", nil, &types); err != nil {
		return nil, err
	}
	if types == nil {
		types = []model.SerieType{}
	}
	return types, nil
}

// ListSeries は条件に一致するライセンス作品の一覧を取得する。
func (c *Client) ListSeries(ctx context.Context, p SeriesParams) ([]model.Serie, error) {
	var series []model.Serie
	if err := c.getJSON(ctx, endpointSeries, "/api/series", p.Values(), &series); err != nil {
		return nil, err
	}
	if series == nil {
		series = []model.Serie{}
	}
	return series, nil
}

// GetSerie は作品の詳細を取得する。存在しない場合はErrNotFoundを返す。
func (c *Client) GetSerie(ctx context.Context, id string) (*model.SerieDetail, error) {
	var detail *model.SerieDetail
	path := "/api/series/" + url.PathEscape(id)
	if err := c.getJSON(ctx, endpointSerie, path, nil, &detail); err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, ErrNotFound
	}
	return detail, nil
}

// getJSON はGETリクエストを送信し、レスポンスをoutへデコードする。
// 204の場合はoutを変更せずnilを返す。
func (c *Client) getJSON(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse upstream URL: %w", err)
	}
	if len(q) > 0 {
		reqURL.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordUpstreamLatency(endpoint, time.Since(start))
	if err != nil {
		reason := "network"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			reason = "timeout"
		}
		c.metrics.RecordUpstreamFailure(endpoint, reason)
		c.logger.Error("upstream request failed",
			slog.String("endpoint", endpoint),
			slog.String("url", reqURL.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("upstream %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstreamRequest(endpoint, resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		c.metrics.RecordUpstreamFailure(endpoint, "status")
		c.logger.Error("upstream returned error status",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		c.metrics.RecordUpstreamFailure(endpoint, "read")
		return fmt.Errorf("failed to read upstream %s response: %w", endpoint, err)
	}
	if int64(len(body)) > c.maxSize {
		c.metrics.RecordUpstreamFailure(endpoint, "too_large")
		return fmt.Errorf("upstream %s: %w", endpoint, ErrTooLarge)
	}

	// 空ボディは204と同様にデータなしとして扱う
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.RecordUpstreamFailure(endpoint, "parse")
		c.logger.Error("failed to parse upstream response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to parse upstream %s response: %w", endpoint, err)
	}
	return nil
}
