// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はユースケースやワーカーから使うメトリクス記録のインターフェース。
type Recorder interface {
	RecordHTTPRequest(method, route string, status int)
	RecordOrderCreated(provider string)
	RecordFulfillmentStep(step, outcome string)
	RecordNotificationFailed(sink string)
	RecordCheckoutRejected(reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests        *prometheus.CounterVec
	ordersCreated       *prometheus.CounterVec
	fulfillmentSteps    *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	checkoutRejected    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリに登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "作成された注文数",
		}, []string{"provider"}),
		fulfillmentSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_fulfillment_steps_total",
			Help: "フルフィルメントのステップ実行結果",
		}, []string{"step", "outcome"}),
		notificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_notifications_failed_total",
			Help: "通知の配信失敗数",
		}, []string{"sink"}),
		checkoutRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_rejected_total",
			Help: "チェックアウトで拒否された明細の数",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.ordersCreated,
		c.fulfillmentSteps,
		c.notificationsFailed,
		c.checkoutRejected,
	)

	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (c *Collector) RecordOrderCreated(provider string) {
	c.ordersCreated.WithLabelValues(provider).Inc()
}

// outcomeは ok / skipped / retry / failed
func (c *Collector) RecordFulfillmentStep(step, outcome string) {
	c.fulfillmentSteps.WithLabelValues(step, outcome).Inc()
}

func (c *Collector) RecordNotificationFailed(sink string) {
	c.notificationsFailed.WithLabelValues(sink).Inc()
}

func (c *Collector) RecordCheckoutRejected(reason string) {
	c.checkoutRejected.WithLabelValues(reason).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しない。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int) {}
func (Nop) RecordOrderCreated(string)             {}
func (Nop) RecordFulfillmentStep(string, string)  {}
func (Nop) RecordNotificationFailed(string)       {}
func (Nop) RecordCheckoutRejected(string)         {}
