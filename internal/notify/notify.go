// Package notify は副作用的な通知を各シンクへ非同期に配る。
// 通知の失敗は呼び出し元に返さない。
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/metrics"
)

const (
	KindProductCreated = "product/created"
	KindOrderConfirmed = "order/confirmed"
)

type Notification struct {
	Kind    string    `json:"kind"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Sink は通知の配送先。扱わない種類はnilを返して無視する
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

type Notifier struct {
	sinks   []Sink
	timeout time.Duration
	metrics metrics.Recorder

	wg sync.WaitGroup
}

func New(timeout time.Duration, rec metrics.Recorder, sinks ...Sink) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Notifier{sinks: sinks, timeout: timeout, metrics: rec}
}

// Notify はシンクごとにgoroutineを起こしてすぐ戻る
func (n *Notifier) Notify(ctx context.Context, kind string, payload any) {
	msg := Notification{Kind: kind, Payload: payload, At: time.Now()}
	// リクエストが終わっても配送は続ける
	base := context.WithoutCancel(ctx)

	for _, s := range n.sinks {
		n.wg.Add(1)
		go n.deliver(base, s, msg)
	}
}

func (n *Notifier) deliver(ctx context.Context, s Sink, msg Notification) {
	defer n.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			n.fail(s, msg, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := s.Deliver(ctx, msg); err != nil {
		n.fail(s, msg, err)
	}
}

func (n *Notifier) fail(s Sink, msg Notification, err error) {
	n.metrics.RecordNotificationFailed(s.Name())
	slog.Warn("notification failed",
		slog.String("sink", s.Name()),
		slog.String("kind", msg.Kind),
		slog.String("error", err.Error()),
	)
}

// Wait は配送中の通知が終わるまで待つ
func (n *Notifier) Wait() {
	n.wg.Wait()
}
