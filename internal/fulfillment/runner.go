package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"storefront/internal/metrics"
)

// ErrSkip はステップがすでに完了済みのときに返す
var ErrSkip = errors.New("step already done")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent はリトライしても直らないエラーを包む
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Backoff は n 回目の失敗後の待ち時間（初回は InitialBackoff、以降倍々で MaxBackoff まで）
func (p RetryPolicy) Backoff(failures int) time.Duration {
	delay := p.InitialBackoff
	for i := 1; i < failures; i++ {
		delay *= 2
		if p.MaxBackoff > 0 && delay > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return delay
}

// Runner はステップを指数バックオフでリトライしながら実行する
type Runner struct {
	policy  RetryPolicy
	metrics metrics.Recorder
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRunner(policy RetryPolicy, rec metrics.Recorder) *Runner {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.MaxBackoff == 0 {
		policy.MaxBackoff = time.Minute
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Runner{policy: policy, metrics: rec, sleep: sleepCtx}
}

// Step はfnを最大MaxAttempts回まで実行する。
// ErrSkipはスキップ扱いで成功、Permanentは即座に打ち切り。
func (r *Runner) Step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		err = fn(ctx)
		switch {
		case err == nil:
			r.metrics.RecordFulfillmentStep(name, "ok")
			return nil
		case errors.Is(err, ErrSkip):
			r.metrics.RecordFulfillmentStep(name, "skipped")
			return nil
		case IsPermanent(err):
			r.metrics.RecordFulfillmentStep(name, "failed")
			return err
		}

		if attempt == r.policy.MaxAttempts {
			break
		}
		r.metrics.RecordFulfillmentStep(name, "retry")
		delay := r.policy.Backoff(attempt)
		slog.Warn("fulfillment step failed, retrying",
			slog.String("step", name),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)
		if serr := r.sleep(ctx, delay); serr != nil {
			return serr
		}
	}

	r.metrics.RecordFulfillmentStep(name, "failed")
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
