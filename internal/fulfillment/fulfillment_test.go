package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/event"
	"storefront/internal/infra/memstore"
	"storefront/internal/metrics"
	"storefront/internal/notify"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu   sync.Mutex
	msgs []event.Message
	err  error
}

func (p *capturePublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, event.Message{Topic: topic, Key: key})
	return nil
}

// 最初のn回だけFindByIDを失敗させる
type flakyOrders struct {
	repo.OrderRepository
	failures int
}

func (f *flakyOrders) FindByID(ctx context.Context, id string) (model.Order, error) {
	if f.failures > 0 {
		f.failures--
		return model.Order{}, repo.ErrUnavailable
	}
	return f.OrderRepository.FindByID(ctx, id)
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestRunner(maxAttempts int) *Runner {
	r := NewRunner(RetryPolicy{MaxAttempts: maxAttempts, InitialBackoff: time.Millisecond}, metrics.Nop{})
	r.sleep = noSleep
	return r
}

func newTestPipeline(orders repo.OrderRepository, products repo.ProductRepository, pub event.Publisher, maxAttempts int) *Pipeline {
	p := NewPipeline(orders, products, pub, newTestRunner(maxAttempts), time.Second)
	p.sleep = noSleep
	return p
}

func seedOrder(t *testing.T, store *memstore.Store, status model.OrderStatus) model.Order {
	t.Helper()
	ctx := context.Background()
	prod, err := store.Products().Create(ctx, model.Product{ID: "p1", Name: "Mouse", Price: 30, OfferPrice: 25, Stock: 10, Category: model.CategoryAccessories, IsActive: true})
	require.NoError(t, err)

	o := model.Order{
		ID:     "o1",
		UserID: "u1",
		Items:  []model.OrderItem{{ProductID: prod.ID, Name: prod.Name, Quantity: 2, Price: 25}},
		Status: status,
	}
	require.NoError(t, store.Orders().Create(ctx, o))
	return o
}

func orderCreated(t *testing.T, o model.Order) event.Message {
	t.Helper()
	data, err := json.Marshal(event.OrderPayload{Order: o})
	require.NoError(t, err)
	return event.Message{Topic: event.TopicOrderCreated, Key: o.ID, Payload: data}
}

func TestPipeline_PendingToShipped(t *testing.T) {
	store := memstore.New()
	o := seedOrder(t, store, model.OrderStatusPending)
	pub := &capturePublisher{}

	p := newTestPipeline(store.Orders(), store.Products(), pub, 3)
	require.NoError(t, p.HandleOrderCreated(context.Background(), orderCreated(t, o)))

	got, err := store.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, got.Status)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, event.TopicOrderConfirmation, pub.msgs[0].Topic)
	assert.Equal(t, o.ID, pub.msgs[0].Key)
}

func TestPipeline_RedeliveryDoesNotRegress(t *testing.T) {
	store := memstore.New()
	o := seedOrder(t, store, model.OrderStatusPending)
	pub := &capturePublisher{}
	p := newTestPipeline(store.Orders(), store.Products(), pub, 3)
	msg := orderCreated(t, o)

	require.NoError(t, p.HandleOrderCreated(context.Background(), msg))
	// 管理者が配達済みにした後に再配送されても戻らない
	require.NoError(t, store.Orders().UpdateStatus(context.Background(), o.ID, model.OrderStatusShipped, model.OrderStatusDelivered))
	require.NoError(t, p.HandleOrderCreated(context.Background(), msg))

	got, err := store.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, got.Status)
}

func TestPipeline_CancelledStops(t *testing.T) {
	store := memstore.New()
	o := seedOrder(t, store, model.OrderStatusCancelled)
	pub := &capturePublisher{}

	p := newTestPipeline(store.Orders(), store.Products(), pub, 3)
	require.NoError(t, p.HandleOrderCreated(context.Background(), orderCreated(t, o)))

	got, err := store.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
	assert.Empty(t, pub.msgs)
}

func TestPipeline_RetriesTransientFailure(t *testing.T) {
	store := memstore.New()
	o := seedOrder(t, store, model.OrderStatusPending)
	orders := &flakyOrders{OrderRepository: store.Orders(), failures: 2}
	pub := &capturePublisher{}

	p := newTestPipeline(orders, store.Products(), pub, 3)
	require.NoError(t, p.HandleOrderCreated(context.Background(), orderCreated(t, o)))

	got, err := store.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, got.Status)
}

func TestPipeline_ExhaustionLeavesLastStatus(t *testing.T) {
	store := memstore.New()
	o := seedOrder(t, store, model.OrderStatusPending)
	pub := &capturePublisher{err: errors.New("broker down")}

	p := newTestPipeline(store.Orders(), store.Products(), pub, 2)
	err := p.HandleOrderCreated(context.Background(), orderCreated(t, o))
	require.Error(t, err)
	assert.Contains(t, err.Error(), StepEmitConfirmation)

	got, gerr := store.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, gerr)
	assert.Equal(t, model.OrderStatusShipped, got.Status)
}

func TestPipeline_UnknownOrderIsPermanent(t *testing.T) {
	store := memstore.New()
	p := newTestPipeline(store.Orders(), store.Products(), &capturePublisher{}, 5)

	err := p.HandleOrderCreated(context.Background(), orderCreated(t, model.Order{ID: "missing"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRunner_BackoffAndAttempts(t *testing.T) {
	r := NewRunner(RetryPolicy{MaxAttempts: 4, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 30 * time.Millisecond}, nil)
	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	calls := 0
	err := r.Step(context.Background(), "x", func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, waits)
}

func TestRunner_PermanentStopsImmediately(t *testing.T) {
	r := newTestRunner(5)
	calls := 0
	err := r.Step(context.Background(), "x", func(ctx context.Context) error {
		calls++
		return Permanent(errors.New("bad payload"))
	})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

type recordingNotifier struct {
	kinds []string
}

func (n *recordingNotifier) Notify(ctx context.Context, kind string, payload any) {
	n.kinds = append(n.kinds, kind)
}

func TestConfirmer_NotifiesOnce(t *testing.T) {
	n := &recordingNotifier{}
	c := NewConfirmer(n, newTestRunner(3))

	msg := orderCreated(t, model.Order{ID: "o1"})
	msg.Topic = event.TopicOrderConfirmation
	require.NoError(t, c.HandleOrderConfirmation(context.Background(), msg))
	assert.Equal(t, []string{notify.KindOrderConfirmed}, n.kinds)
}

func TestPipeline_RedeliveryDoesNotResendConfirmation(t *testing.T) {
	store := memstore.New()
	o := seedOrder(t, store, model.OrderStatusPending)
	pub := &capturePublisher{}
	p := newTestPipeline(store.Orders(), store.Products(), pub, 3)
	msg := orderCreated(t, o)

	require.NoError(t, p.HandleOrderCreated(context.Background(), msg))
	require.NoError(t, p.HandleOrderCreated(context.Background(), msg))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, event.TopicOrderConfirmation, pub.msgs[0].Topic)
}

type chanNotifier chan string

func (n chanNotifier) Notify(ctx context.Context, kind string, payload any) {
	if o, ok := payload.(model.Order); ok {
		n <- o.ID
	}
}

// バスの容量が小さくても、ハンドラ内からの発行で配送が止まらない
func TestPipeline_OnMemoryBusWithSmallCapacity(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	_, err := store.Products().Create(ctx, model.Product{ID: "p1", Name: "Mouse", Price: 30, OfferPrice: 25, Stock: 10, Category: model.CategoryAccessories, IsActive: true})
	require.NoError(t, err)

	bus := event.NewMemoryBus(1)
	p := newTestPipeline(store.Orders(), store.Products(), bus, 3)
	p.Register(bus)
	confirmed := make(chanNotifier, 8)
	NewConfirmer(confirmed, newTestRunner(3)).Register(bus)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go bus.Run(runCtx)

	ids := []string{"o1", "o2", "o3"}
	for _, id := range ids {
		o := model.Order{ID: id, UserID: "u1", Items: []model.OrderItem{{ProductID: "p1", Name: "Mouse", Quantity: 1, Price: 25}}, Status: model.OrderStatusPending}
		require.NoError(t, store.Orders().Create(ctx, o))

		pubCtx, pubCancel := context.WithTimeout(ctx, time.Second)
		require.NoError(t, bus.Publish(pubCtx, event.TopicOrderCreated, id, event.OrderPayload{Order: o}))
		pubCancel()
	}

	got := map[string]bool{}
	for range ids {
		select {
		case id := <-confirmed:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("confirmations received: %v", got)
		}
	}
	for _, id := range ids {
		assert.True(t, got[id], id)
		o, err := store.Orders().FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusShipped, o.Status)
	}
}
