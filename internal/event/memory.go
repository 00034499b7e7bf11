package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrBusClosed = errors.New("event bus closed")

// MemoryBus はプロセス内のバス。配送は1つのgoroutineで順番に行う。
// キューに上限はなく、ハンドラの中からPublishしても詰まらない。
type MemoryBus struct {
	mu      sync.Mutex
	pending []Message
	closed  bool
	wake    chan struct{}

	hmu      sync.RWMutex
	handlers map[string][]Handler
}

// capacityはキューの初期容量
func NewMemoryBus(capacity int) *MemoryBus {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryBus{
		pending:  make([]Message, 0, capacity),
		wake:     make(chan struct{}, 1),
		handlers: map[string][]Handler{},
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.pending = append(b.pending, Message{Topic: topic, Key: key, Payload: data})
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.hmu.Lock()
	defer b.hmu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Run はctxが終わるまで配送する。終了時に残っているメッセージは捨てる
func (b *MemoryBus) Run(ctx context.Context) error {
	defer func() {
		b.mu.Lock()
		b.closed = true
		if n := len(b.pending); n > 0 {
			slog.Warn("event bus stopped with undelivered messages", slog.Int("count", n))
		}
		b.pending = nil
		b.mu.Unlock()
	}()

	for {
		msg, ok := b.next()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-b.wake:
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		b.dispatch(ctx, msg)
	}
}

func (b *MemoryBus) next() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return Message{}, false
	}
	msg := b.pending[0]
	b.pending[0] = Message{}
	b.pending = b.pending[1:]
	return msg, true
}

func (b *MemoryBus) dispatch(ctx context.Context, msg Message) {
	b.hmu.RLock()
	hs := b.handlers[msg.Topic]
	b.hmu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, msg); err != nil {
			slog.Error("event handler failed",
				slog.String("topic", msg.Topic),
				slog.String("key", msg.Key),
				slog.String("error", err.Error()),
			)
		}
	}
}
