package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 決められた順に結果を返すReader。使い切ったらctxをキャンセルする
type scriptedReader struct {
	results   []error
	cancel    context.CancelFunc
	committed int
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.results) == 0 {
		r.cancel()
		return kafka.Message{}, context.Canceled
	}
	err := r.results[0]
	r.results = r.results[1:]
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte("o1"), Value: []byte(`{}`)}, nil
}

func (r *scriptedReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.committed += len(msgs)
	return nil
}

func TestFetchBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, fetchBackoff(1))
	assert.Equal(t, time.Second, fetchBackoff(2))
	assert.Equal(t, 2*time.Second, fetchBackoff(3))
	assert.Equal(t, 30*time.Second, fetchBackoff(20))
}

func TestKafkaConsumer_BacksOffOnFetchErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	down := errors.New("broker unreachable")
	reader := &scriptedReader{results: []error{down, down, nil, down}, cancel: cancel}

	c := NewKafkaConsumer(nil, "test")
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	handled := 0
	hs := []Handler{func(ctx context.Context, msg Message) error {
		handled++
		return nil
	}}

	c.consume(ctx, reader, TopicOrderCreated, hs)

	require.Equal(t, 1, handled)
	assert.Equal(t, 1, reader.committed)
	// 成功すると待ち時間は最初に戻る
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 500 * time.Millisecond}, waits)
}

func TestKafkaConsumer_StopsWhenSleepIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &scriptedReader{results: []error{errors.New("down"), errors.New("down")}, cancel: cancel}
	c := NewKafkaConsumer(nil, "test")
	sleeps := 0
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return context.Canceled
	}

	c.consume(ctx, reader, TopicOrderCreated, nil)
	assert.Equal(t, 1, sleeps)
}
