package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher は1つのWriterでメッセージごとにトピックを指定して送る
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	// 同じキーは同じパーティションへ
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: KafkaTopic(topic),
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("write %s to kafka: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

const (
	fetchBackoffInitial = 500 * time.Millisecond
	fetchBackoffMax     = 30 * time.Second
)

// fetchBackoff は連続n回目の取得失敗後の待ち時間
func fetchBackoff(failures int) time.Duration {
	d := fetchBackoffInitial
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= fetchBackoffMax {
			return fetchBackoffMax
		}
	}
	return d
}

// *kafka.Reader のうち consume が使う部分
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaConsumer はトピックごとにReaderとgoroutineを持つ
type KafkaConsumer struct {
	brokers []string
	groupID string

	handlers map[string][]Handler
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewKafkaConsumer(brokers []string, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		brokers:  brokers,
		groupID:  groupID,
		handlers: map[string][]Handler{},
		sleep:    sleepCtx,
	}
}

// Runより前に呼ぶ
func (c *KafkaConsumer) Subscribe(topic string, h Handler) {
	c.handlers[topic] = append(c.handlers[topic], h)
}

func (c *KafkaConsumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for topic, hs := range c.handlers {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: c.brokers,
			Topic:   KafkaTopic(topic),
			GroupID: c.groupID,
		})
		wg.Add(1)
		go func(topic string, hs []Handler) {
			defer wg.Done()
			defer reader.Close()
			c.consume(ctx, reader, topic, hs)
		}(topic, hs)
	}
	wg.Wait()
	return nil
}

// ハンドラが終わってからコミットする（少なくとも1回配送）
func (c *KafkaConsumer) consume(ctx context.Context, reader messageReader, topic string, hs []Handler) {
	slog.Info("kafka consumer started", slog.String("topic", topic), slog.String("group", c.groupID))
	failures := 0
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			failures++
			delay := fetchBackoff(failures)
			slog.Error("kafka fetch failed",
				slog.String("topic", topic),
				slog.Int("failures", failures),
				slog.Duration("backoff", delay),
				slog.String("error", err.Error()),
			)
			if c.sleep(ctx, delay) != nil {
				return
			}
			continue
		}
		failures = 0

		m := Message{Topic: topic, Key: string(msg.Key), Payload: msg.Value}
		for _, h := range hs {
			if err := h(ctx, m); err != nil {
				slog.Error("event handler failed",
					slog.String("topic", topic),
					slog.String("key", m.Key),
					slog.String("error", err.Error()),
				)
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			slog.Error("kafka commit failed", slog.String("topic", topic), slog.String("error", err.Error()))
		}
	}
}

// CreateTopics はトピックを3パーティション・レプリケーション1で作る
func CreateTopics(brokerAddr string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokerAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}

	controllerConn, err := kafka.Dial("tcp", controller.Host+":"+strconv.Itoa(controller.Port))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             KafkaTopic(topic),
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
	}
	return controllerConn.CreateTopics(configs...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
