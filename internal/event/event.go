// Package event は注文・商品イベントの発行と購読を扱う。
// 実装はプロセス内のMemoryBusとKafkaの2つ。
package event

import (
	"context"
	"encoding/json"
	"strings"

	"storefront/internal/domain/model"
)

const (
	TopicOrderCreated      = "order/created"
	TopicOrderConfirmation = "email/order-confirmation"
	TopicProductCreated    = "product/created"
)

func Topics() []string {
	return []string{TopicOrderCreated, TopicOrderConfirmation, TopicProductCreated}
}

// Kafkaのトピック名に "/" は使えないので "." に置き換える
func KafkaTopic(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

type Message struct {
	Topic   string
	Key     string
	Payload []byte
}

// Decode はペイロードのJSONをvに読み込む
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	// payloadはJSONにして送る
	Publish(ctx context.Context, topic, key string, payload any) error
}

type Consumer interface {
	Subscribe(topic string, h Handler)
	// ctxが終わるまでブロックする
	Run(ctx context.Context) error
}

// order/created, email/order-confirmation
type OrderPayload struct {
	Order model.Order `json:"order"`
}

// product/created
type ProductPayload struct {
	Product model.Product `json:"product"`
}
