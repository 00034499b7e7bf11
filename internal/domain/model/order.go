package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// 前進方向の順序。cancelledは別扱い
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// sがtarget以上まで進んでいるか（cancelledはどこにも進めない）
func (s OrderStatus) Reached(target OrderStatus) bool {
	if s == target {
		return true
	}
	if s == OrderStatusCancelled || target == OrderStatusCancelled {
		return false
	}
	return statusRank[s] > statusRank[target]
}

// 前進かキャンセルのみ許可。終端からは動かせない
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() || from == to || from.Terminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return statusRank[to] > statusRank[from]
}

type PaymentProvider string

const (
	ProviderStripe   PaymentProvider = "stripe"
	ProviderRazorpay PaymentProvider = "razorpay"
	ProviderCOD      PaymentProvider = "cod"
)

func (p PaymentProvider) Valid() bool {
	return p == ProviderStripe || p == ProviderRazorpay || p == ProviderCOD
}

// 注文時点の商品名と価格を保存
type OrderItem struct {
	ProductID string  `bson:"product" json:"product_id"`
	Name      string  `bson:"name" json:"name"`
	Quantity  int64   `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
}

type Order struct {
	ID         string          `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	UserID     string          `gorm:"type:uuid;not null;index" bson:"userId" json:"user_id"`
	Items      []OrderItem     `gorm:"serializer:json;type:jsonb;not null" bson:"items" json:"items"`
	Address    ShippingAddress `gorm:"embedded;embeddedPrefix:address_" bson:"address" json:"address"`
	Subtotal   float64         `gorm:"not null" bson:"subtotal" json:"subtotal"`
	Shipping   float64         `gorm:"not null" bson:"shipping" json:"shipping"`
	Tax        float64         `gorm:"not null" bson:"tax" json:"tax"`
	Amount     float64         `gorm:"not null" bson:"amount" json:"amount"`
	Provider   PaymentProvider `gorm:"type:varchar(20);not null" bson:"provider" json:"provider"`
	PaymentRef string          `gorm:"column:payment_ref" bson:"paymentRef,omitempty" json:"payment_ref,omitempty"`
	Status     OrderStatus     `gorm:"type:varchar(20);not null;index" bson:"status" json:"status"`
	CreatedAt  time.Time       `gorm:"not null;index" bson:"date" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" bson:"updatedAt" json:"updated_at"`
}
