package model

import (
	"errors"
	"time"
)

type Category string

const (
	CategoryEarphone    Category = "Earphone"
	CategoryHeadphone   Category = "Headphone"
	CategoryWatch       Category = "Watch"
	CategorySmartphone  Category = "Smartphone"
	CategoryLaptop      Category = "Laptop"
	CategoryCamera      Category = "Camera"
	CategoryAccessories Category = "Accessories"
)

// 一覧フィルタでカテゴリ絞り込みを無効にする値
const CategoryAll = "all"

var categories = []Category{
	CategoryEarphone,
	CategoryHeadphone,
	CategoryWatch,
	CategorySmartphone,
	CategoryLaptop,
	CategoryCamera,
	CategoryAccessories,
}

func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, v := range categories {
		if v == c {
			return true
		}
	}
	return false
}

var (
	ErrOfferPriceAbovePrice = errors.New("offer_price must be <= price")
	ErrNegativePrice        = errors.New("price must be >= 0")
	ErrNegativeStock        = errors.New("stock must be >= 0")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
)

// ユーザーごとの評価（1〜5）
type Rating struct {
	UserID    string    `bson:"userId" json:"user_id"`
	Value     int       `bson:"rating" json:"rating"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

type Product struct {
	ID            string    `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	CreatedBy     string    `gorm:"column:created_by" bson:"userId" json:"created_by"`
	Name          string    `gorm:"type:varchar(255);not null" bson:"name" json:"name"`
	Description   string    `gorm:"type:text;not null" bson:"description" json:"description"`
	Price         float64   `gorm:"not null" bson:"price" json:"price"`
	OfferPrice    float64   `gorm:"column:offer_price;not null" bson:"offerPrice" json:"offer_price"`
	Images        []string  `gorm:"serializer:json;type:jsonb;not null" bson:"image" json:"images"`
	Category      Category  `gorm:"type:varchar(50);not null;index" bson:"category" json:"category"`
	Stock         int64     `gorm:"not null" bson:"stock" json:"stock"`
	IsActive      bool      `gorm:"not null;default:true" bson:"isActive" json:"is_active"`
	Ratings       []Rating  `gorm:"serializer:json;type:jsonb;not null" bson:"ratings" json:"ratings"`
	AverageRating float64   `gorm:"column:average_rating;not null" bson:"averageRating" json:"average_rating"`
	NumReviews    int       `gorm:"column:num_reviews;not null" bson:"numReviews" json:"num_reviews"`
	CreatedAt     time.Time `gorm:"not null;index" bson:"date" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" bson:"updatedAt" json:"updated_at"`
}

// 価格・在庫・カテゴリの不変条件
func (p Product) Validate() error {
	if p.Price < 0 || p.OfferPrice < 0 {
		return ErrNegativePrice
	}
	if p.OfferPrice > p.Price {
		return ErrOfferPriceAbovePrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	if !p.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

// 同じユーザーの評価は置き換え、平均とレビュー数を再計算
func (p *Product) Rate(userID string, value int, now time.Time) error {
	if value < 1 || value > 5 {
		return ErrInvalidRating
	}
	replaced := false
	for i := range p.Ratings {
		if p.Ratings[i].UserID == userID {
			p.Ratings[i].Value = value
			p.Ratings[i].CreatedAt = now
			replaced = true
			break
		}
	}
	if !replaced {
		p.Ratings = append(p.Ratings, Rating{UserID: userID, Value: value, CreatedAt: now})
	}
	p.RecomputeRating()
	return nil
}

func (p *Product) RecomputeRating() {
	p.NumReviews = len(p.Ratings)
	if p.NumReviews == 0 {
		p.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range p.Ratings {
		sum += r.Value
	}
	p.AverageRating = float64(sum) / float64(p.NumReviews)
}
