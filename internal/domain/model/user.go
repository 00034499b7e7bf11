package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// customer/admin以外は不正
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// 商品ID => 数量
type Cart map[string]int64

type User struct {
	ID          string     `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	ExternalID  string     `gorm:"column:external_id;uniqueIndex;not null" bson:"externalId" json:"external_id"`
	Name        string     `gorm:"type:varchar(255);not null" bson:"name" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	ImageURL    string     `gorm:"column:image_url" bson:"imageUrl" json:"image_url"`
	Role        Role       `gorm:"type:varchar(20);not null;default:'customer'" bson:"role" json:"role"`
	IsActive    bool       `gorm:"not null;default:true" bson:"isActive" json:"is_active"`
	LastLoginAt *time.Time `bson:"lastLoginAt,omitempty" json:"last_login_at,omitempty"`
	Cart        Cart       `gorm:"serializer:json;type:jsonb;not null" bson:"cartItems" json:"cart"`
	CreatedAt   time.Time  `gorm:"not null" bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" bson:"updatedAt" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.IsActive && u.Role == RoleAdmin
}

// メールは小文字で保存する
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
