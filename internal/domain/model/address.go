package model

import "time"

// 配送先住所
type Address struct {
	ID     string `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	UserID string `gorm:"type:uuid;not null;index" bson:"userId" json:"user_id"`

	//宛名
	FullName string `gorm:"type:varchar(255);not null" bson:"fullName" json:"full_name"`

	//電話番号
	PhoneNumber string `gorm:"type:varchar(30);not null" bson:"phoneNumber" json:"phone_number"`

	//番地など
	Area string `gorm:"type:varchar(255);not null" bson:"area" json:"area"`

	City  string `gorm:"type:varchar(255);not null" bson:"city" json:"city"`
	State string `gorm:"type:varchar(255);not null" bson:"state" json:"state"`

	//郵便番号
	Pincode string `gorm:"type:varchar(20);not null" bson:"pincode" json:"pincode"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" bson:"isDefault" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" bson:"updatedAt" json:"updated_at"`
}

// 注文に埋め込む住所のスナップショット
type ShippingAddress struct {
	FullName    string `gorm:"column:full_name" bson:"fullName" json:"full_name"`
	PhoneNumber string `gorm:"column:phone_number" bson:"phoneNumber" json:"phone_number"`
	Area        string `gorm:"column:area" bson:"area" json:"area"`
	City        string `gorm:"column:city" bson:"city" json:"city"`
	State       string `gorm:"column:state" bson:"state" json:"state"`
	Pincode     string `gorm:"column:pincode" bson:"pincode" json:"pincode"`
}

func (a Address) Snapshot() ShippingAddress {
	return ShippingAddress{
		FullName:    a.FullName,
		PhoneNumber: a.PhoneNumber,
		Area:        a.Area,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
	}
}

// 必須項目が埋まっているか
func (s ShippingAddress) Complete() bool {
	return s.FullName != "" && s.PhoneNumber != "" && s.Area != "" &&
		s.City != "" && s.State != "" && s.Pincode != ""
}
