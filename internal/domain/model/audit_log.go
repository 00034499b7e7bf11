package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//ロールを変更した操作。
	AuditActionUpdateUserRole AuditAction = "UPDATE_USER_ROLE"
	//有効/無効を切り替えた操作。
	AuditActionUpdateUserStatus AuditAction = "UPDATE_USER_STATUS"
	//商品を削除した操作。
	AuditActionDeleteProduct AuditAction = "DELETE_PRODUCT"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionUpdateOrderStatus, AuditActionUpdateUserRole, AuditActionUpdateUserStatus, AuditActionDeleteProduct:
		return true
	}
	return false
}

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourceUser    AuditResourceType = "user"
)

func (t AuditResourceType) Valid() bool {
	return t == AuditResourceProduct || t == AuditResourceOrder || t == AuditResourceUser
}

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID string `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`

	//操作した管理者のID。
	ActorUserID string `gorm:"type:varchar(255);not null;index" bson:"actorUserId" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" bson:"action" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" bson:"resourceType" json:"resource_type"`
	ResourceID   string            `gorm:"not null;index" bson:"resourceId" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" bson:"before" json:"before_json"`
	AfterJSON  string `gorm:"type:text" bson:"after" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" bson:"createdAt" json:"created_at"`
}
