package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// 監査ログ一覧の条件。空の項目は絞り込まない
type AuditLogQuery struct {
	ActorUserID  string
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

// 管理者操作の記録。追記のみ
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順。totalは絞り込み後の件数
	List(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, int64, error)
}
