package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

// 監査ログは追記のみ
func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return mapErr(r.db.WithContext(ctx).Create(&log).Error)
}

// 空の条件はスキップするスコープ
func auditScope(q repo.AuditLogQuery) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		eq := map[string]string{
			"actor_user_id": q.ActorUserID,
			"action":        string(q.Action),
			"resource_type": string(q.ResourceType),
			"resource_id":   q.ResourceID,
		}
		for col, v := range eq {
			if v != "" {
				tx = tx.Where(col+" = ?", v)
			}
		}
		if q.From != nil {
			tx = tx.Where("created_at >= ?", *q.From)
		}
		if q.To != nil {
			tx = tx.Where("created_at <= ?", *q.To)
		}
		return tx
	}
}

func (r *auditLogGormRepository) List(ctx context.Context, q repo.AuditLogQuery) ([]model.AuditLog, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.AuditLog{}).Scopes(auditScope(q))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, mapErr(err)
	}

	logs := []model.AuditLog{}
	err := base.Order("created_at DESC").
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return logs, total, nil
}
