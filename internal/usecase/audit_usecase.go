package usecase

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// AuditUsecase は管理者操作の記録を読む（書き込みは各usecaseが行う）
type AuditUsecase struct {
	auditRepo repo.AuditLogRepository
}

func NewAuditUsecase(auditRepo repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{auditRepo: auditRepo}
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (u *AuditUsecase) List(ctx context.Context, q repo.AuditLogQuery) (AuditLogListOutput, error) {
	if q.Page < 1 {
		return AuditLogListOutput{}, ValidationFailed("invalid page")
	}
	if q.Limit < 1 || q.Limit > 100 {
		return AuditLogListOutput{}, ValidationFailed("invalid limit")
	}
	if q.Action != "" && !q.Action.Valid() {
		return AuditLogListOutput{}, ValidationFailed("invalid action")
	}
	if q.ResourceType != "" && !q.ResourceType.Valid() {
		return AuditLogListOutput{}, ValidationFailed("invalid resource_type")
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return AuditLogListOutput{}, ValidationFailed("from must be <= to")
	}

	logs, total, err := u.auditRepo.List(ctx, q)
	if err != nil {
		return AuditLogListOutput{}, fromRepoErr(err)
	}
	return AuditLogListOutput{Items: logs, Total: total, Page: q.Page, Limit: q.Limit}, nil
}
