package mongostore

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
)

type auditRepo struct {
	pool *Pool
}

func (r *auditRepo) Create(ctx context.Context, log model.AuditLog) error {
	col, err := r.pool.collection(ctx, colAuditLogs)
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, log); err != nil {
		return r.pool.mapErr(ctx, err)
	}
	return nil
}

func auditFilter(q repo.AuditLogQuery) bson.M {
	filter := bson.M{}
	for key, v := range map[string]string{
		"actorUserId":  q.ActorUserID,
		"action":       string(q.Action),
		"resourceType": string(q.ResourceType),
		"resourceId":   q.ResourceID,
	} {
		if v != "" {
			filter[key] = v
		}
	}
	created := bson.M{}
	if q.From != nil {
		created["$gte"] = *q.From
	}
	if q.To != nil {
		created["$lte"] = *q.To
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return filter
}

func (r *auditRepo) List(ctx context.Context, q repo.AuditLogQuery) ([]model.AuditLog, int64, error) {
	col, err := r.pool.collection(ctx, colAuditLogs)
	if err != nil {
		return nil, 0, err
	}

	filter := auditFilter(q)
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	cur, err := col.Find(ctx, filter, skipLimit(q.Page, q.Limit).SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	logs := []model.AuditLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	return logs, total, nil
}
