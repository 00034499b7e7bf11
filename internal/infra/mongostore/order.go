package mongostore

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
)

type orderRepo struct {
	pool *Pool
}

var newestFirst = bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}

func (r *orderRepo) Create(ctx context.Context, o model.Order) error {
	col, err := r.pool.collection(ctx, colOrders)
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, o); err != nil {
		return r.pool.mapErr(ctx, err)
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	col, err := r.pool.collection(ctx, colOrders)
	if err != nil {
		return model.Order{}, err
	}
	var o model.Order
	if err := col.FindOne(ctx, bson.M{"_id": orderID}).Decode(&o); err != nil {
		return model.Order{}, r.pool.mapErr(ctx, err)
	}
	return o, nil
}

func (r *orderRepo) list(ctx context.Context, filter bson.M, page, limit int) ([]model.Order, int64, error) {
	col, err := r.pool.collection(ctx, colOrders)
	if err != nil {
		return nil, 0, err
	}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	cur, err := col.Find(ctx, filter, skipLimit(page, limit).SetSort(newestFirst))
	if err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	orders := []model.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	return orders, total, nil
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID string, page int, limit int) ([]model.Order, int64, error) {
	return r.list(ctx, bson.M{"userId": userID}, page, limit)
}

func (r *orderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	date := bson.M{}
	if f.From != nil {
		date["$gte"] = *f.From
	}
	if f.To != nil {
		date["$lte"] = *f.To
	}
	if len(date) > 0 {
		filter["date"] = date
	}
	return r.list(ctx, filter, f.Page, f.Limit)
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus) error {
	col, err := r.pool.collection(ctx, colOrders)
	if err != nil {
		return err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": orderID, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// 一致しなかった理由を切り分ける
	n, err := col.CountDocuments(ctx, bson.M{"_id": orderID})
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrConflict
}
