package mongostore

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type addressRepo struct {
	pool *Pool
}

func (r *addressRepo) Create(ctx context.Context, address model.Address) (model.Address, error) {
	col, err := r.pool.collection(ctx, colAddresses)
	if err != nil {
		return model.Address{}, err
	}
	if _, err := col.InsertOne(ctx, address); err != nil {
		return model.Address{}, r.pool.mapErr(ctx, err)
	}
	return address, nil
}

func (r *addressRepo) ListByUserID(ctx context.Context, userID string) ([]model.Address, error) {
	col, err := r.pool.collection(ctx, colAddresses)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "isDefault", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, r.pool.mapErr(ctx, err)
	}
	out := []model.Address{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, r.pool.mapErr(ctx, err)
	}
	return out, nil
}

func (r *addressRepo) CountByUserID(ctx context.Context, userID string) (int64, error) {
	col, err := r.pool.collection(ctx, colAddresses)
	if err != nil {
		return 0, err
	}
	n, err := col.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, r.pool.mapErr(ctx, err)
	}
	return n, nil
}

func (r *addressRepo) FindByID(ctx context.Context, addressID string) (model.Address, error) {
	col, err := r.pool.collection(ctx, colAddresses)
	if err != nil {
		return model.Address{}, err
	}
	var a model.Address
	if err := col.FindOne(ctx, bson.M{"_id": addressID}).Decode(&a); err != nil {
		return model.Address{}, r.pool.mapErr(ctx, err)
	}
	return a, nil
}

func (r *addressRepo) Update(ctx context.Context, address model.Address) error {
	col, err := r.pool.collection(ctx, colAddresses)
	if err != nil {
		return err
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": address.ID}, bson.M{"$set": bson.M{
		"fullName":    address.FullName,
		"phoneNumber": address.PhoneNumber,
		"area":        address.Area,
		"city":        address.City,
		"state":       address.State,
		"pincode":     address.Pincode,
		"updatedAt":   address.UpdatedAt,
	}})
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *addressRepo) Delete(ctx context.Context, addressID string) error {
	col, err := r.pool.collection(ctx, colAddresses)
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": addressID})
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 部分一意インデックスに触れないよう、先に他の住所のフラグを落とす
func (r *addressRepo) SetDefault(ctx context.Context, userID, addressID string) error {
	col, err := r.pool.collection(ctx, colAddresses)
	if err != nil {
		return err
	}

	n, err := col.CountDocuments(ctx, bson.M{"_id": addressID, "userId": userID})
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}

	now := time.Now()
	if _, err := col.UpdateMany(ctx,
		bson.M{"userId": userID, "_id": bson.M{"$ne": addressID}, "isDefault": true},
		bson.M{"$set": bson.M{"isDefault": false, "updatedAt": now}},
	); err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if _, err := col.UpdateOne(ctx,
		bson.M{"_id": addressID, "userId": userID},
		bson.M{"$set": bson.M{"isDefault": true, "updatedAt": now}},
	); err != nil {
		return r.pool.mapErr(ctx, err)
	}
	return nil
}
