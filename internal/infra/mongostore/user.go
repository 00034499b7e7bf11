package mongostore

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
)

type userRepo struct {
	pool *Pool
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	col, err := r.pool.collection(ctx, colUsers)
	if err != nil {
		return err
	}
	if user.Cart == nil {
		user.Cart = model.Cart{}
	}
	if _, err := col.InsertOne(ctx, user); err != nil {
		return r.pool.mapErr(ctx, err)
	}
	return nil
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	col, err := r.pool.collection(ctx, colUsers)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, r.pool.mapErr(ctx, err)
	}
	return &u, nil
}

func (r *userRepo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *userRepo) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"externalId": externalID})
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": model.NormalizeEmail(email)})
}

func (r *userRepo) List(ctx context.Context, page int, limit int) ([]model.User, int64, error) {
	col, err := r.pool.collection(ctx, colUsers)
	if err != nil {
		return nil, 0, err
	}
	total, err := col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	cur, err := col.Find(ctx, bson.M{}, skipLimit(page, limit).SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	users := []model.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	return users, total, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	col, err := r.pool.collection(ctx, colUsers)
	if err != nil {
		return err
	}
	res, err := col.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, userID string) error {
	col, err := r.pool.collection(ctx, colUsers)
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}
