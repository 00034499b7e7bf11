package mongostore

import (
	"context"
	"regexp"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
)

type productRepo struct {
	pool *Pool
}

func productFilter(q repo.ProductListQuery) bson.M {
	filter := bson.M{}
	if !q.IncludeInactive {
		filter["isActive"] = true
	}
	if q.Category != "" && q.Category != model.CategoryAll {
		filter["category"] = q.Category
	}
	if q.Q != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(q.Q), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

func productSort(sort string) bson.D {
	switch sort {
	case repo.SortPriceAsc:
		return bson.D{{Key: "offerPrice", Value: 1}, {Key: "_id", Value: 1}}
	case repo.SortPriceDesc:
		return bson.D{{Key: "offerPrice", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}
	}
}

func (r *productRepo) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	col, err := r.pool.collection(ctx, colProducts)
	if err != nil {
		return nil, 0, err
	}

	filter := productFilter(q)
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}

	cur, err := col.Find(ctx, filter, skipLimit(q.Page, q.Limit).SetSort(productSort(q.Sort)))
	if err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	items := []model.Product{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, r.pool.mapErr(ctx, err)
	}
	return items, total, nil
}

func (r *productRepo) FindByID(ctx context.Context, id string) (model.Product, error) {
	col, err := r.pool.collection(ctx, colProducts)
	if err != nil {
		return model.Product{}, err
	}

	var p model.Product
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return model.Product{}, r.pool.mapErr(ctx, err)
	}
	return p, nil
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	col, err := r.pool.collection(ctx, colProducts)
	if err != nil {
		return model.Product{}, err
	}
	if p.Ratings == nil {
		p.Ratings = []model.Rating{}
	}
	if _, err := col.InsertOne(ctx, p); err != nil {
		return model.Product{}, r.pool.mapErr(ctx, err)
	}
	return p, nil
}

func (r *productRepo) Update(ctx context.Context, p model.Product) error {
	col, err := r.pool.collection(ctx, colProducts)
	if err != nil {
		return err
	}

	// 作成者・作成日時は書き換えない
	res, err := col.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"name":          p.Name,
		"description":   p.Description,
		"price":         p.Price,
		"offerPrice":    p.OfferPrice,
		"image":         p.Images,
		"category":      p.Category,
		"stock":         p.Stock,
		"isActive":      p.IsActive,
		"ratings":       p.Ratings,
		"averageRating": p.AverageRating,
		"numReviews":    p.NumReviews,
		"updatedAt":     p.UpdatedAt,
	}})
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	col, err := r.pool.collection(ctx, colProducts)
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return r.pool.mapErr(ctx, err)
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}
