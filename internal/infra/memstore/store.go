// Package memstore はリポジトリのインメモリ実装。
// STORE_DRIVER=memory の開発起動とテストで使う。
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type Store struct {
	mu        sync.RWMutex
	products  map[string]model.Product
	orders    map[string]model.Order
	users     map[string]model.User
	addresses map[string]model.Address
	audits    []model.AuditLog
}

func New() *Store {
	return &Store{
		products:  make(map[string]model.Product),
		orders:    make(map[string]model.Order),
		users:     make(map[string]model.User),
		addresses: make(map[string]model.Address),
	}
}

func (s *Store) Products() repo.ProductRepository   { return &productRepo{s} }
func (s *Store) Orders() repo.OrderRepository       { return &orderRepo{s} }
func (s *Store) Users() repo.UserRepository         { return &userRepo{s} }
func (s *Store) Addresses() repo.AddressRepository  { return &addressRepo{s} }
func (s *Store) AuditLogs() repo.AuditLogRepository { return &auditRepo{s} }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ---- products

type productRepo struct{ s *Store }

func cloneProduct(p model.Product) model.Product {
	p.Images = append([]string(nil), p.Images...)
	p.Ratings = append([]model.Rating(nil), p.Ratings...)
	return p
}

func (r *productRepo) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if !q.IncludeInactive && !p.IsActive {
			continue
		}
		if q.Category != "" && q.Category != model.CategoryAll && string(p.Category) != q.Category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		out = append(out, cloneProduct(p))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case repo.SortPriceAsc:
			if a.OfferPrice != b.OfferPrice {
				return a.OfferPrice < b.OfferPrice
			}
		case repo.SortPriceDesc:
			if a.OfferPrice != b.OfferPrice {
				return a.OfferPrice > b.OfferPrice
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	return paginate(out, q.Page, q.Limit), int64(len(out)), nil
}

func (r *productRepo) FindByID(ctx context.Context, id string) (model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; ok {
		return model.Product{}, repo.ErrConflict
	}
	r.s.products[p.ID] = cloneProduct(p)
	return cloneProduct(p), nil
}

func (r *productRepo) Update(ctx context.Context, p model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.CreatedBy = cur.CreatedBy
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

// ---- orders

type orderRepo struct{ s *Store }

func cloneOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	return o
}

func sortOrders(list []model.Order) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

func (r *orderRepo) Create(ctx context.Context, o model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[o.ID]; ok {
		return repo.ErrConflict
	}
	r.s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID string, page int, limit int) ([]model.Order, int64, error) {
	return r.ListAdmin(ctx, repo.AdminOrderListFilter{Page: page, Limit: limit, UserID: userID})
}

func (r *orderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Order, 0)
	for _, o := range r.s.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sortOrders(out)
	return paginate(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	if o.Status != from {
		return repo.ErrConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	r.s.orders[id] = o
	return nil
}

// ---- users

type userRepo struct{ s *Store }

func cloneUser(u model.User) *model.User {
	cart := make(model.Cart, len(u.Cart))
	for k, v := range u.Cart {
		cart[k] = v
	}
	u.Cart = cart
	return &u
}

func (r *userRepo) duplicate(u *model.User) bool {
	for _, cur := range r.s.users {
		if cur.ID == u.ID {
			continue
		}
		if cur.ExternalID == u.ExternalID || cur.Email == u.Email {
			return true
		}
	}
	return false
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok || r.duplicate(u) {
		return repo.ErrConflict
	}
	r.s.users[u.ID] = *cloneUser(*u)
	return nil
}

func (r *userRepo) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *userRepo) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ExternalID == externalID })
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *userRepo) List(ctx context.Context, page int, limit int) ([]model.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *cloneUser(u))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	if r.duplicate(u) {
		return repo.ErrConflict
	}
	r.s.users[u.ID] = *cloneUser(*u)
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

// ---- addresses

type addressRepo struct{ s *Store }

func (r *addressRepo) Create(ctx context.Context, a model.Address) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.addresses[a.ID]; ok {
		return model.Address{}, repo.ErrConflict
	}
	r.s.addresses[a.ID] = a
	return a, nil
}

func (r *addressRepo) ListByUserID(ctx context.Context, userID string) ([]model.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Address, 0)
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *addressRepo) CountByUserID(ctx context.Context, userID string) (int64, error) {
	list, err := r.ListByUserID(ctx, userID)
	return int64(len(list)), err
}

func (r *addressRepo) FindByID(ctx context.Context, id string) (model.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.addresses[id]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

func (r *addressRepo) Update(ctx context.Context, a model.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.addresses[a.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.FullName = a.FullName
	cur.PhoneNumber = a.PhoneNumber
	cur.Area = a.Area
	cur.City = a.City
	cur.State = a.State
	cur.Pincode = a.Pincode
	cur.UpdatedAt = a.UpdatedAt
	r.s.addresses[a.ID] = cur
	return nil
}

func (r *addressRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.addresses[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.addresses, id)
	return nil
}

func (r *addressRepo) SetDefault(ctx context.Context, userID, addressID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	target, ok := r.s.addresses[addressID]
	if !ok || target.UserID != userID {
		return repo.ErrNotFound
	}
	for id, a := range r.s.addresses {
		if a.UserID != userID {
			continue
		}
		a.IsDefault = id == addressID
		r.s.addresses[id] = a
	}
	return nil
}

// ---- audit logs

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(ctx context.Context, l model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, l)
	return nil
}

func (r *auditRepo) List(ctx context.Context, q repo.AuditLogQuery) ([]model.AuditLog, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.AuditLog, 0)
	// 追記順に入っているので後ろから読めば新しい順
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		l := r.s.audits[i]
		switch {
		case q.ActorUserID != "" && l.ActorUserID != q.ActorUserID,
			q.Action != "" && l.Action != q.Action,
			q.ResourceType != "" && l.ResourceType != q.ResourceType,
			q.ResourceID != "" && l.ResourceID != q.ResourceID,
			q.From != nil && l.CreatedAt.Before(*q.From),
			q.To != nil && l.CreatedAt.After(*q.To):
			continue
		}
		out = append(out, l)
	}
	return paginate(out, q.Page, q.Limit), int64(len(out)), nil
}
