package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colUsers     = "users"
	colProducts  = "products"
	colOrders    = "orders"
	colAddresses = "addresses"
	colAuditLogs = "audit_logs"
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// Pool はプロセス全体で共有するクライアント。
// 最初の利用時に接続し、失敗後のヘルスチェックで応答がなければ捨てて次回つなぎ直す。
// 接続中はロックを持たず、同時に来た呼び出しは同じ接続試行を待つ。
type Pool struct {
	cfg Config

	mu         sync.Mutex
	client     *mongo.Client
	closed     bool
	connecting chan struct{}
	lastErr    error
	failedAt   time.Time

	// 接続失敗のあと、この間は再接続せずに同じエラーを返す
	retryAfter time.Duration
	dial       func(ctx context.Context) (*mongo.Client, error)
	now        func() time.Time
}

func NewPool(cfg Config) *Pool {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	p := &Pool{cfg: cfg, retryAfter: 2 * time.Second, now: time.Now}
	p.dial = p.connect
	return p
}

// Database は接続済みのDBを返す。未接続ならここで接続する。
func (p *Pool) Database(ctx context.Context) (*mongo.Database, error) {
	for {
		p.mu.Lock()
		if p.client != nil {
			db := p.client.Database(p.cfg.Database)
			p.mu.Unlock()
			return db, nil
		}
		if p.closed {
			p.mu.Unlock()
			return nil, fmt.Errorf("mongo pool closed: %w", repo.ErrUnavailable)
		}
		if p.lastErr != nil && p.now().Sub(p.failedAt) < p.retryAfter {
			err := p.lastErr
			p.mu.Unlock()
			return nil, err
		}
		if wait := p.connecting; wait != nil {
			p.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("mongo connect: %v: %w", ctx.Err(), repo.ErrUnavailable)
			}
		}
		done := make(chan struct{})
		p.connecting = done
		p.mu.Unlock()

		client, err := p.dial(ctx)

		p.mu.Lock()
		p.connecting = nil
		close(done)
		switch {
		case err != nil:
			p.lastErr, p.failedAt = err, p.now()
			p.mu.Unlock()
			return nil, err
		case p.closed:
			p.mu.Unlock()
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo pool closed: %w", repo.ErrUnavailable)
		}
		p.client, p.lastErr = client, nil
		db := client.Database(p.cfg.Database)
		p.mu.Unlock()
		return db, nil
	}
}

func (p *Pool) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := p.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func (p *Pool) connect(ctx context.Context) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(p.cfg.URI).
		SetServerSelectionTimeout(p.cfg.ConnectTimeout).
		SetConnectTimeout(p.cfg.ConnectTimeout)
	if p.cfg.SocketTimeout > 0 {
		opts.SetSocketTimeout(p.cfg.SocketTimeout)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %v: %w", err, repo.ErrUnavailable)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %v: %w", err, repo.ErrUnavailable)
	}

	slog.Info("connected to mongodb", slog.String("database", p.cfg.Database))
	return client, nil
}

// Ping は接続済みクライアントの疎通確認。未接続なら接続を試みる。
func (p *Pool) Ping(ctx context.Context) error {
	db, err := p.Database(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()
	if err := db.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %v: %w", err, repo.ErrUnavailable)
	}
	return nil
}

// 操作が失敗したときに呼ぶ。応答がなければクライアントを捨てる
func (p *Pool) checkHealth(ctx context.Context) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err == nil {
		return
	}

	p.mu.Lock()
	if p.client == client {
		p.client = nil
	}
	p.mu.Unlock()
	_ = client.Disconnect(context.Background())
	slog.Warn("mongodb client reset after failed health check")
}

// Close はシャットダウン時に呼ぶ。
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.closed = true
	p.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// EnsureIndexes は一意制約と検索用インデックスを作る。何度呼んでもよい。
func (p *Pool) EnsureIndexes(ctx context.Context) error {
	db, err := p.Database(ctx)
	if err != nil {
		return err
	}

	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "externalId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colProducts: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "date", Value: -1}}},
		},
		colOrders: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colAddresses: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
			// デフォルト住所はユーザーごとに1件まで
			{
				Keys: bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().
					SetName("userId_default_unique").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"isDefault": true}),
			},
		},
		colAuditLogs: {
			{Keys: bson.D{{Key: "resourceType", Value: 1}, {Key: "resourceId", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return p.mapErr(ctx, fmt.Errorf("create indexes on %s: %w", name, err))
		}
	}
	return nil
}

// ドライバのエラーをリポジトリのエラーに変換する
func (p *Pool) mapErr(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repo.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repo.ErrConflict
	case errors.Is(err, repo.ErrUnavailable):
		return err
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		p.checkHealth(ctx)
		return fmt.Errorf("%v: %w", err, repo.ErrUnavailable)
	default:
		p.checkHealth(ctx)
		return err
	}
}

// Store はPoolの上にリポジトリを束ねる
type Store struct {
	pool *Pool
}

func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Products() repo.ProductRepository   { return &productRepo{s.pool} }
func (s *Store) Orders() repo.OrderRepository       { return &orderRepo{s.pool} }
func (s *Store) Users() repo.UserRepository         { return &userRepo{s.pool} }
func (s *Store) Addresses() repo.AddressRepository  { return &addressRepo{s.pool} }
func (s *Store) AuditLogs() repo.AuditLogRepository { return &auditRepo{s.pool} }
func (s *Store) Ping(ctx context.Context) error     { return s.pool.Ping(ctx) }

func skipLimit(page, limit int) *options.FindOptions {
	if page < 1 {
		page = 1
	}
	opts := options.Find()
	if limit > 0 {
		opts.SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit))
	}
	return opts
}
