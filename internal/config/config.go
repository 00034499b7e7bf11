package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/internal/infra/db"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	BusKafka  = "kafka"
	BusMemory = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string
	FEURL    string // フロントURL（CORSで使う）

	StoreDriver string // mongo/postgres/memory

	MongoURI            string
	MongoDatabase       string
	MongoConnectTimeout time.Duration
	MongoSocketTimeout  time.Duration

	// postgres用（URL形式。migrateでも使う）
	DatabaseURL string

	EventBus     string // kafka/memory
	KafkaBrokers []string
	KafkaGroupID string

	IdentityJWTSecret     string // IDプロバイダのトークン検証用
	IdentityIssuer        string
	IdentityWebhookSecret string

	// DBに届かない時だけ使う管理者メールの許可リスト
	AdminEmails []string

	StripeSecretKey string
	StripeCurrency  string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayCurrency  string

	UploadDir     string
	UploadBaseURL string

	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	FulfillmentInventoryDelay  time.Duration
	FulfillmentMaxAttempts     int
	FulfillmentInitialBackoff  time.Duration
	CheckoutRateLimitPerMinute int
}

// Loadは環境変数から設定を読む
func Load() (Config, error) {
	connectTimeout, err := durationOr("MONGODB_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	socketTimeout, err := durationOr("MONGODB_SOCKET_TIMEOUT", 45*time.Second)
	if err != nil {
		return Config{}, err
	}
	inventoryDelay, err := durationOr("FULFILLMENT_INVENTORY_DELAY", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	initialBackoff, err := durationOr("FULFILLMENT_INITIAL_BACKOFF", time.Second)
	if err != nil {
		return Config{}, err
	}
	maxAttempts, err := atoiOr("FULFILLMENT_MAX_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	ratePerMin, err := atoiOr("RATE_LIMIT_CHECKOUT_PER_MIN", 30)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		FEURL:    os.Getenv("FE_URL"),

		StoreDriver: getenv("STORE_DRIVER", StoreMongo),

		MongoURI:            getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:       getenv("MONGODB_DATABASE", "storefront"),
		MongoConnectTimeout: connectTimeout,
		MongoSocketTimeout:  socketTimeout,

		DatabaseURL: os.Getenv("DATABASE_URL"),

		EventBus:     getenv("EVENT_BUS", BusMemory),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID: getenv("KAFKA_GROUP_ID", "storefront"),

		IdentityJWTSecret:     os.Getenv("IDENTITY_JWT_SECRET"),
		IdentityIssuer:        os.Getenv("IDENTITY_ISSUER"),
		IdentityWebhookSecret: os.Getenv("IDENTITY_WEBHOOK_SECRET"),

		AdminEmails: splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),

		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		StripeCurrency:  getenv("STRIPE_CURRENCY", "usd"),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayCurrency:  getenv("RAZORPAY_CURRENCY", "INR"),

		UploadDir:     getenv("UPLOAD_DIR", "./uploads"),
		UploadBaseURL: getenv("UPLOAD_BASE_URL", "/uploads"),

		SMTPAddr:     os.Getenv("SMTP_ADDR"),
		SMTPFrom:     getenv("SMTP_FROM", "no-reply@storefront.local"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		FulfillmentInventoryDelay:  inventoryDelay,
		FulfillmentMaxAttempts:     maxAttempts,
		FulfillmentInitialBackoff:  initialBackoff,
		CheckoutRateLimitPerMinute: ratePerMin,
	}

	// DATABASE_URLがなければPOSTGRES_*から組み立てる
	if cfg.DatabaseURL == "" && os.Getenv("POSTGRES_HOST") != "" {
		cfg.DatabaseURL = db.BuildURL(
			os.Getenv("POSTGRES_HOST"),
			getenv("POSTGRES_PORT", "5432"),
			os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"),
			os.Getenv("POSTGRES_DB"),
			getenv("POSTGRES_SSLMODE", "disable"),
		)
	}

	//必須チェック
	if cfg.IdentityJWTSecret == "" {
		return Config{}, fmt.Errorf("IDENTITY_JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case StoreMongo, StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_HOST is required for STORE_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be one of mongo, postgres, memory")
	}
	switch cfg.EventBus {
	case BusMemory:
	case BusKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return Config{}, fmt.Errorf("KAFKA_BROKERS is required for EVENT_BUS=kafka")
		}
	default:
		return Config{}, fmt.Errorf("EVENT_BUS must be one of kafka, memory")
	}
	if cfg.FulfillmentMaxAttempts < 1 {
		return Config{}, fmt.Errorf("FULFILLMENT_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.CheckoutRateLimitPerMinute < 1 {
		return Config{}, fmt.Errorf("RATE_LIMIT_CHECKOUT_PER_MIN must be >= 1")
	}

	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// 未設定ならデフォルト値
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration (e.g. 5s): %w", key, err)
	}
	return d, nil
}

// カンマ区切り
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
