package server

import (
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Checkout     *handler.CheckoutHandler
	User         *handler.UserHandler
	AdminUser    *handler.AdminUserHandler
	AdminAudit   *handler.AdminAuditHandler
	Address      *handler.AddressHandler
	Access       *handler.AccessHandler
	Upload       *handler.UploadHandler
	Events       *handler.EventsHandler
	Webhook      *handler.WebhookHandler
	Health       *handler.HealthHandler
}

type Options struct {
	// CORSで許可するフロントエンドのオリジン
	FEURL         string
	UploadDir     string
	UploadBaseURL string

	Logger         *slog.Logger
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
}

// NewRouter は全ルートを登録したechoを返す
func NewRouter(h Handlers, g handler.Guards, opt Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Metrics == nil {
		opt.Metrics = metrics.Nop{}
	}

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(opt.Logger))
	e.Use(middleware.Metrics(opt.Metrics))
	// panicも500としてログとメトリクスに残す
	e.Use(middleware.Recovery())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins(opt.FEURL),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, "X-Request-ID"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}))

	h.Health.RegisterRoutes(e, opt.MetricsHandler)
	h.Webhook.RegisterRoutes(e)

	h.Product.RegisterRoutes(e, g)
	h.AdminProduct.RegisterRoutes(e, g)
	h.Order.RegisterRoutes(e, g)
	h.AdminOrder.RegisterRoutes(e, g)
	h.Checkout.RegisterRoutes(e, g)
	h.User.RegisterRoutes(e, g)
	h.AdminUser.RegisterRoutes(e, g)
	h.AdminAudit.RegisterRoutes(e, g)
	h.Address.RegisterRoutes(e, g)
	h.Access.RegisterRoutes(e, g)
	h.Upload.RegisterRoutes(e, g)
	h.Events.RegisterRoutes(e, g)

	if opt.UploadDir != "" {
		base := opt.UploadBaseURL
		if base == "" {
			base = "/uploads"
		}
		e.Static(base, opt.UploadDir)
	}

	return e
}

func origins(feURL string) []string {
	var out []string
	for _, o := range strings.Split(feURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
