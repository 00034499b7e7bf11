package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOrderCreated("stripe")
	c.RecordOrderCreated("stripe")
	c.RecordFulfillmentStep("mark-shipped", "ok")
	c.RecordNotificationFailed("mail")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ordersCreated.WithLabelValues("stripe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fulfillmentSteps.WithLabelValues("mark-shipped", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notificationsFailed.WithLabelValues("mail")))
}

func TestHandler_Exposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPRequest(http.MethodGet, "/products", 200)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `storefront_http_requests_total{method="GET",route="/products",status="200"} 1`))
}
