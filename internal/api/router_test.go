package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubPayments records what the create-order route received.
type stubPayments struct {
	service.Orchestrator
	lastOrder service.CreateOrderInput
}

func (s *stubPayments) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*models.PaymentIntent, error) {
	s.lastOrder = in
	return &models.PaymentIntent{GatewayOrderID: "order_1", AmountMinorUnits: in.Amount, Currency: in.Currency}, nil
}

func newTestRouter(payments *stubPayments) *gin.Engine {
	return NewRouter(Deps{
		Payments:    payments,
		Images:      &service.ImageService{},
		Accounts:    &service.AccountService{},
		Google:      auth.NewGoogleAuthenticator("", "", ""),
		Tokens:      auth.NewTokenManager("router-secret", time.Hour),
		CORSOrigins: []string{"http://localhost:5173"},
		FrontendURL: "http://localhost:5173",
	})
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(&stubPayments{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
}

func TestSessionRoutesRequireToken(t *testing.T) {
	r := newTestRouter(&stubPayments{})
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/payment/state/file_1"},
		{http.MethodGet, "/api/payment/classifications"},
		{http.MethodGet, "/api/payment/pay_1"},
		{http.MethodPost, "/api/upload"},
		{http.MethodPost, "/api/delete"},
		{http.MethodPost, "/api/ml/result"},
		{http.MethodPost, "/api/ml/analyze"},
		{http.MethodPost, "/api/ml/classification"},
		{http.MethodGet, "/api/user/current"},
		{http.MethodPut, "/api/user/update"},
		{http.MethodDelete, "/api/user/delete"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", route.method, route.path, w.Code)
		}
	}
}

func TestPublicPaymentRouteIsSanitized(t *testing.T) {
	payments := &stubPayments{}
	r := newTestRouter(payments)

	body := `{"amount": 11100, "currency": "INR", "fileId": "<script>alert(1)</script>file_1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/create-order", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if payments.lastOrder.FileID != "file_1" {
		t.Errorf("fileId = %q, want markup stripped", payments.lastOrder.FileID)
	}
	if payments.lastOrder.Amount != 11100 {
		t.Errorf("amount = %d, want 11100", payments.lastOrder.Amount)
	}
}

func TestSanitizeJSONKeepsPasswords(t *testing.T) {
	r := gin.New()
	r.POST("/echo", SanitizeJSON(), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, "application/json", b)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo",
		strings.NewReader(`{"username":"<b>ana</b>","password":"p<a&ss>","nested":{"x":"<i>y</i>"}}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["username"] != "ana" {
		t.Errorf("username = %v", out["username"])
	}
	if out["password"] != "p<a&ss>" {
		t.Errorf("password altered: %v", out["password"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed status = %d", w.Code)
	}
}
