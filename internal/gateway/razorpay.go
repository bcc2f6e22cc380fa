// Package gateway talks to the Razorpay orders API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

type RazorpayGateway struct {
	keyID     string
	keySecret string
	apiBase   string
	client    *http.Client
}

func NewRazorpayGateway(keyID, keySecret, apiBase string, timeout time.Duration) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		apiBase:   apiBase,
		client:    &http.Client{Timeout: timeout},
	}
}

// CreateOrder mints a gateway order. Every failure, including timeouts and
// non-2xx replies, is reported as models.ErrGateway so callers can retry.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req models.GatewayOrderRequest) (*models.GatewayOrder, error) {
	start := time.Now()
	defer func() {
		telemetry.GatewayLatency.WithLabelValues("razorpay").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(g.keyID, g.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: razorpay order request: %v", models.ErrGateway, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read razorpay response: %v", models.ErrGateway, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		telemetry.Logger.Warn("Razorpay rejected order",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload),
		)
		return nil, fmt.Errorf("%w: razorpay returned status %d", models.ErrGateway, resp.StatusCode)
	}

	var order models.GatewayOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("%w: decode razorpay order: %v", models.ErrGateway, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: razorpay order without id", models.ErrGateway)
	}
	return &order, nil
}
