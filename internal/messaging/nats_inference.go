package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

type requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// NatsInferenceClient asks the ML service for a prediction over NATS
// request/reply.
type NatsInferenceClient struct {
	conn    requester
	subject string
	timeout time.Duration
}

func NewNatsInferenceClient(conn requester, subject string, timeout time.Duration) *NatsInferenceClient {
	return &NatsInferenceClient{conn: conn, subject: subject, timeout: timeout}
}

type inferenceReply struct {
	models.TumorPresence
	Error string `json:"error,omitempty"`
}

func (c *NatsInferenceClient) Predict(ctx context.Context, req models.InferenceRequest) (*models.TumorPresence, error) {
	start := time.Now()
	defer func() {
		telemetry.GatewayLatency.WithLabelValues("ml_inference").Observe(time.Since(start).Seconds())
	}()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return nil, fmt.Errorf("%w: ml inference timed out", models.ErrGateway)
		}
		return nil, fmt.Errorf("%w: ml inference: %v", models.ErrGateway, err)
	}

	var reply inferenceReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("%w: decode ml reply: %v", models.ErrGateway, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("%w: ml service: %s", models.ErrGateway, reply.Error)
	}
	if reply.AllPredictions == nil {
		reply.AllPredictions = []models.Prediction{}
	}
	return &reply.TumorPresence, nil
}
