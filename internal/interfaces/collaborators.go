package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/tumortrace/classification-service/internal/models"
)

// PaymentGateway mints order identifiers with the external payment processor.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req models.GatewayOrderRequest) (*models.GatewayOrder, error)
}

// ObjectStorage stores uploaded images and returns a stable URL and file id.
type ObjectStorage interface {
	Upload(ctx context.Context, fileName string, content io.Reader) (*models.StoredObject, error)
}

// InferenceClient asks the ML service for tumor-presence probabilities.
type InferenceClient interface {
	Predict(ctx context.Context, req models.InferenceRequest) (*models.TumorPresence, error)
}

// EventPublisher announces committed workflow transitions.
type EventPublisher interface {
	Publish(ctx context.Context, event models.WorkflowStateChanged) error
}

// Locker guards a key for a bounded time. Acquire returns false when the key
// is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
