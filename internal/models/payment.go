package models

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PaymentIntent is the order minted by the gateway before the customer pays.
// It is never proof of payment.
type PaymentIntent struct {
	GatewayOrderID   string    `json:"id"`
	AmountMinorUnits int64     `json:"amount"`
	Currency         string    `json:"currency"`
	FileID           string    `json:"fileId,omitempty"`
	UserID           string    `json:"userId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// PaymentRecord is written only after the gateway signature has been verified.
// A record with status completed is the sole authority that a payment occurred.
type PaymentRecord struct {
	ID               int64         `json:"id"`
	UserID           string        `json:"userId"`
	FileID           string        `json:"fileId"`
	GatewayOrderID   string        `json:"orderId"`
	GatewayPaymentID string        `json:"paymentId"`
	Signature        string        `json:"-"`
	Status           PaymentStatus `json:"status"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// Gateway order request/response exchanged with the payment processor.
type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}
