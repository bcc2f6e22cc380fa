package models

import "time"

type TumorType string

const (
	TumorBenign    TumorType = "Benign"
	TumorMalignant TumorType = "Malignant"
)

func (t TumorType) Valid() bool {
	return t == TumorBenign || t == TumorMalignant
}

type ClassificationStatus string

const (
	ClassificationCompleted ClassificationStatus = "completed"
	ClassificationArchived  ClassificationStatus = "archived"
	ClassificationDisputed  ClassificationStatus = "disputed"
)

type Prediction struct {
	ClassName   string  `json:"className"`
	Probability float64 `json:"probability"`
}

// ClassificationRecord is one paid, finalized classification. Rows are append-only.
type ClassificationRecord struct {
	ID                   string               `json:"classificationId"`
	FileID               string               `json:"fileId"`
	UserID               string               `json:"userId"`
	PaymentID            string               `json:"paymentId"`
	TumorType            TumorType            `json:"tumorType"`
	Confidence           float64              `json:"confidence"`
	ConfidencePercentage float64              `json:"confidencePercentage"`
	AllPredictions       []Prediction         `json:"allPredictions"`
	TopPrediction        *Prediction          `json:"topPrediction,omitempty"`
	Age                  *int                 `json:"age,omitempty"`
	Gender               *string              `json:"gender,omitempty"`
	AmountCharged        int64                `json:"amountCharged"`
	Currency             string               `json:"currency"`
	Status               ClassificationStatus `json:"status"`
	CreatedAt            time.Time            `json:"createdAt"`
}

// WorkflowState is the classification release state of a (user, file) pair.
type WorkflowState string

const (
	StateNoPayment       WorkflowState = "NO_PAYMENT"
	StateOrderCreated    WorkflowState = "ORDER_CREATED"
	StatePaymentVerified WorkflowState = "PAYMENT_VERIFIED"
	StateClassified      WorkflowState = "CLASSIFIED"
)

// WorkflowStateChanged is published after every committed transition.
type WorkflowStateChanged struct {
	UserID        string        `json:"userId,omitempty"`
	FileID        string        `json:"fileId,omitempty"`
	OrderID       string        `json:"orderId,omitempty"`
	PaymentID     string        `json:"paymentId,omitempty"`
	State         WorkflowState `json:"state"`
	PreviousState WorkflowState `json:"previousState"`
	Timestamp     time.Time     `json:"timestamp"`
}
