package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tumortrace/classification-service/internal/interfaces"
	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/signature"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

const (
	paymentLockTTL = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Pricing is the server-side price of one paid classification.
type Pricing struct {
	Amount   int64
	Currency string
}

type Orchestrator struct {
	payments        interfaces.PaymentLedger
	classifications interfaces.ClassificationLedger
	gateway         interfaces.PaymentGateway
	locker          interfaces.Locker
	publisher       interfaces.EventPublisher
	secret          []byte
	pricing         Pricing
	now             func() time.Time
}

func NewOrchestrator(
	payments interfaces.PaymentLedger,
	classifications interfaces.ClassificationLedger,
	gateway interfaces.PaymentGateway,
	locker interfaces.Locker,
	publisher interfaces.EventPublisher,
	secret string,
	pricing Pricing,
) *Orchestrator {
	return &Orchestrator{
		payments:        payments,
		classifications: classifications,
		gateway:         gateway,
		locker:          locker,
		publisher:       publisher,
		secret:          []byte(secret),
		pricing:         pricing,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type CreateOrderInput struct {
	Amount   int64
	Currency string
	FileID   string
	UserID   string
}

// CreateOrder mints a gateway order for the configured price and stores the
// intent. The intent is not proof of payment.
func (o *Orchestrator) CreateOrder(ctx context.Context, in CreateOrderInput) (intent *models.PaymentIntent, err error) {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.CreateOrder",
		attribute.String("file_id", in.FileID))
	defer func() {
		telemetry.EndSpan(span, err)
		telemetry.OrdersCreated.WithLabelValues(outcome(err)).Inc()
	}()

	if in.Amount <= 0 || strings.TrimSpace(in.Currency) == "" {
		return nil, models.Validationf("amount and currency are required")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Amount != o.pricing.Amount || currency != o.pricing.Currency {
		return nil, models.Validationf("amount must be %d %s", o.pricing.Amount, o.pricing.Currency)
	}

	notes := map[string]string{}
	if in.FileID != "" {
		notes["fileId"] = in.FileID
	}
	if in.UserID != "" {
		notes["userId"] = in.UserID
	}
	order, err := o.gateway.CreateOrder(ctx, models.GatewayOrderRequest{
		Amount:   o.pricing.Amount,
		Currency: o.pricing.Currency,
		Receipt:  fmt.Sprintf("TCD_%d", o.now().UnixMilli()),
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	intent = &models.PaymentIntent{
		GatewayOrderID:   order.ID,
		AmountMinorUnits: order.Amount,
		Currency:         order.Currency,
		FileID:           in.FileID,
		UserID:           in.UserID,
		CreatedAt:        o.now(),
	}
	if err := o.payments.InsertIntent(ctx, intent); err != nil {
		return nil, err
	}

	o.transition(ctx, models.WorkflowStateChanged{
		UserID:        in.UserID,
		FileID:        in.FileID,
		OrderID:       order.ID,
		State:         models.StateOrderCreated,
		PreviousState: models.StateNoPayment,
	})
	return intent, nil
}

type VerifyPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
	FileID    string
	UserID    string
}

// VerifyPayment checks the gateway signature and records the completed
// payment. A repeated callback for the same payment yields ErrDuplicatePayment
// and leaves the ledger unchanged.
func (o *Orchestrator) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (record *models.PaymentRecord, err error) {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.VerifyPayment",
		attribute.String("order_id", in.OrderID),
		attribute.String("payment_id", in.PaymentID))
	defer func() {
		telemetry.EndSpan(span, err)
		telemetry.PaymentVerifications.WithLabelValues(outcome(err)).Inc()
	}()

	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, models.Validationf("missing payment details")
	}
	if in.FileID == "" {
		return nil, models.Validationf("fileId is required")
	}
	if in.UserID == "" {
		return nil, models.Validationf("userId is required")
	}

	if !signature.Verify(in.OrderID, in.PaymentID, in.Signature, o.secret) {
		telemetry.Logger.Warn("Payment signature mismatch",
			zap.String("order_id", in.OrderID),
			zap.String("payment_id", in.PaymentID),
		)
		return nil, models.ErrSignatureMismatch
	}

	lockKey := fmt.Sprintf("payment_lock:%s", in.PaymentID)
	locked, err := o.locker.Acquire(ctx, lockKey, paymentLockTTL)
	switch {
	case err != nil:
		// The unique constraints still reject duplicates without the lock.
		telemetry.Logger.Warn("Payment lock unavailable",
			zap.String("payment_id", in.PaymentID),
			zap.Error(err),
		)
	case !locked:
		return nil, fmt.Errorf("%w: %s is already being processed", models.ErrDuplicatePayment, in.PaymentID)
	default:
		defer func() {
			if err := o.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
				telemetry.Logger.Warn("Failed to release payment lock", zap.String("key", lockKey), zap.Error(err))
			}
		}()
	}

	intent, err := o.payments.GetIntent(ctx, in.OrderID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.Validationf("unknown order %s", in.OrderID)
	}
	if err != nil {
		return nil, err
	}
	if intent.FileID != "" && intent.FileID != in.FileID {
		return nil, models.Validationf("order %s was created for another file", in.OrderID)
	}
	if intent.UserID != "" && intent.UserID != in.UserID {
		return nil, fmt.Errorf("%w: order %s belongs to another user", models.ErrForbidden, in.OrderID)
	}

	now := o.now()
	record = &models.PaymentRecord{
		UserID:           in.UserID,
		FileID:           in.FileID,
		GatewayOrderID:   in.OrderID,
		GatewayPaymentID: in.PaymentID,
		Signature:        in.Signature,
		Status:           models.PaymentCompleted,
		Amount:           intent.AmountMinorUnits,
		Currency:         intent.Currency,
		CompletedAt:      &now,
		CreatedAt:        now,
	}
	if err := o.payments.RecordVerifiedPayment(ctx, record); err != nil {
		return nil, err
	}

	o.transition(ctx, models.WorkflowStateChanged{
		UserID:        in.UserID,
		FileID:        in.FileID,
		OrderID:       in.OrderID,
		PaymentID:     in.PaymentID,
		State:         models.StatePaymentVerified,
		PreviousState: models.StateOrderCreated,
	})
	return record, nil
}

type SaveClassificationInput struct {
	FileID         string
	UserID         string
	PaymentID      string
	TumorType      models.TumorType
	Confidence     float64
	AllPredictions []models.Prediction
	Age            *int
	Gender         *string
}

// SaveClassification persists a paid classification. It requires a completed
// payment for the same payment id, user and file; the ledger enforces the same
// condition in the insert itself.
func (o *Orchestrator) SaveClassification(ctx context.Context, in SaveClassificationInput) (record *models.ClassificationRecord, err error) {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.SaveClassification",
		attribute.String("file_id", in.FileID),
		attribute.String("payment_id", in.PaymentID))
	defer func() {
		telemetry.EndSpan(span, err)
		telemetry.ClassificationsRecorded.WithLabelValues(outcome(err)).Inc()
	}()

	switch {
	case in.FileID == "":
		return nil, models.Validationf("fileId is required")
	case in.TumorType == "":
		return nil, models.Validationf("tumorType is required")
	case in.PaymentID == "":
		return nil, models.Validationf("paymentId is required")
	case in.UserID == "":
		return nil, models.Validationf("userId is required")
	case !in.TumorType.Valid():
		return nil, models.Validationf("tumorType must be %s or %s", models.TumorBenign, models.TumorMalignant)
	case in.Confidence < 0 || in.Confidence > 1 || math.IsNaN(in.Confidence):
		return nil, models.Validationf("confidence must be between 0 and 1")
	case in.Age != nil && (*in.Age < 0 || *in.Age > 150):
		return nil, models.Validationf("age must be between 0 and 150")
	}

	payment, err := o.payments.GetByPaymentID(ctx, in.PaymentID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrPaymentNotVerified, in.PaymentID)
	}
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentCompleted || payment.UserID != in.UserID || payment.FileID != in.FileID {
		return nil, fmt.Errorf("%w: %s", models.ErrPaymentNotVerified, in.PaymentID)
	}

	record = &models.ClassificationRecord{
		ID:                   uuid.NewString(),
		FileID:               in.FileID,
		UserID:               in.UserID,
		PaymentID:            in.PaymentID,
		TumorType:            in.TumorType,
		Confidence:           in.Confidence,
		ConfidencePercentage: ConfidencePercentage(in.Confidence),
		AllPredictions:       in.AllPredictions,
		TopPrediction:        TopPrediction(in.AllPredictions),
		Age:                  in.Age,
		Gender:               normalizeGender(in.Gender),
		AmountCharged:        payment.Amount,
		Currency:             payment.Currency,
		Status:               models.ClassificationCompleted,
		CreatedAt:            o.now(),
	}
	if record.AllPredictions == nil {
		record.AllPredictions = []models.Prediction{}
	}
	if err := o.classifications.RecordClassification(ctx, record); err != nil {
		return nil, err
	}

	o.transition(ctx, models.WorkflowStateChanged{
		UserID:        in.UserID,
		FileID:        in.FileID,
		OrderID:       payment.GatewayOrderID,
		PaymentID:     in.PaymentID,
		State:         models.StateClassified,
		PreviousState: models.StatePaymentVerified,
	})
	return record, nil
}

// WorkflowState derives the release state of a file from the ledgers.
func (o *Orchestrator) WorkflowState(ctx context.Context, userID, fileID string) (models.WorkflowState, error) {
	if fileID == "" {
		return "", models.Validationf("fileId is required")
	}

	intent, err := o.payments.LatestIntentForFile(ctx, userID, fileID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return "", err
	}
	payment, err := o.payments.LatestCompletedForFile(ctx, userID, fileID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return "", err
	}

	if payment != nil {
		classified, err := o.classifications.ExistsForPayment(ctx, payment.GatewayPaymentID)
		if err != nil {
			return "", err
		}
		if !classified {
			return models.StatePaymentVerified, nil
		}
		if intent != nil && payment.CompletedAt != nil && intent.CreatedAt.After(*payment.CompletedAt) {
			return models.StateOrderCreated, nil
		}
		return models.StateClassified, nil
	}
	if intent != nil {
		return models.StateOrderCreated, nil
	}
	return models.StateNoPayment, nil
}

// GetPayment returns a payment for its owner.
func (o *Orchestrator) GetPayment(ctx context.Context, userID, paymentID string) (*models.PaymentRecord, error) {
	payment, err := o.payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, models.ErrNotFound
	}
	return payment, nil
}

func (o *Orchestrator) ListClassifications(ctx context.Context, userID string) ([]models.ClassificationRecord, error) {
	records, err := o.classifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.ClassificationRecord{}
	}
	return records, nil
}

// transition publishes a committed state change. Publish failures are logged;
// the store write has already happened.
func (o *Orchestrator) transition(ctx context.Context, event models.WorkflowStateChanged) {
	event.Timestamp = o.now()

	// The store write is committed; a client hanging up must not drop the event.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := o.publisher.Publish(pubCtx, event); err != nil {
		telemetry.Logger.Error("Failed to publish state change",
			zap.String("file_id", event.FileID),
			zap.String("state", string(event.State)),
			zap.Error(err),
		)
	}

	telemetry.Logger.Info("Classification state transition",
		zap.String("user_id", event.UserID),
		zap.String("file_id", event.FileID),
		zap.String("from_state", string(event.PreviousState)),
		zap.String("to_state", string(event.State)),
	)
}

// ConfidencePercentage rounds confidence*100 to two decimals.
func ConfidencePercentage(confidence float64) float64 {
	return math.Round(confidence*10000) / 100
}

// TopPrediction returns the first prediction with the highest probability.
func TopPrediction(predictions []models.Prediction) *models.Prediction {
	if len(predictions) == 0 {
		return nil
	}
	top := predictions[0]
	for _, p := range predictions[1:] {
		if p.Probability > top.Probability {
			top = p
		}
	}
	return &top
}

func normalizeGender(gender *string) *string {
	if gender == nil || *gender == "" {
		return nil
	}
	g := strings.ToLower(*gender)
	return &g
}

func outcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, models.ErrDuplicatePayment), errors.Is(err, models.ErrDuplicateKey):
		return telemetry.OutcomeDuplicate
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrSignatureMismatch),
		errors.Is(err, models.ErrPaymentNotVerified), errors.Is(err, models.ErrForbidden):
		return telemetry.OutcomeRejected
	default:
		return telemetry.OutcomeError
	}
}
