package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/service"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

// PaymentWorkflow is the part of the orchestrator the payment routes use.
type PaymentWorkflow interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*models.PaymentIntent, error)
	VerifyPayment(ctx context.Context, in service.VerifyPaymentInput) (*models.PaymentRecord, error)
	SaveClassification(ctx context.Context, in service.SaveClassificationInput) (*models.ClassificationRecord, error)
	WorkflowState(ctx context.Context, userID, fileID string) (models.WorkflowState, error)
	GetPayment(ctx context.Context, userID, paymentID string) (*models.PaymentRecord, error)
	ListClassifications(ctx context.Context, userID string) ([]models.ClassificationRecord, error)
}

type PaymentHandler struct {
	workflow       PaymentWorkflow
	requireSession bool
}

func NewPaymentHandler(workflow PaymentWorkflow, requireSession bool) *PaymentHandler {
	return &PaymentHandler{
		workflow:       workflow,
		requireSession: requireSession,
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	FileID   string `json:"fileId"`
	UserID   string `json:"userId"`
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := actingUser(c, req.UserID, h.requireSession)
	if err != nil {
		writeError(c, err)
		return
	}

	intent, err := h.workflow.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		FileID:   req.FileID,
		UserID:   userID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"id":       intent.GatewayOrderID,
		"amount":   intent.AmountMinorUnits,
		"currency": intent.Currency,
	})
}

// verifyPaymentRequest accepts both plain names and the razorpay_* names the
// checkout widget posts.
type verifyPaymentRequest struct {
	OrderID           string `json:"orderId"`
	PaymentID         string `json:"paymentId"`
	Signature         string `json:"signature"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	FileID            string `json:"fileId"`
	UserID            string `json:"userId"`
}

func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := actingUser(c, req.UserID, h.requireSession)
	if err != nil {
		writeError(c, err)
		return
	}

	record, err := h.workflow.VerifyPayment(c.Request.Context(), service.VerifyPaymentInput{
		OrderID:   firstNonEmpty(req.OrderID, req.RazorpayOrderID),
		PaymentID: firstNonEmpty(req.PaymentID, req.RazorpayPaymentID),
		Signature: firstNonEmpty(req.Signature, req.RazorpaySignature),
		FileID:    req.FileID,
		UserID:    userID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Payment verified successfully",
		"paymentId": record.GatewayPaymentID,
	})
}

type saveClassificationRequest struct {
	FileID         string              `json:"fileId"`
	TumorType      models.TumorType    `json:"tumorType"`
	Confidence     float64             `json:"confidence"`
	AllPredictions []models.Prediction `json:"allPredictions"`
	PaymentID      string              `json:"paymentId"`
	Amount         flexInt             `json:"amount"`
	Age            flexInt             `json:"age"`
	Gender         string              `json:"gender"`
	UserID         string              `json:"userId"`
}

func (h *PaymentHandler) SaveClassification(c *gin.Context) {
	var req saveClassificationRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := actingUser(c, req.UserID, h.requireSession)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Amount.set {
		// The charge is read from the verified payment; the client figure is informational.
		telemetry.Logger.Debug("Ignoring client-supplied amount",
			zap.String("payment_id", req.PaymentID),
			zap.Int("amount", req.Amount.n),
		)
	}

	record, err := h.workflow.SaveClassification(c.Request.Context(), service.SaveClassificationInput{
		FileID:         req.FileID,
		UserID:         userID,
		PaymentID:      req.PaymentID,
		TumorType:      req.TumorType,
		Confidence:     req.Confidence,
		AllPredictions: req.AllPredictions,
		Age:            req.Age.ptr(),
		Gender:         optionalString(req.Gender),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"message":          "Classification saved successfully",
		"classificationId": record.ID,
		"fileId":           record.FileID,
		"tumorType":        record.TumorType,
		"confidence":       record.ConfidencePercentage,
	})
}
