package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PaymentStateHandler serves read-only views of a user's payments.
type PaymentStateHandler struct {
	workflow PaymentWorkflow
}

func NewPaymentStateHandler(workflow PaymentWorkflow) *PaymentStateHandler {
	return &PaymentStateHandler{workflow: workflow}
}

func (h *PaymentStateHandler) GetPaymentState(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	fileID := c.Param("fileId")

	state, err := h.workflow.WorkflowState(c.Request.Context(), userID, fileID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"fileId":  fileID,
		"state":   state,
	})
}

func (h *PaymentStateHandler) GetPayment(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}

	payment, err := h.workflow.GetPayment(c.Request.Context(), userID, c.Param("paymentId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": payment})
}

func (h *PaymentStateHandler) ListClassifications(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}

	records, err := h.workflow.ListClassifications(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "classifications": records})
}
