package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{models.ErrValidation, http.StatusBadRequest},
	{models.ErrSignatureMismatch, http.StatusBadRequest},
	{models.ErrGateway, http.StatusBadGateway},
	{models.ErrDuplicatePayment, http.StatusConflict},
	{models.ErrDuplicateKey, http.StatusConflict},
	{models.ErrPaymentNotVerified, http.StatusPaymentRequired},
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrUnauthorized, http.StatusUnauthorized},
	{models.ErrForbidden, http.StatusForbidden},
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError renders err as a JSON failure. Unclassified errors are logged
// and replaced by a generic message.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"success": false, "message": err.Error()}

	switch status {
	case http.StatusInternalServerError:
		telemetry.Logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		body["message"] = "Internal server error"
	case http.StatusBadGateway:
		telemetry.Logger.Warn("Upstream call failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		body["retryable"] = true
	}
	c.JSON(status, body)
}

// bindJSON decodes the request body, writing a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		telemetry.Logger.Debug("Error decoding request body", zap.String("path", c.FullPath()), zap.Error(err))
		writeError(c, models.Validationf("invalid request body"))
		return false
	}
	return true
}
