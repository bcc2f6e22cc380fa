package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tumortrace/classification-service/internal/models"
)

const maxUploadBytes = 10 << 20

type UploadHandler struct {
	images ImageWorkflow
}

func NewUploadHandler(images ImageWorkflow) *UploadHandler {
	return &UploadHandler{images: images}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		writeError(c, models.Validationf("no file provided"))
		return
	}
	if fh.Size > maxUploadBytes {
		writeError(c, models.Validationf("file exceeds %d MB", maxUploadBytes>>20))
		return
	}
	if ct := fh.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		writeError(c, models.Validationf("only image uploads are accepted"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	img, err := h.images.Upload(c.Request.Context(), userID, fh.Filename, f)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Image uploaded and registered successfully",
		"imageUrl":   img.URL,
		"fileId":     img.FileID,
		"uploadedAt": img.UploadedAt,
	})
}

type deleteImageRequest struct {
	FileID string `json:"fileId"`
}

func (h *UploadHandler) Delete(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	var req deleteImageRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.images.Remove(c.Request.Context(), userID, req.FileID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Image deleted successfully"})
}
