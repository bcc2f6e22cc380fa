package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/service"
)

// ImageWorkflow is the part of the image service used by the upload and ML
// routes.
type ImageWorkflow interface {
	Upload(ctx context.Context, userID, fileName string, content io.Reader) (*models.ImageRecord, error)
	Remove(ctx context.Context, userID, fileID string) error
	SaveAnalysis(ctx context.Context, userID string, in service.AnalysisInput) (*models.ImageRecord, error)
	Analyze(ctx context.Context, userID string, in service.AnalysisInput) (*models.ImageRecord, error)
	AttachClassification(ctx context.Context, userID string, in service.ImageClassificationInput) (*models.TumorClassification, error)
}

type MLHandler struct {
	images ImageWorkflow
}

func NewMLHandler(images ImageWorkflow) *MLHandler {
	return &MLHandler{images: images}
}

type mlResultRequest struct {
	FileID     string                `json:"fileId"`
	Age        flexInt               `json:"age"`
	Gender     string                `json:"gender"`
	ImageURL   string                `json:"imageUrl"`
	Prediction *models.TumorPresence `json:"prediction"`
}

func (h *MLHandler) SaveResult(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	var req mlResultRequest
	if !bindJSON(c, &req) {
		return
	}

	img, err := h.images.SaveAnalysis(c.Request.Context(), userID, service.AnalysisInput{
		FileID:     req.FileID,
		Age:        req.Age.ptr(),
		Gender:     optionalString(req.Gender),
		Prediction: req.Prediction,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeAnalysis(c, img)
}

type analyzeRequest struct {
	FileID string  `json:"fileId"`
	Age    flexInt `json:"age"`
	Gender string  `json:"gender"`
}

func (h *MLHandler) Analyze(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	var req analyzeRequest
	if !bindJSON(c, &req) {
		return
	}

	img, err := h.images.Analyze(c.Request.Context(), userID, service.AnalysisInput{
		FileID: req.FileID,
		Age:    req.Age.ptr(),
		Gender: optionalString(req.Gender),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeAnalysis(c, img)
}

func writeAnalysis(c *gin.Context, img *models.ImageRecord) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "ML analysis saved successfully",
		"fileId":     img.FileID,
		"prediction": img.Prediction,
		"metadata":   img.Metadata,
	})
}

type classificationRequest struct {
	FileID         string              `json:"fileId"`
	TumorType      models.TumorType    `json:"tumorType"`
	Confidence     float64             `json:"confidence"`
	AllPredictions []models.Prediction `json:"allPredictions"`
}

func (h *MLHandler) SaveClassification(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	var req classificationRequest
	if !bindJSON(c, &req) {
		return
	}

	classification, err := h.images.AttachClassification(c.Request.Context(), userID, service.ImageClassificationInput{
		FileID:         req.FileID,
		TumorType:      req.TumorType,
		Confidence:     req.Confidence,
		AllPredictions: req.AllPredictions,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"message":             "Tumor classification saved successfully",
		"tumorClassification": classification,
	})
}
