package service

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tumortrace/classification-service/internal/interfaces"
	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

// ImageService manages uploaded scans and their free analysis results.
type ImageService struct {
	images    interfaces.ImageStore
	storage   interfaces.ObjectStorage
	inference interfaces.InferenceClient
	now       func() time.Time
}

func NewImageService(images interfaces.ImageStore, storage interfaces.ObjectStorage, inference interfaces.InferenceClient) *ImageService {
	return &ImageService{
		images:    images,
		storage:   storage,
		inference: inference,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the blob and registers it under the user. If the user is
// gone the image is left orphaned in storage and ErrNotFound is returned.
func (s *ImageService) Upload(ctx context.Context, userID, fileName string, content io.Reader) (*models.ImageRecord, error) {
	if fileName == "" {
		return nil, models.Validationf("no file provided")
	}

	obj, err := s.storage.Upload(ctx, fileName, content)
	if err != nil {
		return nil, err
	}

	img, err := s.images.AppendImage(ctx, userID, obj.FileID, obj.URL)
	if err != nil {
		telemetry.Logger.Error("Failed to register uploaded image",
			zap.String("user_id", userID),
			zap.String("file_id", obj.FileID),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.Logger.Info("Image uploaded",
		zap.String("user_id", userID),
		zap.String("file_id", img.FileID),
	)
	return img, nil
}

func (s *ImageService) Remove(ctx context.Context, userID, fileID string) error {
	if fileID == "" {
		return models.Validationf("fileId required")
	}
	return s.images.RemoveImage(ctx, userID, fileID)
}

type AnalysisInput struct {
	FileID     string
	Age        *int
	Gender     *string
	Prediction *models.TumorPresence
}

// SaveAnalysis attaches a prediction produced by the client-side ML call.
func (s *ImageService) SaveAnalysis(ctx context.Context, userID string, in AnalysisInput) (*models.ImageRecord, error) {
	if in.FileID == "" || in.Prediction == nil {
		return nil, models.Validationf("missing fileId or prediction data")
	}
	return s.attachAnalysis(ctx, userID, in.FileID, *in.Prediction, in.Age, in.Gender)
}

// Analyze runs inference for an uploaded image and attaches the result.
func (s *ImageService) Analyze(ctx context.Context, userID string, in AnalysisInput) (*models.ImageRecord, error) {
	if in.FileID == "" {
		return nil, models.Validationf("fileId is required")
	}

	img, err := s.images.GetImage(ctx, userID, in.FileID)
	if err != nil {
		return nil, err
	}

	prediction, err := s.inference.Predict(ctx, models.InferenceRequest{FileID: img.FileID, ImageURL: img.URL})
	if err != nil {
		return nil, err
	}
	return s.attachAnalysis(ctx, userID, in.FileID, *prediction, in.Age, in.Gender)
}

func (s *ImageService) attachAnalysis(ctx context.Context, userID, fileID string, p models.TumorPresence, age *int, gender *string) (*models.ImageRecord, error) {
	if p.Result == "" {
		p.Result = "Unknown"
	}
	if p.AllPredictions == nil {
		p.AllPredictions = []models.Prediction{}
	}
	meta := models.AnalysisMetadata{
		Age:        age,
		Gender:     gender,
		AnalyzedAt: s.now(),
	}
	img, err := s.images.AttachAnalysis(ctx, userID, fileID, p, meta)
	if err != nil {
		return nil, err
	}

	telemetry.Logger.Info("Analysis attached",
		zap.String("user_id", userID),
		zap.String("file_id", fileID),
		zap.String("result", p.Result),
	)
	return img, nil
}

type ImageClassificationInput struct {
	FileID         string
	TumorType      models.TumorType
	Confidence     float64
	AllPredictions []models.Prediction
}

// AttachClassification stores the free-tier classification on the image. It
// does not create a ledger entry.
func (s *ImageService) AttachClassification(ctx context.Context, userID string, in ImageClassificationInput) (*models.TumorClassification, error) {
	if in.FileID == "" || strings.TrimSpace(string(in.TumorType)) == "" {
		return nil, models.Validationf("missing fileId or tumorType data")
	}
	if !in.TumorType.Valid() {
		return nil, models.Validationf("tumorType must be %s or %s", models.TumorBenign, models.TumorMalignant)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, models.Validationf("confidence must be between 0 and 1")
	}

	classification := models.TumorClassification{
		Type:           in.TumorType,
		Confidence:     in.Confidence,
		AllPredictions: in.AllPredictions,
		ClassifiedAt:   s.now(),
	}
	img, err := s.images.AttachClassification(ctx, userID, in.FileID, classification)
	if err != nil {
		return nil, err
	}
	return img.TumorClassification, nil
}

func (s *ImageService) List(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	images, err := s.images.ListImages(ctx, userID)
	if err != nil {
		return nil, err
	}
	if images == nil {
		images = []models.ImageRecord{}
	}
	return images, nil
}
