package interfaces

import (
	"context"

	"github.com/tumortrace/classification-service/internal/models"
)

// PaymentLedger defines the contract for durable payment intents and verified payments
type PaymentLedger interface {
	InsertIntent(ctx context.Context, intent *models.PaymentIntent) error
	GetIntent(ctx context.Context, orderID string) (*models.PaymentIntent, error)
	LatestIntentForFile(ctx context.Context, userID, fileID string) (*models.PaymentIntent, error)
	RecordVerifiedPayment(ctx context.Context, record *models.PaymentRecord) error
	GetByPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	LatestCompletedForFile(ctx context.Context, userID, fileID string) (*models.PaymentRecord, error)
}

// ClassificationLedger persists paid classifications. RecordClassification must
// only insert when the referenced payment is completed for the same user and file.
type ClassificationLedger interface {
	RecordClassification(ctx context.Context, record *models.ClassificationRecord) error
	ExistsForPayment(ctx context.Context, paymentID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.ClassificationRecord, error)
}

// ImageStore holds per-user image records addressed by (userID, fileID).
type ImageStore interface {
	AppendImage(ctx context.Context, userID, fileID, url string) (*models.ImageRecord, error)
	AttachAnalysis(ctx context.Context, userID, fileID string, prediction models.TumorPresence, metadata models.AnalysisMetadata) (*models.ImageRecord, error)
	AttachClassification(ctx context.Context, userID, fileID string, classification models.TumorClassification) (*models.ImageRecord, error)
	GetImage(ctx context.Context, userID, fileID string) (*models.ImageRecord, error)
	ListImages(ctx context.Context, userID string) ([]models.ImageRecord, error)
	RemoveImage(ctx context.Context, userID, fileID string) error
}

// UserRepository defines the contract for account data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	LinkGoogle(ctx context.Context, id, sub string) error
	Delete(ctx context.Context, id string) error
}
