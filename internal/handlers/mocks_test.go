package handlers

import (
	"context"
	"io"

	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/service"
)

// MockWorkflow implements PaymentWorkflow for testing
type MockWorkflow struct {
	CreateOrderFunc         func(ctx context.Context, in service.CreateOrderInput) (*models.PaymentIntent, error)
	VerifyPaymentFunc       func(ctx context.Context, in service.VerifyPaymentInput) (*models.PaymentRecord, error)
	SaveClassificationFunc  func(ctx context.Context, in service.SaveClassificationInput) (*models.ClassificationRecord, error)
	WorkflowStateFunc       func(ctx context.Context, userID, fileID string) (models.WorkflowState, error)
	GetPaymentFunc          func(ctx context.Context, userID, paymentID string) (*models.PaymentRecord, error)
	ListClassificationsFunc func(ctx context.Context, userID string) ([]models.ClassificationRecord, error)
}

func (m *MockWorkflow) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*models.PaymentIntent, error) {
	return m.CreateOrderFunc(ctx, in)
}

func (m *MockWorkflow) VerifyPayment(ctx context.Context, in service.VerifyPaymentInput) (*models.PaymentRecord, error) {
	return m.VerifyPaymentFunc(ctx, in)
}

func (m *MockWorkflow) SaveClassification(ctx context.Context, in service.SaveClassificationInput) (*models.ClassificationRecord, error) {
	return m.SaveClassificationFunc(ctx, in)
}

func (m *MockWorkflow) WorkflowState(ctx context.Context, userID, fileID string) (models.WorkflowState, error) {
	return m.WorkflowStateFunc(ctx, userID, fileID)
}

func (m *MockWorkflow) GetPayment(ctx context.Context, userID, paymentID string) (*models.PaymentRecord, error) {
	return m.GetPaymentFunc(ctx, userID, paymentID)
}

func (m *MockWorkflow) ListClassifications(ctx context.Context, userID string) ([]models.ClassificationRecord, error) {
	return m.ListClassificationsFunc(ctx, userID)
}

// MockImages implements ImageWorkflow for testing
type MockImages struct {
	UploadFunc               func(ctx context.Context, userID, fileName string, content io.Reader) (*models.ImageRecord, error)
	RemoveFunc               func(ctx context.Context, userID, fileID string) error
	SaveAnalysisFunc         func(ctx context.Context, userID string, in service.AnalysisInput) (*models.ImageRecord, error)
	AnalyzeFunc              func(ctx context.Context, userID string, in service.AnalysisInput) (*models.ImageRecord, error)
	AttachClassificationFunc func(ctx context.Context, userID string, in service.ImageClassificationInput) (*models.TumorClassification, error)
}

func (m *MockImages) Upload(ctx context.Context, userID, fileName string, content io.Reader) (*models.ImageRecord, error) {
	return m.UploadFunc(ctx, userID, fileName, content)
}

func (m *MockImages) Remove(ctx context.Context, userID, fileID string) error {
	return m.RemoveFunc(ctx, userID, fileID)
}

func (m *MockImages) SaveAnalysis(ctx context.Context, userID string, in service.AnalysisInput) (*models.ImageRecord, error) {
	return m.SaveAnalysisFunc(ctx, userID, in)
}

func (m *MockImages) Analyze(ctx context.Context, userID string, in service.AnalysisInput) (*models.ImageRecord, error) {
	return m.AnalyzeFunc(ctx, userID, in)
}

func (m *MockImages) AttachClassification(ctx context.Context, userID string, in service.ImageClassificationInput) (*models.TumorClassification, error) {
	return m.AttachClassificationFunc(ctx, userID, in)
}

// MockAccounts implements AccountManager for testing
type MockAccounts struct {
	RegisterFunc     func(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	LoginFunc        func(ctx context.Context, email, password string) (*service.Session, error)
	CurrentFunc      func(ctx context.Context, userID string) (*models.User, error)
	UpdateFunc       func(ctx context.Context, userID string, in service.UpdateInput) (*models.User, error)
	DeleteFunc       func(ctx context.Context, userID string) error
	GoogleSignInFunc func(ctx context.Context, identity *auth.GoogleIdentity) (*service.Session, error)
}

func (m *MockAccounts) Register(ctx context.Context, in service.RegisterInput) (*service.Session, error) {
	return m.RegisterFunc(ctx, in)
}

func (m *MockAccounts) Login(ctx context.Context, email, password string) (*service.Session, error) {
	return m.LoginFunc(ctx, email, password)
}

func (m *MockAccounts) Current(ctx context.Context, userID string) (*models.User, error) {
	return m.CurrentFunc(ctx, userID)
}

func (m *MockAccounts) Update(ctx context.Context, userID string, in service.UpdateInput) (*models.User, error) {
	return m.UpdateFunc(ctx, userID, in)
}

func (m *MockAccounts) Delete(ctx context.Context, userID string) error {
	return m.DeleteFunc(ctx, userID)
}

func (m *MockAccounts) GoogleSignIn(ctx context.Context, identity *auth.GoogleIdentity) (*service.Session, error) {
	return m.GoogleSignInFunc(ctx, identity)
}

// MockGoogle implements GoogleAuthenticator for testing
type MockGoogle struct {
	Disabled     bool
	ExchangeFunc func(ctx context.Context, code string) (*auth.GoogleIdentity, error)
}

func (m *MockGoogle) Enabled() bool { return !m.Disabled }

func (m *MockGoogle) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *MockGoogle) Exchange(ctx context.Context, code string) (*auth.GoogleIdentity, error) {
	return m.ExchangeFunc(ctx, code)
}
