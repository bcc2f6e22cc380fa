package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tumortrace/classification-service/internal/models"
)

var errMockStore = errors.New("mock store error")

// memoryPayments is an in-memory PaymentLedger with the same uniqueness rules
// as the Postgres tables.
type memoryPayments struct {
	mu       sync.Mutex
	intents  map[string]models.PaymentIntent
	payments map[string]models.PaymentRecord
	nextID   int64

	InsertIntentErr error
}

func newMemoryPayments() *memoryPayments {
	return &memoryPayments{
		intents:  make(map[string]models.PaymentIntent),
		payments: make(map[string]models.PaymentRecord),
	}
}

func (m *memoryPayments) InsertIntent(ctx context.Context, intent *models.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertIntentErr != nil {
		return m.InsertIntentErr
	}
	if _, ok := m.intents[intent.GatewayOrderID]; ok {
		return models.ErrDuplicateKey
	}
	m.intents[intent.GatewayOrderID] = *intent
	return nil
}

func (m *memoryPayments) GetIntent(ctx context.Context, orderID string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &intent, nil
}

func (m *memoryPayments) LatestIntentForFile(ctx context.Context, userID, fileID string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.PaymentIntent
	for _, intent := range m.intents {
		if intent.FileID != fileID || intent.UserID != userID {
			continue
		}
		if latest == nil || intent.CreatedAt.After(latest.CreatedAt) {
			i := intent
			latest = &i
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest, nil
}

func (m *memoryPayments) RecordVerifiedPayment(ctx context.Context, record *models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.GatewayPaymentID == record.GatewayPaymentID || p.GatewayOrderID == record.GatewayOrderID {
			return fmt.Errorf("%w: %s", models.ErrDuplicatePayment, record.GatewayPaymentID)
		}
	}
	m.nextID++
	record.ID = m.nextID
	m.payments[record.GatewayPaymentID] = *record
	return nil
}

func (m *memoryPayments) GetByPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (m *memoryPayments) LatestCompletedForFile(ctx context.Context, userID, fileID string) (*models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.PaymentRecord
	for _, p := range m.payments {
		if p.UserID != userID || p.FileID != fileID || p.Status != models.PaymentCompleted {
			continue
		}
		if latest == nil || p.CompletedAt.After(*latest.CompletedAt) {
			rec := p
			latest = &rec
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest, nil
}

func (m *memoryPayments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

// memoryClassifications applies the completed-payment gate against the
// payments it is linked to.
type memoryClassifications struct {
	mu       sync.Mutex
	payments *memoryPayments
	records  []models.ClassificationRecord
}

func (m *memoryClassifications) RecordClassification(ctx context.Context, c *models.ClassificationRecord) error {
	p, err := m.payments.GetByPaymentID(ctx, c.PaymentID)
	if err != nil || p.Status != models.PaymentCompleted || p.UserID != c.UserID || p.FileID != c.FileID {
		return fmt.Errorf("%w: %s", models.ErrPaymentNotVerified, c.PaymentID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.PaymentID == c.PaymentID {
			return fmt.Errorf("%w: classifications_payment_id_key", models.ErrDuplicateKey)
		}
	}
	c.AmountCharged = p.Amount
	c.Currency = p.Currency
	m.records = append(m.records, *c)
	return nil
}

func (m *memoryClassifications) ExistsForPayment(ctx context.Context, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.records {
		if c.PaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryClassifications) ListByUser(ctx context.Context, userID string) ([]models.ClassificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ClassificationRecord
	for _, c := range m.records {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryClassifications) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// memoryImages keys images by (user, file) the way the images table does.
type memoryImages struct {
	mu     sync.Mutex
	users  map[string]bool
	images map[[2]string]models.ImageRecord
}

func newMemoryImages(users ...string) *memoryImages {
	m := &memoryImages{users: make(map[string]bool), images: make(map[[2]string]models.ImageRecord)}
	for _, u := range users {
		m.users[u] = true
	}
	return m
}

func (m *memoryImages) AppendImage(ctx context.Context, userID, fileID, url string) (*models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.users[userID] {
		return nil, models.ErrNotFound
	}
	key := [2]string{userID, fileID}
	if _, ok := m.images[key]; ok {
		return nil, models.ErrDuplicateKey
	}
	img := models.ImageRecord{
		UserID:        userID,
		FileID:        fileID,
		URL:           url,
		UploadedAt:    time.Now().UTC(),
		AnalysisState: models.AnalysisPending,
	}
	m.images[key] = img
	return &img, nil
}

func (m *memoryImages) AttachAnalysis(ctx context.Context, userID, fileID string, prediction models.TumorPresence, metadata models.AnalysisMetadata) (*models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{userID, fileID}
	img, ok := m.images[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	img.Prediction = &prediction
	img.Metadata = &metadata
	img.AnalysisState = models.AnalysisAnalyzed
	m.images[key] = img
	return &img, nil
}

func (m *memoryImages) AttachClassification(ctx context.Context, userID, fileID string, classification models.TumorClassification) (*models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{userID, fileID}
	img, ok := m.images[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	img.TumorClassification = &classification
	m.images[key] = img
	return &img, nil
}

func (m *memoryImages) GetImage(ctx context.Context, userID, fileID string) (*models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[[2]string{userID, fileID}]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &img, nil
}

func (m *memoryImages) ListImages(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ImageRecord
	for key, img := range m.images {
		if key[0] == userID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *memoryImages) RemoveImage(ctx context.Context, userID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{userID, fileID}
	if _, ok := m.images[key]; !ok {
		return models.ErrNotFound
	}
	delete(m.images, key)
	return nil
}

// memoryUsers is an in-memory UserRepository with unique email and sub.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]models.User)}
}

func (m *memoryUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return fmt.Errorf("%w: users_email_key", models.ErrDuplicateKey)
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.ID == id })
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *memoryUsers) GetByGoogleSub(ctx context.Context, sub string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.GoogleSub != nil && *u.GoogleSub == sub })
}

func (m *memoryUsers) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return models.ErrNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) LinkGoogle(ctx context.Context, id, sub string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.GoogleSub = &sub
	m.users[id] = u
	return nil
}

func (m *memoryUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// MockGateway implements PaymentGateway for testing
type MockGateway struct {
	CreateOrderFunc func(ctx context.Context, req models.GatewayOrderRequest) (*models.GatewayOrder, error)
	LastRequest     models.GatewayOrderRequest
}

func (m *MockGateway) CreateOrder(ctx context.Context, req models.GatewayOrderRequest) (*models.GatewayOrder, error) {
	m.LastRequest = req
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return &models.GatewayOrder{ID: "order_1", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

// MockLocker implements Locker for testing
type MockLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	Err      error
	Released []string
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if m.held == nil {
		m.held = make(map[string]bool)
	}
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *MockLocker) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	m.Released = append(m.Released, key)
	return nil
}

// MockPublisher implements EventPublisher for testing
type MockPublisher struct {
	mu     sync.Mutex
	Events []models.WorkflowStateChanged
	Err    error
	// CtxErrs records ctx.Err() as seen by each Publish call.
	CtxErrs []error
}

func (m *MockPublisher) Publish(ctx context.Context, event models.WorkflowStateChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CtxErrs = append(m.CtxErrs, ctx.Err())
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) states() []models.WorkflowState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.WorkflowState, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.State
	}
	return out
}

// MockStorage implements ObjectStorage for testing
type MockStorage struct {
	UploadFunc func(ctx context.Context, fileName string, content io.Reader) (*models.StoredObject, error)
}

func (m *MockStorage) Upload(ctx context.Context, fileName string, content io.Reader) (*models.StoredObject, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, fileName, content)
	}
	return &models.StoredObject{FileID: "file_" + fileName, URL: "https://ik.imagekit.io/xray-scans/" + fileName, Name: fileName}, nil
}

// MockInference implements InferenceClient for testing
type MockInference struct {
	PredictFunc func(ctx context.Context, req models.InferenceRequest) (*models.TumorPresence, error)
}

func (m *MockInference) Predict(ctx context.Context, req models.InferenceRequest) (*models.TumorPresence, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, req)
	}
	return &models.TumorPresence{Result: "Tumor", Confidence: 0.88}, nil
}

// MockTokens issues predictable tokens.
type MockTokens struct{}

func (MockTokens) Issue(userID string) (string, error) {
	return "token-" + userID, nil
}
