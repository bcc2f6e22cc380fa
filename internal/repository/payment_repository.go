package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tumortrace/classification-service/internal/models"
)

type PaymentRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPaymentRepository(db *sql.DB, timeout time.Duration) *PaymentRepository {
	return &PaymentRepository{db: db, timeout: timeout}
}

func (r *PaymentRepository) InsertIntent(ctx context.Context, intent *models.PaymentIntent) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_intents (gateway_order_id, amount, currency, user_id, file_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
	`, intent.GatewayOrderID, intent.AmountMinorUnits, intent.Currency, intent.UserID, intent.FileID, intent.CreatedAt)
	return translate(err)
}

func (r *PaymentRepository) GetIntent(ctx context.Context, orderID string) (*models.PaymentIntent, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT gateway_order_id, amount, currency, COALESCE(user_id, ''), COALESCE(file_id, ''), created_at
		FROM payment_intents WHERE gateway_order_id = $1
	`, orderID)
	return scanIntent(row)
}

// LatestIntentForFile returns the newest order the user created for the file.
// Orders minted without a known payer never affect another user's state.
func (r *PaymentRepository) LatestIntentForFile(ctx context.Context, userID, fileID string) (*models.PaymentIntent, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT gateway_order_id, amount, currency, COALESCE(user_id, ''), COALESCE(file_id, ''), created_at
		FROM payment_intents
		WHERE file_id = $2 AND user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, fileID)
	return scanIntent(row)
}

// RecordVerifiedPayment inserts a payment whose signature has already been
// verified. A second insert for the same gateway order or payment id affects
// no rows and yields ErrDuplicatePayment; the stored row is left untouched.
func (r *PaymentRepository) RecordVerifiedPayment(ctx context.Context, record *models.PaymentRecord) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments (user_id, file_id, gateway_order_id, gateway_payment_id, signature,
			status, amount, currency, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, record.UserID, record.FileID, record.GatewayOrderID, record.GatewayPaymentID, record.Signature,
		record.Status, record.Amount, record.Currency, record.CompletedAt, record.CreatedAt,
	).Scan(&record.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrDuplicatePayment, record.GatewayPaymentID)
	}
	return translate(err)
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, file_id, gateway_order_id, gateway_payment_id, signature,
			status, amount, currency, completed_at, created_at
		FROM payments WHERE gateway_payment_id = $1
	`, paymentID)
	return scanPayment(row)
}

func (r *PaymentRepository) LatestCompletedForFile(ctx context.Context, userID, fileID string) (*models.PaymentRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, file_id, gateway_order_id, gateway_payment_id, signature,
			status, amount, currency, completed_at, created_at
		FROM payments
		WHERE user_id = $1 AND file_id = $2 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1
	`, userID, fileID)
	return scanPayment(row)
}

func scanIntent(row *sql.Row) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := row.Scan(&intent.GatewayOrderID, &intent.AmountMinorUnits, &intent.Currency,
		&intent.UserID, &intent.FileID, &intent.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &intent, nil
}

func scanPayment(row *sql.Row) (*models.PaymentRecord, error) {
	var (
		p         models.PaymentRecord
		completed sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.FileID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.Signature,
		&p.Status, &p.Amount, &p.Currency, &completed, &p.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if completed.Valid {
		p.CompletedAt = &completed.Time
	}
	return &p, nil
}
