package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tumortrace/classification-service/internal/models"
)

type ClassificationRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewClassificationRepository(db *sql.DB, timeout time.Duration) *ClassificationRepository {
	return &ClassificationRepository{db: db, timeout: timeout}
}

// RecordClassification appends a classification in a single statement that
// selects from the completed payment it references. When no completed payment
// matches the payment id, user and file, nothing is written and
// ErrPaymentNotVerified is returned. The amount charged is taken from the
// payment row, not from the caller.
func (r *ClassificationRepository) RecordClassification(ctx context.Context, c *models.ClassificationRecord) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	preds := c.AllPredictions
	if preds == nil {
		preds = []models.Prediction{}
	}
	allPredictions, err := jsonParam(preds)
	if err != nil {
		return err
	}
	var top any
	if c.TopPrediction != nil {
		if top, err = jsonParam(c.TopPrediction); err != nil {
			return err
		}
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO classifications (id, user_id, file_id, payment_id, tumor_type, confidence,
			confidence_percentage, all_predictions, top_prediction, age, gender,
			amount_charged, currency, status, created_at)
		SELECT $1::varchar, p.user_id, p.file_id, p.gateway_payment_id, $5::varchar, $6::double precision,
			$7::double precision, $8::jsonb, $9::jsonb, $10::integer, $11::varchar,
			p.amount, p.currency, $12::varchar, $13::timestamptz
		FROM payments p
		WHERE p.gateway_payment_id = $4 AND p.status = 'completed' AND p.user_id = $2 AND p.file_id = $3
		RETURNING amount_charged, currency
	`, c.ID, c.UserID, c.FileID, c.PaymentID, c.TumorType, c.Confidence,
		c.ConfidencePercentage, allPredictions, top, c.Age, c.Gender,
		c.Status, c.CreatedAt,
	).Scan(&c.AmountCharged, &c.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrPaymentNotVerified, c.PaymentID)
	}
	return translate(err)
}

func (r *ClassificationRepository) ExistsForPayment(ctx context.Context, paymentID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM classifications WHERE payment_id = $1)`, paymentID,
	).Scan(&exists)
	return exists, translate(err)
}

func (r *ClassificationRepository) ListByUser(ctx context.Context, userID string) ([]models.ClassificationRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, file_id, payment_id, tumor_type, confidence, confidence_percentage,
			all_predictions, top_prediction, age, gender, amount_charged, currency, status, created_at
		FROM classifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []models.ClassificationRecord
	for rows.Next() {
		var (
			c        models.ClassificationRecord
			all, top []byte
			age      sql.NullInt64
			gender   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.FileID, &c.PaymentID, &c.TumorType, &c.Confidence,
			&c.ConfidencePercentage, &all, &top, &age, &gender, &c.AmountCharged, &c.Currency,
			&c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		preds, err := decodeJSON[[]models.Prediction](all)
		if err != nil {
			return nil, err
		}
		if preds != nil {
			c.AllPredictions = *preds
		}
		if c.TopPrediction, err = decodeJSON[models.Prediction](top); err != nil {
			return nil, err
		}
		if age.Valid {
			v := int(age.Int64)
			c.Age = &v
		}
		if gender.Valid {
			c.Gender = &gender.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
