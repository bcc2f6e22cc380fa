package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) PRIMARY KEY,
		username VARCHAR(255) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		age INTEGER NOT NULL DEFAULT 0,
		google_sub VARCHAR(255) UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS images (
		user_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		file_id VARCHAR(255) NOT NULL,
		url TEXT NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		analysis_state VARCHAR(20) NOT NULL DEFAULT 'pending'
			CHECK (analysis_state IN ('pending', 'analyzed')),
		prediction JSONB,
		metadata JSONB,
		tumor_classification JSONB,
		PRIMARY KEY (user_id, file_id)
	)`,
	`CREATE TABLE IF NOT EXISTS payment_intents (
		gateway_order_id VARCHAR(255) PRIMARY KEY,
		amount BIGINT NOT NULL CHECK (amount > 0),
		currency VARCHAR(3) NOT NULL,
		user_id VARCHAR(64),
		file_id VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_intents_file ON payment_intents(file_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		file_id VARCHAR(255) NOT NULL,
		gateway_order_id VARCHAR(255) NOT NULL UNIQUE,
		gateway_payment_id VARCHAR(255) NOT NULL UNIQUE,
		signature VARCHAR(128) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'completed', 'failed', 'refunded')),
		amount BIGINT NOT NULL,
		currency VARCHAR(3) NOT NULL,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_file ON payments(file_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS classifications (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		file_id VARCHAR(255) NOT NULL,
		payment_id VARCHAR(255) NOT NULL UNIQUE REFERENCES payments(gateway_payment_id),
		tumor_type VARCHAR(20) NOT NULL CHECK (tumor_type IN ('Benign', 'Malignant')),
		confidence DOUBLE PRECISION NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
		confidence_percentage DOUBLE PRECISION NOT NULL,
		all_predictions JSONB NOT NULL DEFAULT '[]',
		top_prediction JSONB,
		age INTEGER CHECK (age >= 0 AND age <= 150),
		gender VARCHAR(10),
		amount_charged BIGINT NOT NULL,
		currency VARCHAR(3) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'completed'
			CHECK (status IN ('completed', 'archived', 'disputed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classifications_user ON classifications(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_classifications_file ON classifications(file_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_classifications_tumor ON classifications(tumor_type, created_at DESC)`,
}

// InitDB creates the tables and indexes the ledgers rely on. The unique
// constraints on payments are what make payment recording idempotent.
func InitDB(ctx context.Context, db *sql.DB) error {
	for _, query := range schema {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
