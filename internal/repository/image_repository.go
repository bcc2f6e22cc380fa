package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tumortrace/classification-service/internal/models"
)

const imageColumns = `file_id, url, uploaded_at, analysis_state, prediction, metadata, tumor_classification`

// ImageRepository stores one row per (user, file). Updates address a single
// row, so concurrent writes for different files of the same user never touch
// each other's fields.
type ImageRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewImageRepository(db *sql.DB, timeout time.Duration) *ImageRepository {
	return &ImageRepository{db: db, timeout: timeout}
}

// AppendImage registers an uploaded image. It returns ErrNotFound when the
// user does not exist and ErrDuplicateKey when the file id is already taken.
func (r *ImageRepository) AppendImage(ctx context.Context, userID, fileID, url string) (*models.ImageRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO images (user_id, file_id, url, uploaded_at, analysis_state)
		SELECT u.id, $2::varchar, $3::text, $4::timestamptz, 'pending'
		FROM users u WHERE u.id = $1
		RETURNING `+imageColumns,
		userID, fileID, url, time.Now().UTC(),
	)
	return scanImage(userID, row)
}

func (r *ImageRepository) AttachAnalysis(ctx context.Context, userID, fileID string, prediction models.TumorPresence, metadata models.AnalysisMetadata) (*models.ImageRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if prediction.AllPredictions == nil {
		prediction.AllPredictions = []models.Prediction{}
	}
	predJSON, err := jsonParam(prediction)
	if err != nil {
		return nil, err
	}
	metaJSON, err := jsonParam(metadata)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE images
		SET prediction = $3::jsonb, metadata = $4::jsonb, analysis_state = 'analyzed'
		WHERE user_id = $1 AND file_id = $2
		RETURNING `+imageColumns,
		userID, fileID, predJSON, metaJSON,
	)
	return scanImage(userID, row)
}

func (r *ImageRepository) AttachClassification(ctx context.Context, userID, fileID string, classification models.TumorClassification) (*models.ImageRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if classification.AllPredictions == nil {
		classification.AllPredictions = []models.Prediction{}
	}
	clsJSON, err := jsonParam(classification)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE images
		SET tumor_classification = $3::jsonb
		WHERE user_id = $1 AND file_id = $2
		RETURNING `+imageColumns,
		userID, fileID, clsJSON,
	)
	return scanImage(userID, row)
}

func (r *ImageRepository) GetImage(ctx context.Context, userID, fileID string) (*models.ImageRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE user_id = $1 AND file_id = $2`, userID, fileID)
	return scanImage(userID, row)
}

func (r *ImageRepository) ListImages(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE user_id = $1 ORDER BY uploaded_at ASC`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []models.ImageRecord
	for rows.Next() {
		img, err := scanImage(userID, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *img)
	}
	return out, rows.Err()
}

func (r *ImageRepository) RemoveImage(ctx context.Context, userID, fileID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE user_id = $1 AND file_id = $2`, userID, fileID)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(userID string, row scanner) (*models.ImageRecord, error) {
	var (
		img                  models.ImageRecord
		pred, meta, classify []byte
	)
	err := row.Scan(&img.FileID, &img.URL, &img.UploadedAt, &img.AnalysisState, &pred, &meta, &classify)
	if err != nil {
		return nil, translate(err)
	}
	img.UserID = userID
	if img.Prediction, err = decodeJSON[models.TumorPresence](pred); err != nil {
		return nil, err
	}
	if img.Metadata, err = decodeJSON[models.AnalysisMetadata](meta); err != nil {
		return nil, err
	}
	if img.TumorClassification, err = decodeJSON[models.TumorClassification](classify); err != nil {
		return nil, err
	}
	return &img, nil
}
