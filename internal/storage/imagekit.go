// Package storage uploads images to ImageKit.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

type ImageKitStorage struct {
	privateKey string
	uploadURL  string
	folder     string
	client     *http.Client
}

func NewImageKitStorage(privateKey, uploadURL, folder string, timeout time.Duration) *ImageKitStorage {
	return &ImageKitStorage{
		privateKey: privateKey,
		uploadURL:  uploadURL,
		folder:     folder,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *ImageKitStorage) Upload(ctx context.Context, fileName string, content io.Reader) (*models.StoredObject, error) {
	start := time.Now()
	defer func() {
		telemetry.GatewayLatency.WithLabelValues("imagekit").Observe(time.Since(start).Seconds())
	}()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, err
	}
	for _, field := range [][2]string{
		{"fileName", fileName},
		{"folder", s.folder},
		{"useUniqueFileName", "true"},
	} {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, &buf)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.privateKey, "")
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: imagekit upload: %v", models.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: imagekit returned status %d", models.ErrGateway, resp.StatusCode)
	}

	var obj models.StoredObject
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: decode imagekit response: %v", models.ErrGateway, err)
	}
	if obj.FileID == "" || obj.URL == "" {
		return nil, fmt.Errorf("%w: imagekit response missing fileId or url", models.ErrGateway)
	}
	return &obj, nil
}
