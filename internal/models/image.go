package models

import "time"

type AnalysisState string

const (
	AnalysisPending  AnalysisState = "pending"
	AnalysisAnalyzed AnalysisState = "analyzed"
)

// TumorPresence is the free preliminary prediction produced by the ML service.
type TumorPresence struct {
	Result         string       `json:"result"`
	Confidence     float64      `json:"confidence"`
	AllPredictions []Prediction `json:"allPredictions"`
}

type AnalysisMetadata struct {
	Age        *int      `json:"age"`
	Gender     *string   `json:"gender"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

type TumorClassification struct {
	Type           TumorType    `json:"type"`
	Confidence     float64      `json:"confidence"`
	AllPredictions []Prediction `json:"allPredictions"`
	ClassifiedAt   time.Time    `json:"classifiedAt"`
}

type ImageRecord struct {
	UserID              string               `json:"-"`
	FileID              string               `json:"fileId"`
	URL                 string               `json:"url"`
	UploadedAt          time.Time            `json:"uploadedAt"`
	AnalysisState       AnalysisState        `json:"analysisState"`
	Prediction          *TumorPresence       `json:"prediction,omitempty"`
	Metadata            *AnalysisMetadata    `json:"metadata,omitempty"`
	TumorClassification *TumorClassification `json:"tumorClassification,omitempty"`
}

// StoredObject is what the object storage provider returns for an upload.
type StoredObject struct {
	FileID string `json:"fileId"`
	URL    string `json:"url"`
	Name   string `json:"name"`
}

// InferenceRequest is sent to the ML inference service.
type InferenceRequest struct {
	FileID   string `json:"fileId"`
	ImageURL string `json:"imageUrl"`
}
