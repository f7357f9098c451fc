package main

import (
	"encoding/json"
	"time"
)

// API request and response models

// PredictResponse is returned for a successful prediction
type PredictResponse struct {
	RequestID       string      `json:"request_id" example:"5b1d7c0e-0f59-4e0a-9d7e-2a3c1b9f0e11"`
	Premium         json.Number `json:"premium" example:"12650.00"`
	Segment         string      `json:"segment" example:"older"`
	ArtifactVersion string      `json:"artifact_version" example:"2025.06.1"`
	Clamped         bool        `json:"clamped,omitempty"`
	PredictionTime  string      `json:"prediction_time" example:"48.2µs"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error" example:"invalid input"`
	Field     string `json:"field,omitempty" example:"Age"`
	Details   string `json:"details,omitempty"`
}

// HealthResponse reports readiness
type HealthResponse struct {
	Status          string `json:"status" example:"healthy"`
	ArtifactVersion string `json:"artifact_version,omitempty"`
	Error           string `json:"error,omitempty"`
}

// SegmentInfo describes one loaded segment bundle
type SegmentInfo struct {
	Name       string `json:"name" example:"young"`
	Version    string `json:"version" example:"2025.06.1"`
	ModelKind  string `json:"model_kind" example:"linear"`
	ScalerKind string `json:"scaler_kind" example:"minmax"`
}

// ArtifactsResponse describes the loaded release
type ArtifactsResponse struct {
	Version       string        `json:"version" example:"2025.06.1"`
	AgeThreshold  int           `json:"age_threshold" example:"40"`
	SchemaVersion string        `json:"schema_version" example:"v1"`
	FeatureOrder  []string      `json:"feature_order"`
	Segments      []SegmentInfo `json:"segments"`
	LoadedAt      time.Time     `json:"loaded_at"`
}
