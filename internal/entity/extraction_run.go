package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionRun represents a ledger row for data transfer between layers.
type ExtractionRun struct {
	ID               uuid.UUID  `json:"id"`
	SourceFileName   string     `json:"source_file_name"`
	ContentHash      string     `json:"content_hash"`
	Status           string     `json:"status"`
	Provider         *string    `json:"provider,omitempty"`
	Model            *string    `json:"model,omitempty"`
	Confidence       *float64   `json:"confidence,omitempty"`
	NeedsReview      bool       `json:"needs_review"`
	Warnings         []string   `json:"warnings,omitempty"`
	MeasurementCount int        `json:"measurement_count"`
	TestDate         *string    `json:"test_date,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}
