package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProtocolRun represents one pipeline run for data transfer between layers.
type ProtocolRun struct {
	ID           uuid.UUID       `json:"id"`
	SourcePath   string          `json:"source_path"`
	ContentHash  string          `json:"content_hash"`
	Format       string          `json:"format"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	ChunkCount   int             `json:"chunk_count"`
	TextChars    int             `json:"text_chars"`
	NeedsReview  bool            `json:"needs_review"`
	ReviewNotes  []string        `json:"review_notes,omitempty"`
	RecordJSON   json.RawMessage `json:"record_json,omitempty"`
	XML          *string         `json:"xml,omitempty"`
	ModelName    *string         `json:"model_name,omitempty"`
}
