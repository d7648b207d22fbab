package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	AnalysisStatusPending    = "pending"
	AnalysisStatusSucceeded  = "succeeded"
	AnalysisStatusFailed     = "failed"
	AnalysisStatusSuperseded = "superseded"
)

// Analysis is the persisted record of one submission. The ID is the
// controller's submission id; Result holds the collaborator's decoded
// response once the submission succeeds.
type Analysis struct {
	ID            uuid.UUID       `db:"id"             json:"id"`
	SessionID     string          `db:"session_id"     json:"session_id"`
	Seq           int64           `db:"seq"            json:"seq"`
	ImageURL      string          `db:"image_url"      json:"image_url"`
	Status        string          `db:"status"         json:"status"`
	FailureReason *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	ErrorMessage  *string         `db:"error_message"  json:"error_message,omitempty"`
	Result        json.RawMessage `db:"result"         json:"result,omitempty"`
	Warnings      []string        `db:"warnings"       json:"warnings,omitempty"`
	CreatedAt     time.Time       `db:"created_at"     json:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at"   json:"completed_at,omitempty"`
}
