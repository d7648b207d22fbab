package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fashionvista/fashionvista/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid analysis status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateAnalysis(ctx context.Context, a *models.Analysis) error
	CompleteAnalysis(ctx context.Context, id uuid.UUID, status string, opts ...AnalysisUpdateOption) error
	GetAnalysis(ctx context.Context, id uuid.UUID) (*models.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]*models.Analysis, int, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

type AnalysisFilter struct {
	ImageURL  string
	SessionID string
	Status    string
	Page      int
	Limit     int
}

// AnalysisUpdate holds the optional columns written when an analysis settles.
type AnalysisUpdate struct {
	FailureReason *string
	ErrorMessage  *string
	Result        json.RawMessage
	Warnings      []string
}

type AnalysisUpdateOption func(*AnalysisUpdate)

// ApplyAnalysisUpdateOptions folds opts into an AnalysisUpdate.
func ApplyAnalysisUpdateOptions(opts ...AnalysisUpdateOption) *AnalysisUpdate {
	u := &AnalysisUpdate{}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// WithFailure records why a submission failed.
func WithFailure(reason, msg string) AnalysisUpdateOption {
	return func(p *AnalysisUpdate) {
		p.FailureReason = &reason
		p.ErrorMessage = &msg
	}
}

// WithResult stores the decoded collaborator response.
func WithResult(raw json.RawMessage) AnalysisUpdateOption {
	return func(p *AnalysisUpdate) {
		p.Result = raw
	}
}

func WithWarnings(warnings []string) AnalysisUpdateOption {
	return func(p *AnalysisUpdate) {
		p.Warnings = warnings
	}
}
