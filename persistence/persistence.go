// Package persistence declares the CRM data collaborators the job
// processors depend on. The postgres subpackage implements them.
package persistence

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownTable is returned for tables outside the allowlist.
var ErrUnknownTable = errors.New("persistence: table not allowed")

// ErrInvalidFilter is returned for filters on unsafe column names.
var ErrInvalidFilter = errors.New("persistence: invalid filter")

// Cleaner deletes aged rows.
type Cleaner interface {
	// DeleteOlderThan deletes rows of table created before cutoff and
	// returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) (int64, error)
}

// Exporter reads entity rows and stores export artifacts.
type Exporter interface {
	FetchRows(ctx context.Context, entity string, filters map[string]any) ([]map[string]any, error)
	SaveExport(ctx context.Context, artifact ExportArtifact) (string, error)
}

// ExportArtifact is an encoded export ready to be stored.
type ExportArtifact struct {
	Entity      string
	Format      string
	ContentType string
	Data        []byte
	RowCount    int
	RequestedBy string
	Filters     map[string]any
}

// CampaignRecorder records the outcome of a bulk dispatch against a
// campaign.
type CampaignRecorder interface {
	RecordDispatch(ctx context.Context, campaignID string, sent, failed int) error
}
