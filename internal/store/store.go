// Package store persists batches, per-image analysis results, and duplicate
// groups. The orchestrator depends only on the RecordStore interface; every
// write except batch creation is treated as recoverable per item.
package store

import (
	"context"
	"errors"

	"go-photo-culler/pkg/models"
)

var (
	// ErrBatchNotFound indicates the batch record does not exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrImageNotFound indicates the image record does not exist.
	ErrImageNotFound = errors.New("image not found")

	// ErrGroupNotFound indicates the duplicate group does not exist.
	ErrGroupNotFound = errors.New("duplicate group not found")
)

// Counters is the running progress written back to a batch record.
type Counters struct {
	Processed int
	Accepted  int
	Rejected  int
	Review    int
}

// ImageResult is the payload for one successfully analyzed file.
type ImageResult struct {
	Filename    string
	FileSize    int64
	Metrics     *models.MetricResult
	Disposition models.Disposition
}

// AnalyticsSummary aggregates recent activity for reporting.
type AnalyticsSummary struct {
	Batches       []models.Batch `json:"batches"`
	TotalImages   int            `json:"total_images"`
	AvgOverall    float64        `json:"avg_overall_score"`
	Dispositions  map[string]int `json:"dispositions"`
	CommonIssues  map[string]int `json:"common_issues"`
}

// RecordStore is the durable record store behind the culling engine.
type RecordStore interface {
	// CreateBatch inserts a new batch record in "processing" status and
	// returns its identifier.
	CreateBatch(ctx context.Context, name string, total int) (int64, error)

	// InsertImageResult records one analyzed image and returns its identifier.
	InsertImageResult(ctx context.Context, batchID int64, res ImageResult) (int64, error)

	// InsertImageError records one failed item with its failure reason.
	InsertImageError(ctx context.Context, batchID int64, filename string, fileSize int64, reason string) (int64, error)

	// UpdateBatchCounters writes the running counters and status of a batch.
	UpdateBatchCounters(ctx context.Context, batchID int64, c Counters, status string) error

	// CreateDuplicateGroup persists one group and returns its identifier.
	CreateDuplicateGroup(ctx context.Context, batchID int64, memberIDs []int64, bestID int64, similarity float64) (int64, error)

	// LinkImagesToGroup stamps the group identifier onto its member images.
	LinkImagesToGroup(ctx context.Context, imageIDs []int64, groupID int64) error

	// Queries for the review workflow.
	GetBatch(ctx context.Context, batchID int64) (*models.Batch, error)
	ListBatches(ctx context.Context) ([]models.Batch, error)
	ListBatchImages(ctx context.Context, batchID int64, disposition models.Disposition) ([]models.ImageRecord, error)
	ListDuplicateGroups(ctx context.Context, batchID int64) ([]models.GroupRecord, error)
	ListGroupImages(ctx context.Context, groupID int64) ([]models.ImageRecord, error)
	GetGroup(ctx context.Context, groupID int64) (*models.GroupRecord, error)

	// Review mutations.
	UpdateImageDisposition(ctx context.Context, imageID int64, d models.Disposition) error
	BulkUpdateImageDisposition(ctx context.Context, imageIDs []int64, d models.Disposition) error
	SetGroupBestOverride(ctx context.Context, groupID, imageID int64) error
	DismissGroup(ctx context.Context, groupID int64) error
	DeleteBatch(ctx context.Context, batchID int64) error
	// AdjustBatchCounters applies review-workflow deltas to a batch's
	// disposition counters. The review counter never goes below zero.
	AdjustBatchCounters(ctx context.Context, batchID int64, deltaAccepted, deltaRejected, deltaReview int) error

	Analytics(ctx context.Context) (*AnalyticsSummary, error)

	Close() error
}
