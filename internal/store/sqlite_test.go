package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-photo-culler/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertResult(t *testing.T, s *SQLiteStore, batchID int64, name string, overall float64, d models.Disposition) int64 {
	t.Helper()
	id, err := s.InsertImageResult(context.Background(), batchID, ImageResult{
		Filename: name,
		FileSize: 1024,
		Metrics: &models.MetricResult{
			Sharpness:   overall,
			Exposure:    overall,
			Contrast:    overall,
			Overall:     overall,
			Fingerprint: "a1b2c3d4e5f60718",
			Issues:      []string{},
			Width:       1920,
			Height:      1080,
		},
		Disposition: d,
	})
	require.NoError(t, err)
	return id
}

func TestCreateAndGetBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateBatch(ctx, "wedding shoot", 42)
	require.NoError(t, err)

	b, err := s.GetBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "wedding shoot", b.Name)
	assert.Equal(t, 42, b.Total)
	assert.Equal(t, "processing", b.Status)
	assert.Zero(t, b.Processed)
}

func TestGetBatchNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBatch(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestInsertAndListImages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 3)
	require.NoError(t, err)

	insertResult(t, s, batchID, "low.jpg", 40, models.DispositionRejected)
	insertResult(t, s, batchID, "high.jpg", 90, models.DispositionAccepted)
	_, err = s.InsertImageError(ctx, batchID, "broken.jpg", 512, "unsupported format")
	require.NoError(t, err)

	images, err := s.ListBatchImages(ctx, batchID, "")
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, "high.jpg", images[0].Filename)

	accepted, err := s.ListBatchImages(ctx, batchID, models.DispositionAccepted)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, 90.0, accepted[0].Overall)
	assert.Equal(t, "a1b2c3d4e5f60718", accepted[0].Fingerprint)
	assert.Equal(t, 1920, accepted[0].Width)
}

func TestErrorRowsCarryNoDisposition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 2)
	require.NoError(t, err)

	insertResult(t, s, batchID, "maybe.jpg", 60, models.DispositionReview)
	_, err = s.InsertImageError(ctx, batchID, "broken.jpg", 512, "unsupported format")
	require.NoError(t, err)

	// failed files belong to no triage bucket and must not show up in a
	// disposition-filtered listing
	review, err := s.ListBatchImages(ctx, batchID, models.DispositionReview)
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, "maybe.jpg", review[0].Filename)

	all, err := s.ListBatchImages(ctx, batchID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, img := range all {
		if img.Filename == "broken.jpg" {
			assert.Empty(t, string(img.Disposition))
			assert.Equal(t, "unsupported format", img.Error)
		}
	}
}

func TestUpdateBatchCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 10)
	require.NoError(t, err)

	err = s.UpdateBatchCounters(ctx, batchID, Counters{Processed: 10, Accepted: 6, Rejected: 2, Review: 2}, "completed")
	require.NoError(t, err)

	b, err := s.GetBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Processed)
	assert.Equal(t, 6, b.Accepted)
	assert.Equal(t, "completed", b.Status)

	err = s.UpdateBatchCounters(ctx, 9999, Counters{}, "completed")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestDuplicateGroupLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 3)
	require.NoError(t, err)
	a := insertResult(t, s, batchID, "a.jpg", 80, models.DispositionAccepted)
	b := insertResult(t, s, batchID, "b.jpg", 85, models.DispositionAccepted)
	c := insertResult(t, s, batchID, "c.jpg", 78, models.DispositionAccepted)

	groupID, err := s.CreateDuplicateGroup(ctx, batchID, []int64{a, b, c}, b, 96.88)
	require.NoError(t, err)
	require.NoError(t, s.LinkImagesToGroup(ctx, []int64{a, b, c}, groupID))

	groups, err := s.ListDuplicateGroups(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].ImageCount)
	assert.Equal(t, b, groups[0].BestImageID)
	assert.Equal(t, b, groups[0].EffectiveBest())

	members, err := s.ListGroupImages(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "b.jpg", members[0].Filename)

	require.NoError(t, s.SetGroupBestOverride(ctx, groupID, a))
	g, err := s.GetGroup(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, a, g.EffectiveBest())
	assert.Equal(t, b, g.BestImageID)
}

func TestDismissGroupUnlinksMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 2)
	require.NoError(t, err)
	a := insertResult(t, s, batchID, "a.jpg", 80, models.DispositionAccepted)
	b := insertResult(t, s, batchID, "b.jpg", 85, models.DispositionAccepted)

	groupID, err := s.CreateDuplicateGroup(ctx, batchID, []int64{a, b}, b, 100)
	require.NoError(t, err)
	require.NoError(t, s.LinkImagesToGroup(ctx, []int64{a, b}, groupID))

	require.NoError(t, s.DismissGroup(ctx, groupID))

	_, err = s.GetGroup(ctx, groupID)
	assert.ErrorIs(t, err, ErrGroupNotFound)

	images, err := s.ListBatchImages(ctx, batchID, "")
	require.NoError(t, err)
	for _, img := range images {
		assert.Nil(t, img.DuplicateGroupID)
	}

	assert.ErrorIs(t, s.DismissGroup(ctx, groupID), ErrGroupNotFound)
}

func TestBulkUpdateImageDisposition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 3)
	require.NoError(t, err)
	a := insertResult(t, s, batchID, "a.jpg", 80, models.DispositionAccepted)
	b := insertResult(t, s, batchID, "b.jpg", 85, models.DispositionAccepted)
	insertResult(t, s, batchID, "c.jpg", 60, models.DispositionReview)

	require.NoError(t, s.BulkUpdateImageDisposition(ctx, []int64{a, b}, models.DispositionRejected))

	rejected, err := s.ListBatchImages(ctx, batchID, models.DispositionRejected)
	require.NoError(t, err)
	assert.Len(t, rejected, 2)

	require.NoError(t, s.BulkUpdateImageDisposition(ctx, nil, models.DispositionAccepted))
}

func TestAdjustBatchCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 5)
	require.NoError(t, err)
	require.NoError(t, s.UpdateBatchCounters(ctx, batchID,
		Counters{Processed: 5, Accepted: 1, Rejected: 1, Review: 3}, "completed"))

	// keep-best over a 3-member group: one accepted, two rejected
	require.NoError(t, s.AdjustBatchCounters(ctx, batchID, 1, 2, -3))

	b, err := s.GetBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Accepted)
	assert.Equal(t, 3, b.Rejected)
	assert.Equal(t, 0, b.Review)

	// review never goes negative
	require.NoError(t, s.AdjustBatchCounters(ctx, batchID, 0, 0, -10))
	b, err = s.GetBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Review)

	assert.ErrorIs(t, s.AdjustBatchCounters(ctx, 9999, 1, 0, 0), ErrBatchNotFound)
}

func TestDeleteBatchCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 2)
	require.NoError(t, err)
	a := insertResult(t, s, batchID, "a.jpg", 80, models.DispositionAccepted)
	b := insertResult(t, s, batchID, "b.jpg", 85, models.DispositionAccepted)
	groupID, err := s.CreateDuplicateGroup(ctx, batchID, []int64{a, b}, b, 100)
	require.NoError(t, err)
	require.NoError(t, s.LinkImagesToGroup(ctx, []int64{a, b}, groupID))

	require.NoError(t, s.DeleteBatch(ctx, batchID))

	_, err = s.GetBatch(ctx, batchID)
	assert.ErrorIs(t, err, ErrBatchNotFound)

	images, err := s.ListBatchImages(ctx, batchID, "")
	require.NoError(t, err)
	assert.Empty(t, images)

	_, err = s.GetGroup(ctx, groupID)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestAnalytics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batchID, err := s.CreateBatch(ctx, "b", 2)
	require.NoError(t, err)
	id, err := s.InsertImageResult(ctx, batchID, ImageResult{
		Filename: "blurry.jpg",
		Metrics: &models.MetricResult{
			Sharpness: 10, Exposure: 50, Contrast: 50, Overall: 38,
			Fingerprint: "0000000000000000",
			Issues:      []string{"Blurry", "Low contrast"},
		},
		Disposition: models.DispositionRejected,
	})
	require.NoError(t, err)
	require.NotZero(t, id)
	insertResult(t, s, batchID, "good.jpg", 90, models.DispositionAccepted)

	summary, err := s.Analytics(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Batches, 1)
	assert.Equal(t, 2, summary.TotalImages)
	assert.Equal(t, 64.0, summary.AvgOverall)
	assert.Equal(t, 1, summary.Dispositions["accepted"])
	assert.Equal(t, 1, summary.Dispositions["rejected"])
	assert.Equal(t, 1, summary.CommonIssues["Blurry"])
}
