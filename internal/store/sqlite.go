package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-photo-culler/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	total_images INTEGER NOT NULL,
	processed_images INTEGER NOT NULL DEFAULT 0,
	accepted_images INTEGER NOT NULL DEFAULT 0,
	rejected_images INTEGER NOT NULL DEFAULT 0,
	review_images INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id INTEGER NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	file_size INTEGER,
	width INTEGER,
	height INTEGER,
	sharpness_score REAL,
	exposure_score REAL,
	contrast_score REAL,
	overall_score REAL,
	fingerprint TEXT,
	has_face INTEGER NOT NULL DEFAULT 0,
	disposition TEXT,
	issues TEXT,
	error TEXT,
	duplicate_group_id INTEGER,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS duplicate_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id INTEGER NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	image_count INTEGER NOT NULL,
	best_image_id INTEGER NOT NULL,
	override_best_image_id INTEGER,
	similarity REAL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_images_batch ON images(batch_id);
CREATE INDEX IF NOT EXISTS idx_images_fingerprint ON images(fingerprint);
CREATE INDEX IF NOT EXISTS idx_images_group ON images(duplicate_group_id);
CREATE INDEX IF NOT EXISTS idx_groups_batch ON duplicate_groups(batch_id);`

// SQLiteStore implements RecordStore on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *SQLiteStore) CreateBatch(ctx context.Context, name string, total int) (int64, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (name, total_images, status, created_at, updated_at)
		 VALUES (?, ?, 'processing', ?, ?)`,
		name, total, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("cannot create batch %q: %w", name, err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) InsertImageResult(ctx context.Context, batchID int64, r ImageResult) (int64, error) {
	issues, err := json.Marshal(r.Metrics.Issues)
	if err != nil {
		return 0, fmt.Errorf("cannot encode issues for %s: %w", r.Filename, err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images (
			batch_id, filename, file_size, width, height,
			sharpness_score, exposure_score, contrast_score, overall_score,
			fingerprint, has_face, disposition, issues, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batchID, r.Filename, r.FileSize, r.Metrics.Width, r.Metrics.Height,
		r.Metrics.Sharpness, r.Metrics.Exposure, r.Metrics.Contrast, r.Metrics.Overall,
		r.Metrics.Fingerprint, boolToInt(r.Metrics.HasFace), string(r.Disposition), string(issues), now())
	if err != nil {
		return 0, fmt.Errorf("cannot insert result for %s: %w", r.Filename, err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) InsertImageError(ctx context.Context, batchID int64, filename string, fileSize int64, reason string) (int64, error) {
	// error rows carry no disposition; they belong to no triage bucket and
	// must not surface in disposition-filtered listings
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images (batch_id, filename, file_size, error, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		batchID, filename, fileSize, reason, now())
	if err != nil {
		return 0, fmt.Errorf("cannot insert error record for %s: %w", filename, err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateBatchCounters(ctx context.Context, batchID int64, c Counters, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET processed_images = ?, accepted_images = ?, rejected_images = ?,
		 review_images = ?, status = ?, updated_at = ? WHERE id = ?`,
		c.Processed, c.Accepted, c.Rejected, c.Review, status, now(), batchID)
	if err != nil {
		return fmt.Errorf("cannot update batch %d: %w", batchID, err)
	}
	return requireRow(res, ErrBatchNotFound)
}

func (s *SQLiteStore) CreateDuplicateGroup(ctx context.Context, batchID int64, memberIDs []int64, bestID int64, similarity float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO duplicate_groups (batch_id, image_count, best_image_id, similarity, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		batchID, len(memberIDs), bestID, similarity, now())
	if err != nil {
		return 0, fmt.Errorf("cannot create duplicate group for batch %d: %w", batchID, err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) LinkImagesToGroup(ctx context.Context, imageIDs []int64, groupID int64) error {
	if len(imageIDs) == 0 {
		return nil
	}
	query := fmt.Sprintf(
		`UPDATE images SET duplicate_group_id = ? WHERE id IN (%s)`,
		placeholders(len(imageIDs)))
	args := make([]interface{}, 0, len(imageIDs)+1)
	args = append(args, groupID)
	for _, id := range imageIDs {
		args = append(args, id)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cannot link images to group %d: %w", groupID, err)
	}
	return nil
}

func (s *SQLiteStore) GetBatch(ctx context.Context, batchID int64) (*models.Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, total_images, processed_images, accepted_images,
		 rejected_images, review_images, status, created_at, updated_at
		 FROM batches WHERE id = ?`, batchID)
	return scanBatch(row)
}

func (s *SQLiteStore) ListBatches(ctx context.Context) ([]models.Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, total_images, processed_images, accepted_images,
		 rejected_images, review_images, status, created_at, updated_at
		 FROM batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (s *SQLiteStore) ListBatchImages(ctx context.Context, batchID int64, disposition models.Disposition) ([]models.ImageRecord, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE batch_id = ?`
	args := []interface{}{batchID}
	if disposition != "" {
		query += ` AND disposition = ?`
		args = append(args, string(disposition))
	}
	query += ` ORDER BY overall_score DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanImages(rows)
}

func (s *SQLiteStore) ListDuplicateGroups(ctx context.Context, batchID int64) ([]models.GroupRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, image_count, best_image_id, override_best_image_id, similarity, created_at
		 FROM duplicate_groups WHERE batch_id = ? ORDER BY created_at DESC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.GroupRecord
	for rows.Next() {
		var g models.GroupRecord
		var createdAt string
		if err := rows.Scan(&g.ID, &g.BatchID, &g.ImageCount, &g.BestImageID,
			&g.OverrideBestID, &g.Similarity, &createdAt); err != nil {
			return nil, err
		}
		g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *SQLiteStore) GetGroup(ctx context.Context, groupID int64) (*models.GroupRecord, error) {
	var g models.GroupRecord
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, batch_id, image_count, best_image_id, override_best_image_id, similarity, created_at
		 FROM duplicate_groups WHERE id = ?`, groupID).
		Scan(&g.ID, &g.BatchID, &g.ImageCount, &g.BestImageID, &g.OverrideBestID, &g.Similarity, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &g, nil
}

func (s *SQLiteStore) ListGroupImages(ctx context.Context, groupID int64) ([]models.ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE duplicate_group_id = ? ORDER BY overall_score DESC`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanImages(rows)
}

func (s *SQLiteStore) UpdateImageDisposition(ctx context.Context, imageID int64, d models.Disposition) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE images SET disposition = ? WHERE id = ?`, string(d), imageID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrImageNotFound)
}

func (s *SQLiteStore) BulkUpdateImageDisposition(ctx context.Context, imageIDs []int64, d models.Disposition) error {
	if len(imageIDs) == 0 {
		return nil
	}
	query := fmt.Sprintf(
		`UPDATE images SET disposition = ? WHERE id IN (%s)`, placeholders(len(imageIDs)))
	args := make([]interface{}, 0, len(imageIDs)+1)
	args = append(args, string(d))
	for _, id := range imageIDs {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteStore) SetGroupBestOverride(ctx context.Context, groupID, imageID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE duplicate_groups SET override_best_image_id = ? WHERE id = ?`, imageID, groupID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrGroupNotFound)
}

func (s *SQLiteStore) DismissGroup(ctx context.Context, groupID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE images SET duplicate_group_id = NULL WHERE duplicate_group_id = ?`, groupID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM duplicate_groups WHERE id = ?`, groupID)
	if err != nil {
		return err
	}
	if err := requireRow(res, ErrGroupNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteBatch(ctx context.Context, batchID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, batchID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrBatchNotFound)
}

func (s *SQLiteStore) AdjustBatchCounters(ctx context.Context, batchID int64, deltaAccepted, deltaRejected, deltaReview int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET
			accepted_images = accepted_images + ?,
			rejected_images = rejected_images + ?,
			review_images = MAX(0, review_images + ?),
			updated_at = ?
		 WHERE id = ?`,
		deltaAccepted, deltaRejected, deltaReview, now(), batchID)
	if err != nil {
		return fmt.Errorf("cannot adjust counters for batch %d: %w", batchID, err)
	}
	return requireRow(res, ErrBatchNotFound)
}

// Analytics aggregates the 30 most recent batches and overall score and
// disposition distributions.
func (s *SQLiteStore) Analytics(ctx context.Context) (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{
		Dispositions: map[string]int{},
		CommonIssues: map[string]int{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, total_images, processed_images, accepted_images,
		 rejected_images, review_images, status, created_at, updated_at
		 FROM batches ORDER BY created_at DESC LIMIT 30`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		summary.Batches = append(summary.Batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	imgRows, err := s.db.QueryContext(ctx,
		`SELECT overall_score, disposition, issues FROM images WHERE error IS NULL LIMIT 5000`)
	if err != nil {
		return nil, err
	}
	defer imgRows.Close()

	var scoreSum float64
	for imgRows.Next() {
		var overall sql.NullFloat64
		var disposition string
		var issuesJSON sql.NullString
		if err := imgRows.Scan(&overall, &disposition, &issuesJSON); err != nil {
			return nil, err
		}
		summary.TotalImages++
		if overall.Valid {
			scoreSum += overall.Float64
		}
		summary.Dispositions[disposition]++
		if issuesJSON.Valid && issuesJSON.String != "" {
			var issues []string
			if err := json.Unmarshal([]byte(issuesJSON.String), &issues); err == nil {
				for _, issue := range issues {
					summary.CommonIssues[issue]++
				}
			}
		}
	}
	if err := imgRows.Err(); err != nil {
		return nil, err
	}
	if summary.TotalImages > 0 {
		summary.AvgOverall = scoreSum / float64(summary.TotalImages)
	}
	return summary, nil
}

const imageColumns = `id, batch_id, filename, file_size, width, height,
	sharpness_score, exposure_score, contrast_score, overall_score,
	fingerprint, has_face, disposition, issues, error, duplicate_group_id, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row rowScanner) (*models.Batch, error) {
	var b models.Batch
	var createdAt, updatedAt string
	err := row.Scan(&b.ID, &b.Name, &b.Total, &b.Processed, &b.Accepted,
		&b.Rejected, &b.Review, &b.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

func scanImages(rows *sql.Rows) ([]models.ImageRecord, error) {
	var images []models.ImageRecord
	for rows.Next() {
		var img models.ImageRecord
		var fileSize, width, height sql.NullInt64
		var sharpness, exposure, contrast, overall sql.NullFloat64
		var fingerprint, disposition, issuesJSON, errMsg sql.NullString
		var hasFace int
		var groupID sql.NullInt64
		var createdAt string

		if err := rows.Scan(&img.ID, &img.BatchID, &img.Filename, &fileSize, &width, &height,
			&sharpness, &exposure, &contrast, &overall,
			&fingerprint, &hasFace, &disposition, &issuesJSON, &errMsg, &groupID, &createdAt); err != nil {
			return nil, err
		}
		img.Disposition = models.Disposition(disposition.String)

		img.FileSize = fileSize.Int64
		img.Width = int(width.Int64)
		img.Height = int(height.Int64)
		img.Sharpness = sharpness.Float64
		img.Exposure = exposure.Float64
		img.Contrast = contrast.Float64
		img.Overall = overall.Float64
		img.Fingerprint = fingerprint.String
		img.HasFace = hasFace != 0
		img.Error = errMsg.String
		if groupID.Valid {
			id := groupID.Int64
			img.DuplicateGroupID = &id
		}
		if issuesJSON.Valid && issuesJSON.String != "" {
			_ = json.Unmarshal([]byte(issuesJSON.String), &img.Issues)
		}
		img.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		images = append(images, img)
	}
	return images, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func requireRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
