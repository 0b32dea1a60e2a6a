package models

import "time"

// Disposition is the triage outcome derived from the overall quality score.
type Disposition string

const (
	DispositionAccepted Disposition = "accepted"
	DispositionRejected Disposition = "rejected"
	DispositionReview   Disposition = "review"
)

// ItemState tracks a single file through a batch run.
// Transitions are one-directional: pending -> processing -> completed|error.
type ItemState string

const (
	ItemPending    ItemState = "pending"
	ItemProcessing ItemState = "processing"
	ItemCompleted  ItemState = "completed"
	ItemError      ItemState = "error"
)

// Terminal reports whether no further transition is possible from s.
func (s ItemState) Terminal() bool {
	return s == ItemCompleted || s == ItemError
}

// PixelBuffer is an immutable decoded raster: interleaved RGBA bytes in
// row-major order. Analysis code reads it and never writes to it.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8 // len == Width*Height*4
}

// MetricResult holds the per-image quality scores and the perceptual
// fingerprint. Overall is always the rounded weighted sum of the three
// sub-scores and is never stored without them.
type MetricResult struct {
	Sharpness   float64  `json:"sharpness_score"`
	Exposure    float64  `json:"exposure_score"`
	Contrast    float64  `json:"contrast_score"`
	Overall     float64  `json:"overall_score"`
	Fingerprint string   `json:"fingerprint"`
	Issues      []string `json:"issues"`
	HasFace     bool     `json:"has_face"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
}

// BatchProgress is a point-in-time snapshot of a running batch.
// Invariant: accepted+rejected+review <= processed <= total (item errors are
// counted in processed but in no disposition bucket).
type BatchProgress struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Accepted   int `json:"accepted"`
	Rejected   int `json:"rejected"`
	Review     int `json:"review"`
	Errors     int `json:"errors"`
	Percentage int `json:"percentage"`
}

// GroupMember is one image inside a duplicate group.
type GroupMember struct {
	ID          int64   `json:"id"`
	Filename    string  `json:"filename"`
	Fingerprint string  `json:"fingerprint"`
	Score       float64 `json:"score"`
}

// DuplicateGroup is a cluster of perceptually near-identical images.
// Similarity is the minimum pairwise similarity observed among confirmed
// members; BestID always refers to the member with the highest overall score.
type DuplicateGroup struct {
	Members    []GroupMember `json:"members"`
	BestID     int64         `json:"best_id"`
	Similarity float64       `json:"similarity"`
}

// Batch is the persisted record of one culling run.
type Batch struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Total     int       `json:"total_images"`
	Processed int       `json:"processed_images"`
	Accepted  int       `json:"accepted_images"`
	Rejected  int       `json:"rejected_images"`
	Review    int       `json:"review_images"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImageRecord is the persisted analysis result for one file.
type ImageRecord struct {
	ID               int64       `json:"id"`
	BatchID          int64       `json:"batch_id"`
	Filename         string      `json:"filename"`
	FileSize         int64       `json:"file_size"`
	Width            int         `json:"width"`
	Height           int         `json:"height"`
	Sharpness        float64     `json:"sharpness_score"`
	Exposure         float64     `json:"exposure_score"`
	Contrast         float64     `json:"contrast_score"`
	Overall          float64     `json:"overall_score"`
	Fingerprint      string      `json:"fingerprint"`
	HasFace          bool        `json:"has_face"`
	Disposition      Disposition `json:"disposition"`
	Issues           []string    `json:"issues,omitempty"`
	Error            string      `json:"error,omitempty"`
	DuplicateGroupID *int64      `json:"duplicate_group_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// GroupRecord is the persisted form of a duplicate group. OverrideBestID is a
// human choice recorded alongside, never overwriting, the computed best.
type GroupRecord struct {
	ID             int64     `json:"id"`
	BatchID        int64     `json:"batch_id"`
	ImageCount     int       `json:"image_count"`
	BestImageID    int64     `json:"best_image_id"`
	OverrideBestID *int64    `json:"override_best_image_id,omitempty"`
	Similarity     float64   `json:"similarity"`
	CreatedAt      time.Time `json:"created_at"`
}

// EffectiveBest returns the override when one has been recorded, otherwise
// the computed best member.
func (g *GroupRecord) EffectiveBest() int64 {
	if g.OverrideBestID != nil {
		return *g.OverrideBestID
	}
	return g.BestImageID
}

// BatchFile identifies one input to a batch run. Ref is interpreted by the
// configured image source (filesystem path, HTTP URL, or blob URL).
type BatchFile struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}
