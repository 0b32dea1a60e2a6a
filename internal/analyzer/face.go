package analyzer

import "go-photo-culler/pkg/models"

// FaceDetector reports whether a buffer contains a face. Semantic face
// detection is not implemented; the interface exists so a real detector can
// be dropped in without touching the extraction pipeline.
type FaceDetector interface {
	HasFace(buf *models.PixelBuffer) bool
	Supported() bool
}

type stubFaceDetector struct{}

// NewFaceDetector returns the stub detector.
func NewFaceDetector() FaceDetector {
	return stubFaceDetector{}
}

// HasFace always returns false in the stub.
func (stubFaceDetector) HasFace(_ *models.PixelBuffer) bool { return false }

// Supported reports the capability flag for callers that surface it.
func (stubFaceDetector) Supported() bool { return false }
