package analyzer

import (
	"math"

	apperrors "go-photo-culler/internal/errors"
	"go-photo-culler/pkg/models"
)

// Extractor computes quality metrics and a perceptual fingerprint from a
// decoded pixel buffer.
type Extractor interface {
	Extract(buf *models.PixelBuffer) (*models.MetricResult, error)
}

type extractor struct {
	opts Options
	face FaceDetector
}

// NewExtractor creates an Extractor with the given options.
func NewExtractor(opts Options) Extractor {
	return &extractor{
		opts: opts.withDefaults(),
		face: NewFaceDetector(),
	}
}

// Extract runs all metric computations over one buffer. The buffer is read
// only; it is never retained past this call. Fails when the buffer is
// degenerate (zero width or height, or a short pixel slice).
func (e *extractor) Extract(buf *models.PixelBuffer) (*models.MetricResult, error) {
	if buf == nil || buf.Width <= 0 || buf.Height <= 0 {
		return nil, apperrors.NewDecodeError("degenerate pixel buffer", nil)
	}
	if len(buf.Pix) < buf.Width*buf.Height*4 {
		return nil, apperrors.NewDecodeError("pixel buffer shorter than its dimensions", nil)
	}

	lum := luminancePlane(buf)

	sharpness := sharpnessScore(lum, buf.Width, buf.Height, e.opts.SharpnessDivisor)
	exposure := exposureScore(lum)
	contrast := contrastScore(lum, e.opts.ContrastDivisor)

	result := &models.MetricResult{
		Sharpness:   sharpness,
		Exposure:    exposure,
		Contrast:    contrast,
		Overall:     overallScore(sharpness, exposure, contrast),
		Fingerprint: fingerprint(buf),
		Issues:      tagIssues(sharpness, exposure, contrast),
		HasFace:     e.face.HasFace(buf),
		Width:       buf.Width,
		Height:      buf.Height,
	}
	return result, nil
}

// overallScore is the rounded weighted sum of the three sub-scores. It is
// always recomputable from them and never diverges.
func overallScore(sharpness, exposure, contrast float64) float64 {
	return math.Round(sharpness*weightSharpness + exposure*weightExposure + contrast*weightContrast)
}

// tagIssues produces the ordered human-readable issue list. Sharpness gets
// two severity bands; the remaining checks are single-threshold.
func tagIssues(sharpness, exposure, contrast float64) []string {
	issues := []string{}
	if sharpness < blurryThreshold {
		issues = append(issues, "Blurry")
	} else if sharpness < slightlyBlurryThreshold {
		issues = append(issues, "Slightly blurry")
	}
	if exposure < poorExposureThreshold {
		issues = append(issues, "Poor exposure")
	}
	if exposure > overexposedThreshold {
		issues = append(issues, "Overexposed")
	}
	if contrast < lowContrastThreshold {
		issues = append(issues, "Low contrast")
	}
	return issues
}
