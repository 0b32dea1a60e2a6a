package analyzer

// Overall-score weights. Sharpness and exposure dominate; contrast rounds
// out the remainder.
const (
	weightSharpness = 0.35
	weightExposure  = 0.35
	weightContrast  = 0.30
)

// Issue thresholds. All checks are independent; multiple issues may co-occur
// on one image.
const (
	blurryThreshold         = 30.0
	slightlyBlurryThreshold = 50.0
	poorExposureThreshold   = 40.0
	overexposedThreshold    = 90.0
	lowContrastThreshold    = 30.0
)

// Options configures metric extraction. The divisors are empirical
// normalization constants, exposed because they are calibration parameters
// rather than fixed laws.
type Options struct {
	// SharpnessDivisor maps Laplacian variance onto the 0-100 scale.
	// Typical photographic variance ranges 0-2000.
	SharpnessDivisor float64

	// ContrastDivisor maps luminance standard deviation onto 0-100.
	ContrastDivisor float64
}

// DefaultOptions returns the calibrated default normalization constants.
func DefaultOptions() Options {
	return Options{
		SharpnessDivisor: 500.0,
		ContrastDivisor:  64.0,
	}
}

// withDefaults fills zero-value fields so a partially populated Options
// still produces valid scores.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SharpnessDivisor <= 0 {
		o.SharpnessDivisor = d.SharpnessDivisor
	}
	if o.ContrastDivisor <= 0 {
		o.ContrastDivisor = d.ContrastDivisor
	}
	return o
}
