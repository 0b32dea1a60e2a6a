package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"go-photo-culler/pkg/models"
)

// Luminance weights for RGB-to-gray conversion (ITU-R BT.601).
const (
	lumR = 0.299
	lumG = 0.587
	lumB = 0.114
)

// Histogram cutoffs for exposure analysis: pixels below darkCutoff count as
// crushed shadows, pixels at or above brightCutoff as blown highlights.
const (
	darkCutoff   = 30
	brightCutoff = 225
)

// luminancePlane converts an RGBA buffer to a flat slice of per-pixel
// luminance values in [0,255].
func luminancePlane(buf *models.PixelBuffer) []float64 {
	n := buf.Width * buf.Height
	lum := make([]float64, n)
	for i := 0; i < n; i++ {
		p := i * 4
		lum[i] = lumR*float64(buf.Pix[p]) + lumG*float64(buf.Pix[p+1]) + lumB*float64(buf.Pix[p+2])
	}
	return lum
}

// laplacianVariance applies the discrete Laplacian kernel (center -4, four
// neighbors +1) to every interior pixel and returns the population variance
// of the responses. Higher variance means more high-frequency edge content,
// which is the standard focus measure.
func laplacianVariance(lum []float64, width, height int) float64 {
	if width < 3 || height < 3 {
		return 0
	}
	responses := make([]float64, 0, (width-2)*(height-2))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			idx := y*width + x
			lap := lum[idx-width] + lum[idx-1] - 4*lum[idx] + lum[idx+1] + lum[idx+width]
			responses = append(responses, lap)
		}
	}
	if len(responses) == 0 {
		return 0
	}
	return stat.PopVariance(responses, nil)
}

// sharpnessScore normalizes Laplacian variance to [0,100]. The divisor is an
// empirical calibration constant for typical photographic variance ranges.
func sharpnessScore(lum []float64, width, height int, divisor float64) float64 {
	variance := laplacianVariance(lum, width, height)
	return round2(clamp(variance/divisor*100, 0, 100))
}

// exposureScore builds a 256-bin luminance histogram, penalizes deviation of
// the mean from middle gray, and adds penalties for large crushed-shadow or
// blown-highlight fractions.
func exposureScore(lum []float64) float64 {
	if len(lum) == 0 {
		return 0
	}

	var histogram [256]int
	var total float64
	for _, v := range lum {
		bin := int(math.Round(v))
		if bin < 0 {
			bin = 0
		} else if bin > 255 {
			bin = 255
		}
		histogram[bin]++
		total += float64(bin)
	}

	pixelCount := float64(len(lum))
	avg := total / pixelCount

	darkPixels := 0
	for i := 0; i < darkCutoff; i++ {
		darkPixels += histogram[i]
	}
	brightPixels := 0
	for i := brightCutoff; i < 256; i++ {
		brightPixels += histogram[i]
	}
	darkRatio := float64(darkPixels) / pixelCount
	brightRatio := float64(brightPixels) / pixelCount

	// Ideal average luminance is middle gray (128).
	base := 100 - math.Abs(avg-128)/1.28

	penalty := 0.0
	if darkRatio > 0.3 {
		penalty += (darkRatio - 0.3) * 100
	}
	if brightRatio > 0.3 {
		penalty += (brightRatio - 0.3) * 100
	}

	return round2(clamp(base-penalty, 0, 100))
}

// contrastScore normalizes the population standard deviation of luminance to
// [0,100]. The divisor calibrates against a typical contrast spread.
func contrastScore(lum []float64, divisor float64) float64 {
	if len(lum) == 0 {
		return 0
	}
	stdDev := stat.PopStdDev(lum, nil)
	return round2(clamp(stdDev/divisor*100, 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
