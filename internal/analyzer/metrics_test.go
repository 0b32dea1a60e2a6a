package analyzer

import (
	"math"
	"testing"
)

func TestLaplacianVarianceUniform(t *testing.T) {
	lum := make([]float64, 100)
	for i := range lum {
		lum[i] = 128
	}

	variance := laplacianVariance(lum, 10, 10)
	if variance != 0 {
		t.Errorf("Expected zero variance for uniform plane, got %f", variance)
	}
}

func TestLaplacianVarianceEdgeContent(t *testing.T) {
	// A vertical step edge produces nonzero responses along the boundary.
	lum := make([]float64, 100)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x >= 5 {
				lum[y*10+x] = 255
			}
		}
	}

	variance := laplacianVariance(lum, 10, 10)
	if variance <= 0 {
		t.Errorf("Expected positive variance for step edge, got %f", variance)
	}
}

func TestLaplacianVarianceTinyPlane(t *testing.T) {
	// No interior pixels to convolve.
	if v := laplacianVariance([]float64{1, 2, 3, 4}, 2, 2); v != 0 {
		t.Errorf("Expected zero variance for 2x2 plane, got %f", v)
	}
	if v := laplacianVariance(nil, 0, 0); v != 0 {
		t.Errorf("Expected zero variance for empty plane, got %f", v)
	}
}

func TestExposureScorePenalties(t *testing.T) {
	// 40% crushed shadows: base ~ 100-|51.2-128|/1.28 applies along with a
	// 10-point dark penalty.
	lum := make([]float64, 100)
	for i := 0; i < 40; i++ {
		lum[i] = 0
	}
	for i := 40; i < 100; i++ {
		lum[i] = 85.333 // rounds to bin 85
	}

	score := exposureScore(lum)
	avg := (40*0 + 60*85) / 100.0
	base := 100 - math.Abs(avg-128)/1.28
	want := math.Round((base-10)*100) / 100

	if score != want {
		t.Errorf("Expected exposure %f, got %f", want, score)
	}
}

func TestExposureScoreEmptyPlane(t *testing.T) {
	if score := exposureScore(nil); score != 0 {
		t.Errorf("Expected zero exposure for empty plane, got %f", score)
	}
}

func TestContrastScoreSpread(t *testing.T) {
	// Half 0, half 255: population standard deviation 127.5 saturates the
	// 0-100 scale at the default divisor.
	lum := make([]float64, 100)
	for i := 50; i < 100; i++ {
		lum[i] = 255
	}

	if score := contrastScore(lum, 64); score != 100 {
		t.Errorf("Expected contrast 100, got %f", score)
	}
	if score := contrastScore(make([]float64, 100), 64); score != 0 {
		t.Errorf("Expected contrast 0 for flat plane, got %f", score)
	}
}

func TestLuminancePlaneWeights(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    float64
	}{
		{255, 0, 0, 0.299 * 255},
		{0, 255, 0, 0.587 * 255},
		{0, 0, 255, 0.114 * 255},
		{255, 255, 255, 255},
		{0, 0, 0, 0},
	}

	for _, tt := range tests {
		buf := uniformBuffer(2, 2, tt.r, tt.g, tt.b)
		lum := luminancePlane(buf)
		if len(lum) != 4 {
			t.Fatalf("Expected 4 luminance values, got %d", len(lum))
		}
		if math.Abs(lum[0]-tt.want) > 1e-9 {
			t.Errorf("luminance(%d,%d,%d) = %f, want %f", tt.r, tt.g, tt.b, lum[0], tt.want)
		}
	}
}
