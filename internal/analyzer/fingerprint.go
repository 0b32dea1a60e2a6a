package analyzer

import (
	"strconv"
	"strings"

	"go-photo-culler/pkg/models"
)

// Difference-hash grid: 9 columns sampled so each row yields 8 adjacent
// comparisons, for 64 bits total.
const (
	dhashCols = 9
	dhashRows = 8
)

// FingerprintLength is the hex length of every fingerprint (64 bits).
const FingerprintLength = 16

// fingerprint computes the perceptual difference hash of a buffer: the
// luminance channel is downsampled to a 9x8 grid by nearest-source-pixel
// sampling, each horizontal neighbor pair emits one bit (1 when left is
// darker than right), and the 64 bits are packed into 16 hex characters.
// Robust to mild resizing and recompression; sensitive to layout changes.
func fingerprint(buf *models.PixelBuffer) string {
	grid := make([]float64, 0, dhashCols*dhashRows)
	for y := 0; y < dhashRows; y++ {
		for x := 0; x < dhashCols; x++ {
			srcX := x * buf.Width / dhashCols
			srcY := y * buf.Height / dhashRows
			p := (srcY*buf.Width + srcX) * 4
			gray := lumR*float64(buf.Pix[p]) + lumG*float64(buf.Pix[p+1]) + lumB*float64(buf.Pix[p+2])
			grid = append(grid, gray)
		}
	}

	var hex strings.Builder
	hex.Grow(FingerprintLength)
	nibble := 0
	bits := 0
	for y := 0; y < dhashRows; y++ {
		for x := 0; x < dhashCols-1; x++ {
			idx := y*dhashCols + x
			nibble <<= 1
			if grid[idx] < grid[idx+1] {
				nibble |= 1
			}
			bits++
			if bits == 4 {
				hex.WriteString(strconv.FormatInt(int64(nibble), 16))
				nibble = 0
				bits = 0
			}
		}
	}
	return hex.String()
}
