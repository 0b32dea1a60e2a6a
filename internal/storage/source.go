package storage

import (
	"context"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "go-photo-culler/internal/errors"
	"go-photo-culler/pkg/models"
)

// DecodedImage carries the analysis-ready raster plus the dimensions of the
// image as decoded, before any downscaling.
type DecodedImage struct {
	Buf        *models.PixelBuffer
	OrigWidth  int
	OrigHeight int
}

// ImageSource resolves a file reference to a decoded image. The meaning of
// ref depends on the source: a filesystem path, an HTTP URL, or a blob URL.
type ImageSource interface {
	Load(ctx context.Context, ref string) (*DecodedImage, error)
}

// decodeAndPrepare decodes r and converts it to an RGBA pixel buffer,
// downscaling so neither side exceeds maxDim. A maxDim of 0 disables
// downscaling.
func decodeAndPrepare(r io.Reader, maxDim int) (*DecodedImage, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to decode image", err)
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return nil, apperrors.NewDecodeError("image has zero dimensions", nil)
	}

	if maxDim > 0 && (origW > maxDim || origH > maxDim) {
		img = resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
	}

	return &DecodedImage{
		Buf:        toPixelBuffer(img),
		OrigWidth:  origW,
		OrigHeight: origH,
	}, nil
}

func toPixelBuffer(img image.Image) *models.PixelBuffer {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &models.PixelBuffer{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    rgba.Pix,
	}
}
