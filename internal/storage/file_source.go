package storage

import (
	"context"
	"fmt"
	"os"
)

// FileSource loads images from the local filesystem.
type FileSource struct {
	maxDim int
}

// NewFileSource creates a filesystem image source. Decoded images larger than
// maxDim on either side are downscaled before analysis.
func NewFileSource(maxDim int) *FileSource {
	return &FileSource{maxDim: maxDim}
}

func (s *FileSource) Load(ctx context.Context, ref string) (*DecodedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", ref, err)
	}
	defer f.Close()

	return decodeAndPrepare(f, s.maxDim)
}
