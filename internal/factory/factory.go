package factory

import (
	"context"
	"fmt"
	"strings"

	"go-photo-culler/internal/config"
	"go-photo-culler/internal/storage"
)

// SourceType names the backends images can be loaded from.
type SourceType string

const (
	// LocalSource reads images from the local filesystem
	LocalSource SourceType = "local"
	// HTTPSource fetches images over HTTP
	HTTPSource SourceType = "http"
	// AzureSource reads images from Azure blob storage
	AzureSource SourceType = "azure"
)

// SourceFactory creates image sources.
type SourceFactory interface {
	CreateSource(sourceType SourceType) (storage.ImageSource, error)
}

type sourceFactory struct {
	cfg *config.Config
}

// NewSourceFactory creates a factory bound to the given configuration.
func NewSourceFactory(cfg *config.Config) SourceFactory {
	return &sourceFactory{cfg: cfg}
}

// CreateSource creates an image source for the specified backend.
func (f *sourceFactory) CreateSource(sourceType SourceType) (storage.ImageSource, error) {
	maxDim := f.cfg.Tunables.MaxAnalysisDim

	switch sourceType {
	case LocalSource:
		return storage.NewFileSource(maxDim), nil
	case HTTPSource:
		return storage.NewHTTPSource(f.cfg.ImageFetchTimeout, maxDim), nil
	case AzureSource:
		if f.cfg.AzureAccountName == "" || f.cfg.AzureAccountKey == "" {
			return nil, fmt.Errorf("azure source requires AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY")
		}
		return storage.NewAzureSource(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, maxDim)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}

// MultiSource routes each file reference to a backend by its scheme:
// http(s) URLs go to the HTTP source, azure refs to the blob source, and
// everything else to the filesystem.
type MultiSource struct {
	local storage.ImageSource
	http  storage.ImageSource
	azure storage.ImageSource
}

// NewMultiSource builds a scheme-routing source. The azure source may be nil
// when no credentials are configured.
func NewMultiSource(local, http, azure storage.ImageSource) *MultiSource {
	return &MultiSource{local: local, http: http, azure: azure}
}

// Load resolves ref with the source responsible for its scheme.
func (m *MultiSource) Load(ctx context.Context, ref string) (*storage.DecodedImage, error) {
	src, err := m.route(ref)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx, ref)
}

func (m *MultiSource) route(ref string) (storage.ImageSource, error) {
	switch {
	case strings.HasPrefix(ref, "azure://"):
		if m.azure == nil {
			return nil, fmt.Errorf("no azure source configured for %s", ref)
		}
		return m.azure, nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return m.http, nil
	default:
		return m.local, nil
	}
}
