package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureSource loads images from Azure Blob Storage. The ref is a URL whose
// path names the container and whose "blob" query parameter names the blob.
type AzureSource struct {
	client *azblob.Client
	maxDim int
}

// NewAzureSource creates a blob image source authenticated with a shared key.
func NewAzureSource(accountName, accountKey string, maxDim int) (*AzureSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureSource{client: client, maxDim: maxDim}, nil
}

func (s *AzureSource) Load(ctx context.Context, ref string) (*DecodedImage, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid blob URL: %w", err)
	}

	container := strings.TrimPrefix(parsed.Path, "/")
	blob := parsed.Query().Get("blob")
	if container == "" || blob == "" {
		return nil, fmt.Errorf("blob URL %s is missing container or blob name", ref)
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeAndPrepare(resp.Body, s.maxDim)
}
