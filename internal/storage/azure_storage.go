package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// AzureBlobUploader stores processed images as block blobs
type AzureBlobUploader struct {
	client     *azblob.Client
	serviceURL string
	container  string
}

// NewAzureBlobUploader connects with a shared key. An empty account name
// yields an uploader that always reports ErrNotConfigured.
func NewAzureBlobUploader(accountName, accountKey, container string) (*AzureBlobUploader, error) {
	if accountName == "" || accountKey == "" {
		return &AzureBlobUploader{container: container}, nil
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &AzureBlobUploader{client: client, serviceURL: serviceURL, container: container}, nil
}

func (a *AzureBlobUploader) Name() string { return "azure" }

// Configured reports whether credentials were supplied
func (a *AzureBlobUploader) Configured() bool { return a.client != nil }

func (a *AzureBlobUploader) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if a.client == nil {
		return nil, ErrNotConfigured
	}

	blobName := "processed_images/" + filename
	contentType := "image/jpeg"
	_, err := a.client.UploadBuffer(ctx, a.container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return nil, fmt.Errorf("azure upload failed: %w", err)
	}

	return &UploadResult{
		Backend:     a.Name(),
		Filename:    blobName,
		URL:         fmt.Sprintf("%s/%s/%s", a.serviceURL, a.container, (&url.URL{Path: blobName}).EscapedPath()),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}
