// Package azure holds the Azure Blob Storage archive for triage result PDFs.
package azure

import (
	"context"
)

// BlobStorage defines the interface for blob storage operations
// This interface allows for easier testing with mock implementations
type BlobStorage interface {
	UploadPDF(ctx context.Context, blobName string, data []byte) (string, error)
	DownloadPDF(ctx context.Context, blobName string) ([]byte, error)
}

// Ensure BlobStorageClient implements BlobStorage interface
var _ BlobStorage = (*BlobStorageClient)(nil)
