package azure

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

// resultPrefix is the virtual folder archived result PDFs live under
const resultPrefix = "results/"

// BlobStorageClient wraps Azure Blob Storage SDK for the result archive
type BlobStorageClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewBlobStorageClient creates a new Azure Blob Storage client
func NewBlobStorageClient(accountName, accountKey, containerName string, logger *zap.Logger) (*BlobStorageClient, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &BlobStorageClient{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// ResultBlobName names the archived PDF of a session's classification
func ResultBlobName(sessionID string, classifiedAt time.Time) string {
	return fmt.Sprintf("%s%s/%s.pdf", resultPrefix, sessionID, classifiedAt.UTC().Format("20060102T150405Z"))
}

// UploadPDF uploads a result PDF under blobName
func (c *BlobStorageClient) UploadPDF(ctx context.Context, blobName string, data []byte) (string, error) {
	if !strings.HasPrefix(blobName, resultPrefix) {
		return "", fmt.Errorf("blob name %q must start with %s", blobName, resultPrefix)
	}

	c.logger.Info("uploading PDF to blob storage",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr("application/pdf"),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload PDF",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload PDF: %w", err)
	}

	c.logger.Info("PDF uploaded successfully",
		zap.String("blob_name", blobName),
	)

	return blobName, nil
}

// DownloadPDF downloads a result PDF from Azure Blob Storage
func (c *BlobStorageClient) DownloadPDF(ctx context.Context, blobName string) ([]byte, error) {
	c.logger.Info("downloading PDF from blob storage",
		zap.String("blob_name", blobName),
	)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	downloadResponse, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		c.logger.Error("failed to download PDF",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download PDF: %w", err)
	}
	defer downloadResponse.Body.Close()

	data, err := io.ReadAll(downloadResponse.Body)
	if err != nil {
		c.logger.Error("failed to read PDF data",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read PDF data: %w", err)
	}

	c.logger.Info("PDF downloaded successfully",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	return data, nil
}

func toPtr(s string) *string {
	return &s
}
