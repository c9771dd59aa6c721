package azure

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MockBlobStorageClient is an in-memory implementation of BlobStorage for testing
type MockBlobStorageClient struct {
	Storage map[string][]byte
	// UploadErr, when set, fails every upload
	UploadErr error
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewMockBlobStorageClient creates a new mock blob storage client
func NewMockBlobStorageClient(logger *zap.Logger) *MockBlobStorageClient {
	return &MockBlobStorageClient{
		Storage: make(map[string][]byte),
		logger:  logger,
	}
}

// UploadPDF stores a PDF in memory
func (c *MockBlobStorageClient) UploadPDF(ctx context.Context, blobName string, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.UploadErr != nil {
		return "", c.UploadErr
	}
	if !strings.HasPrefix(blobName, resultPrefix) {
		return "", fmt.Errorf("blob name %q must start with %s", blobName, resultPrefix)
	}

	c.Storage[blobName] = bytes.Clone(data)

	if c.logger != nil {
		c.logger.Info("mock: PDF uploaded",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(data)),
		)
	}

	return blobName, nil
}

// DownloadPDF downloads a PDF file from in-memory storage
func (c *MockBlobStorageClient) DownloadPDF(ctx context.Context, blobName string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, exists := c.Storage[blobName]
	if !exists {
		return nil, fmt.Errorf("blob not found: %s", blobName)
	}

	if c.logger != nil {
		c.logger.Info("mock: PDF downloaded",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(data)),
		)
	}

	return bytes.Clone(data), nil
}

// Clear removes all data from in-memory storage
func (c *MockBlobStorageClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Storage = make(map[string][]byte)
}

// ListBlobs returns all blob names in storage, sorted
func (c *MockBlobStorageClient) ListBlobs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blobs := make([]string, 0, len(c.Storage))
	for name := range c.Storage {
		blobs = append(blobs, name)
	}
	sort.Strings(blobs)

	return blobs
}

var _ BlobStorage = (*MockBlobStorageClient)(nil)
