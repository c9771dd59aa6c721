package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/carepath/internal/azure"
	"github.com/vcscsvcscs/carepath/internal/classifier"
	"github.com/vcscsvcscs/carepath/internal/pdf"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	classifierURL := os.Getenv("CLASSIFIER_URL")
	storageAccountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
	storageAccountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")
	container := os.Getenv("AZURE_STORAGE_RESULT_CONTAINER")
	if container == "" {
		container = "triage-results"
	}

	if classifierURL == "" {
		logger.Fatal("Missing classifier endpoint. Set CLASSIFIER_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	failed := false

	logger.Info("=== Checking classification service ===")
	if err := checkClassifier(ctx, classifierURL, logger); err != nil {
		logger.Error("Classifier check failed", zap.Error(err))
		failed = true
	} else {
		logger.Info("Classifier check passed")
	}

	if storageAccountName == "" || storageAccountKey == "" {
		logger.Warn("Skipping result archive check, AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY not set")
	} else {
		logger.Info("=== Checking result archive ===")
		if err := checkArchive(ctx, storageAccountName, storageAccountKey, container, logger); err != nil {
			logger.Error("Result archive check failed", zap.Error(err))
			failed = true
		} else {
			logger.Info("Result archive check passed")
		}
	}

	if failed {
		os.Exit(1)
	}
	logger.Info("=== All checks completed ===")
}

func checkClassifier(ctx context.Context, baseURL string, logger *zap.Logger) error {
	client, err := classifier.NewHTTPClient(baseURL, 15*time.Second, logger)
	if err != nil {
		return fmt.Errorf("failed to create classifier client: %w", err)
	}

	history, err := client.History(ctx)
	if err != nil {
		return fmt.Errorf("history request failed: %w", err)
	}

	logger.Info("History fetched", zap.Int("items", len(history.Items)))
	return nil
}

func checkArchive(ctx context.Context, accountName, accountKey, container string, logger *zap.Logger) error {
	client, err := azure.NewBlobStorageClient(accountName, accountKey, container, logger)
	if err != nil {
		return fmt.Errorf("failed to create Blob Storage client: %w", err)
	}

	now := time.Now().UTC()
	data, err := pdf.NewPDFGenerator(logger).Generate(&pdf.SummaryData{
		SessionID:    "connectivity-check",
		Category:     "Self-care / monitor",
		Tone:         "self_care",
		Reasons:      []string{"Connectivity check"},
		Version:      "check",
		ClassifiedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to render sample PDF: %w", err)
	}

	blobName, err := client.UploadPDF(ctx, azure.ResultBlobName("connectivity-check", now), data)
	if err != nil {
		return fmt.Errorf("PDF upload failed: %w", err)
	}
	logger.Info("PDF uploaded", zap.String("blob_name", blobName))

	downloaded, err := client.DownloadPDF(ctx, blobName)
	if err != nil {
		return fmt.Errorf("PDF download failed: %w", err)
	}
	if !bytes.Equal(downloaded, data) {
		return fmt.Errorf("downloaded PDF doesn't match uploaded PDF")
	}

	logger.Info("PDF downloaded and verified", zap.Int("size_bytes", len(downloaded)))
	return nil
}
