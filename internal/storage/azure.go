package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"
)

// BlobBackup mirrors the ledger file to Azure Blob Storage so a fresh host
// can restore the notified-code set instead of re-alerting on every code it
// has ever seen. It is strictly best-effort: the local file remains the
// source of truth.
type BlobBackup struct {
	client        *azblob.Client
	containerName string
	blobName      string
}

// NewBlobBackup creates a blob backup client using managed identity.
func NewBlobBackup(accountName, containerName, blobName string) (*BlobBackup, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	backup := &BlobBackup{
		client:        client,
		containerName: containerName,
		blobName:      blobName,
	}

	if err := backup.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return backup, nil
}

func (b *BlobBackup) ensureContainer() error {
	ctx := context.Background()

	_, err := b.client.CreateContainer(ctx, b.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", b.containerName)
	} else {
		logrus.Infof("Created container %s", b.containerName)
	}

	return nil
}

// Backup uploads the ledger snapshot.
func (b *BlobBackup) Backup(ctx context.Context, data []byte) error {
	_, err := b.client.UploadBuffer(ctx, b.containerName, b.blobName, data, nil)
	if err != nil {
		return fmt.Errorf("failed to upload ledger backup %s: %w", b.blobName, err)
	}

	logrus.Debugf("Backed up ledger (%d bytes) to blob %s", len(data), b.blobName)
	return nil
}

// Restore downloads the most recent ledger snapshot.
func (b *BlobBackup) Restore(ctx context.Context) ([]byte, error) {
	response, err := b.client.DownloadStream(ctx, b.containerName, b.blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download ledger backup %s: %w", b.blobName, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger backup content: %w", err)
	}

	return data, nil
}
