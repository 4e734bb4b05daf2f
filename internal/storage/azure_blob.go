package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// containerSetupTimeout bounds the container check done at startup
const containerSetupTimeout = 30 * time.Second

// blobAPI is the part of azblob.Client used for photos
type blobAPI interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
}

// AzureBlobStorage keeps alert photos as blobs in a single container
type AzureBlobStorage struct {
	client    blobAPI
	container string
	logger    *zap.Logger
}

// NewAzureBlobStorage connects with a connection string. The container is
// created when missing.
func NewAzureBlobStorage(connectionString, container string, logger *zap.Logger) (*AzureBlobStorage, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), containerSetupTimeout)
	defer cancel()
	return newAzureBlobStorage(ctx, client, container, logger)
}

func newAzureBlobStorage(ctx context.Context, client blobAPI, container string, logger *zap.Logger) (*AzureBlobStorage, error) {
	if container == "" {
		return nil, fmt.Errorf("blob container name is required")
	}

	_, err := client.CreateContainer(ctx, container, nil)
	switch {
	case err == nil:
		logger.Info("Created photo container", zap.String("container", container))
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists):
	default:
		return nil, fmt.Errorf("failed to ensure container %s: %w", container, err)
	}

	return &AzureBlobStorage{client: client, container: container, logger: logger}, nil
}

func (s *AzureBlobStorage) Upload(ctx context.Context, folder, ext, contentType string, data io.Reader) (string, int64, error) {
	name := objectPath(folder, ext)
	counter := &countingReader{r: data}

	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	if _, err := s.client.UploadStream(ctx, s.container, name, counter, opts); err != nil {
		return "", 0, fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	s.logger.Debug("Photo blob uploaded",
		zap.String("blob", name),
		zap.String("content_type", contentType),
		zap.Int64("size", counter.n),
	)
	return name, counter.n, nil
}

func (s *AzureBlobStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	name, err := cleanPath(storagePath)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	return resp.Body, nil
}

func (s *AzureBlobStorage) Delete(ctx context.Context, storagePath string) error {
	name, err := cleanPath(storagePath)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteBlob(ctx, s.container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	return nil
}

// countingReader records how many bytes the upload consumed
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
