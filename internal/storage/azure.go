package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"doccustody/internal/config"
)

// azureStorage implements Storage on an Azure Blob Storage container.
type azureStorage struct {
	client    *azblob.Client
	container string
}

// NewAzure creates the client from a connection string and ensures the container exists.
func NewAzure(ctx context.Context, cfg config.AzureConfig) (Storage, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("azure storage connection string is required")
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("azure storage container is required")
	}

	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := client.CreateContainer(ctx, cfg.Container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("create container: %w", err)
		}
	}

	return &azureStorage{client: client, container: cfg.Container}, nil
}

func (a *azureStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return ObjectInfo{}, err
	}

	contentType := opt.ContentType
	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata:    toAzureMetadata(opt.Metadata),
	}
	resp, err := a.client.UploadStream(ctx, a.container, key, r, opts)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("upload blob %s: %w", key, err)
	}

	info := ObjectInfo{
		Key:          key,
		Size:         opt.Size,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}
	if resp.ETag != nil {
		info.ETag = string(*resp.ETag)
	}
	if resp.LastModified != nil {
		info.LastModified = *resp.LastModified
	}
	return info, nil
}

func (a *azureStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, ObjectInfo{}, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("download blob %s: %w", key, err)
	}

	info := ObjectInfo{Key: key, Metadata: map[string]string{}}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}
	if resp.ContentType != nil {
		info.ContentType = *resp.ContentType
	}
	if resp.ETag != nil {
		info.ETag = string(*resp.ETag)
	}
	if resp.LastModified != nil {
		info.LastModified = *resp.LastModified
	}
	for k, v := range resp.Metadata {
		if v != nil {
			info.Metadata[k] = *v
		}
	}
	return resp.Body, info, nil
}

func (a *azureStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := a.client.DeleteBlob(ctx, a.container, key, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

// PresignGet issues a read-only SAS URL. It needs a shared key credential, which connection strings carry.
func (a *azureStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	blobClient := a.client.
		ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(key)

	u, err := blobClient.GetSASURL(sas.BlobPermissions{Read: true}, time.Now().Add(expiry), nil)
	if err != nil {
		return "", fmt.Errorf("presign blob %s: %w", key, err)
	}
	return u, nil
}

func toAzureMetadata(in map[string]string) map[string]*string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]*string, len(in))
	for k, v := range in {
		out[k] = &v
	}
	return out
}
