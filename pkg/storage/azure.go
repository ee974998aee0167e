package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/upstream"
)

type azure struct {
	client *azblob.Client
	bucket string
	logger *slog.Logger
}

// newAzure builds a client from the connection string when present,
// otherwise from AccountURL with the default Azure credential chain.
func newAzure(cfg *Config, logger *slog.Logger) (*azure, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: &http.Client{Timeout: cfg.TimeoutDuration()},
		},
	}

	var (
		client *azblob.Client
		err    error
	)

	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
	} else {
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create azure credential: %w", err)
		}
		client, err = azblob.NewClient(cfg.AccountURL, cred, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With("system", "storage", "provider", ProviderAzure),
	}, nil
}

func (a *azure) Bucket() string {
	return a.bucket
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system")

	lc.OnStartup("storage", func() error {
		_, err := a.client.CreateContainer(lc.Context(), a.bucket, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			a.logger.Error("storage container initialization failed", "error", err)
			return translateAzure(err)
		}

		a.logger.Info("storage container ready", "container", a.bucket)
		return nil
	})

	return nil
}

func (a *azure) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	if err := validateKey(bucket, path); err != nil {
		return err
	}

	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	if _, err := a.client.UploadBuffer(ctx, bucket, path, data, opts); err != nil {
		return fmt.Errorf("upload object %s/%s: %w", bucket, path, translateAzure(err))
	}

	return nil
}

func (a *azure) Download(ctx context.Context, bucket, path string) (*Object, error) {
	if err := validateKey(bucket, path); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, bucket, path, nil)
	if err != nil {
		return nil, fmt.Errorf("download object %s/%s: %w", bucket, path, translateAzure(err))
	}

	obj := &Object{Body: resp.Body}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		obj.ContentLength = *resp.ContentLength
	}

	return obj, nil
}

func (a *azure) Delete(ctx context.Context, bucket, path string) error {
	if err := validateKey(bucket, path); err != nil {
		return err
	}

	if _, err := a.client.DeleteBlob(ctx, bucket, path, nil); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", bucket, path, translateAzure(err))
	}

	return nil
}

// translateAzure maps SDK errors onto the upstream error model so callers
// see the same shapes regardless of provider.
func translateAzure(err error) error {
	var re *azcore.ResponseError
	if !errors.As(err, &re) {
		return &upstream.TransportError{Service: upstream.ServiceStorage, Err: err}
	}

	se := &upstream.StatusError{
		Service: upstream.ServiceStorage,
		Status:  re.StatusCode,
		Message: re.ErrorCode,
	}

	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, se)
	}

	return se
}
