package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"perfumery_server/structs"
	"strings"

	"github.com/MonkyMars/gecho"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService stores product images in a MinIO (S3 compatible) bucket
type StorageService struct {
	logger        *gecho.Logger
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewStorageService connects to MinIO and makes sure the bucket exists
func NewStorageService(ctx context.Context, cfg *structs.StorageConfig, logger *gecho.Logger) (*StorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Created storage bucket", gecho.Field("bucket", cfg.Bucket))
	}

	logger.Info("Connected to object storage", gecho.Field("endpoint", cfg.Endpoint))
	return &StorageService{
		logger:        logger,
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Upload writes the image under key and returns its public URL
func (ss *StorageService) Upload(ctx context.Context, key string, img *structs.ProductImage) (string, error) {
	_, err := ss.client.PutObject(ctx, ss.bucket, key, bytes.NewReader(img.Data), int64(len(img.Data)),
		minio.PutObjectOptions{ContentType: img.ContentType})
	if err != nil {
		return "", err
	}

	ss.logger.Debug("Uploaded image", gecho.Field("key", key), gecho.Field("size", len(img.Data)))
	return publicObjectURL(ss.publicBaseURL, ss.bucket, key), nil
}

func (ss *StorageService) Remove(ctx context.Context, key string) error {
	return ss.client.RemoveObject(ctx, ss.bucket, key, minio.RemoveObjectOptions{})
}

func publicObjectURL(baseURL, bucket, key string) string {
	u, err := url.JoinPath(strings.TrimRight(baseURL, "/"), bucket, key)
	if err != nil {
		return strings.TrimRight(baseURL, "/") + "/" + bucket + "/" + key
	}
	return u
}
