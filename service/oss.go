package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reelforge-server/config"
)

// presigned references stay valid this long; callers re-fetch the project
// for a fresh reference rather than persisting the URL elsewhere.
const refExpiry = 72 * time.Hour

// ObjectStore copies produced media into the bucket and hands out stable,
// addressable references. The core never touches video bytes beyond this
// copy.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

func InitMinIO() (*ObjectStore, error) {
	cfg := config.AppConfig.MinIO
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio init failed: %w", err)
	}
	log.Println("minio connected")
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores the stream under objectName and returns a presigned URL as
// the result reference. size may be -1 when unknown.
func (o *ObjectStore) Upload(ctx context.Context, reader io.Reader, objectName string, size int64) (string, error) {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return "", fmt.Errorf("bucket check failed: %w", err)
	}
	if !exists {
		if err := o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("bucket create failed: %w", err)
		}
		log.Printf("bucket %q created", o.bucket)
	}

	contentType := "application/octet-stream"
	switch filepath.Ext(objectName) {
	case ".mp4":
		contentType = "video/mp4"
	case ".webm":
		contentType = "video/webm"
	case ".mov":
		contentType = "video/quicktime"
	}

	_, err = o.client.PutObject(ctx, o.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	presigned, err := o.client.PresignedGetObject(ctx, o.bucket, objectName, refExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign failed: %w", err)
	}
	log.Printf("object stored: %s", objectName)
	return presigned.String(), nil
}
