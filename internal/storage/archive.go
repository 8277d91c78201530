package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"luca-backend/internal/config"
	"luca-backend/internal/model"
	"luca-backend/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// Archive copies exported transcripts into a MinIO bucket.
type Archive struct {
	mc     *minio.Client
	bucket string
}

func NewArchive(cfg config.ArchiveConfig) (*Archive, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Archive{mc: mc, bucket: cfg.Bucket}, nil
}

// Init creates the bucket if it does not exist.
func (a *Archive) Init(ctx context.Context) error {
	exists, err := a.mc.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", a.bucket, err)
		}
		logger.Infof("Archive bucket created: %s", a.bucket)
	}
	return nil
}

// ObjectName is the key an export is stored under.
func ObjectName(conversationID, filename string) string {
	return conversationID + "/" + filename
}

// Upload stores doc as JSON and returns the object name.
func (a *Archive) Upload(ctx context.Context, conversationID, filename string, doc model.Export) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}

	name := ObjectName(conversationID, filename)
	_, err = a.mc.PutObject(ctx, a.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", a.bucket, name, err)
	}

	logger.WithFields(logrus.Fields{
		"bucket": a.bucket,
		"object": name,
		"size":   len(data),
	}).Debug("export archived")
	return name, nil
}
