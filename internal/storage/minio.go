package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/project-nexus/backend/internal/config"
	"github.com/project-nexus/backend/pkg/logger"
)

// MinIOClient stores project attachments under "projects/<projectID>/...".
type MinIOClient struct {
	client         *minio.Client
	bucket         string
	publicEndpoint string
	useSSL         bool
}

func NewMinIOClient(cfg config.MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOClient{
		client:         client,
		bucket:         cfg.Bucket,
		publicEndpoint: cfg.PublicEndpoint,
		useSSL:         cfg.UseSSL,
	}, nil
}

func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

func docKey(projectID, docID, filename string) string {
	return fmt.Sprintf("projects/%s/%s-%s", projectID, docID, filename)
}

// PutProjectDoc stores one attachment and returns its object key and a URL
// the frontend can serve it from.
func (m *MinIOClient) PutProjectDoc(ctx context.Context, projectID, docID, filename string, reader io.Reader, size int64, contentType string) (key, url string, err error) {
	key = docKey(projectID, docID, filename)

	_, err = m.client.PutObject(ctx, m.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("minio_upload_failed", err, map[string]interface{}{
			"object_name": key,
			"bucket":      m.bucket,
		})
		return "", "", err
	}

	scheme := "http"
	if m.useSSL {
		scheme = "https"
	}
	return key, fmt.Sprintf("%s://%s/%s/%s", scheme, m.publicEndpoint, m.bucket, key), nil
}

// RemoveProjectDoc deletes one stored attachment by its object key.
func (m *MinIOClient) RemoveProjectDoc(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error("minio_delete_failed", err, map[string]interface{}{
			"object_name": key,
			"bucket":      m.bucket,
		})
	}
	return err
}

// RemoveProjectFiles deletes every object stored for a project. Called by
// the project repository after the record and its grants are gone.
func (m *MinIOClient) RemoveProjectFiles(ctx context.Context, projectID string) error {
	prefix := fmt.Sprintf("projects/%s/", projectID)

	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var firstErr error
	for object := range objects {
		if object.Err != nil {
			if firstErr == nil {
				firstErr = object.Err
			}
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		logger.Error("minio_project_cleanup_failed", firstErr, map[string]interface{}{
			"project_id": projectID,
			"bucket":     m.bucket,
		})
	}
	return firstErr
}
