// Package storage provides the S3 backed video object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/aikalab/scouter/internal/core"
	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Config holds S3 connection settings. Endpoint is only set for
// S3-compatible services; path style goes with it.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// TempDir is where downloaded videos land. Empty uses the OS default.
	TempDir string
}

// Store implements core.ObjectStore on top of S3.
type Store struct {
	client  s3iface.S3API
	tempDir string
}

// New creates a Store with a fresh AWS session.
func New(cfg Config) (*Store, error) {
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &Store{client: s3.New(sess), tempDir: cfg.TempDir}, nil
}

// NewWithClient creates a Store around an existing client. Used in tests.
func NewWithClient(client s3iface.S3API, tempDir string) *Store {
	return &Store{client: client, tempDir: tempDir}
}

// Head returns the object's size in bytes without fetching the body.
func (s *Store) Head(ctx context.Context, bucket, key string) (int64, error) {
	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, ErrObjectNotFound
		}
		return 0, apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "head object %s/%s", bucket, key)
	}
	return aws.Int64Value(out.ContentLength), nil
}

// Download fetches the object into a temporary file and returns its local
// path. The caller owns the file and must remove it.
func (s *Store) Download(ctx context.Context, bucket, key string) (string, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", ErrObjectNotFound
		}
		return "", apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "get object %s/%s", bucket, key)
	}
	defer func() { _ = out.Body.Close() }()

	pattern := "video-*" + filepath.Ext(key)
	tmpFile, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmpFile, out.Body); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("copy object to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmpFile.Name(), nil
}

// Delete removes an object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "delete object %s/%s", bucket, key)
	}
	return nil
}

// ListOlderThan returns objects under the prefix whose last modification is
// before the cutoff, up to the limit.
func (s *Store) ListOlderThan(ctx context.Context, params core.ListOlderThanParams) ([]model.StoredObject, error) {
	var objects []model.StoredObject
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(params.Bucket),
		Prefix: aws.String(params.Prefix),
	}

	err := s.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				if params.Limit > 0 && len(objects) >= params.Limit {
					return false
				}
				if obj.LastModified != nil && obj.LastModified.Before(params.Cutoff) {
					objects = append(objects, model.StoredObject{
						Key:          aws.StringValue(obj.Key),
						Size:         aws.Int64Value(obj.Size),
						LastModified: obj.LastModified.UTC(),
					})
				}
			}
			return true
		})
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeUnavailable,
			"list objects %s/%s", params.Bucket, params.Prefix)
	}
	return objects, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}

// compile-time interface check
var _ core.ObjectStore = (*Store)(nil)
