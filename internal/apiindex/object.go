package apiindex

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	apperrors "github.com/patrickoleary/vtkapi-mcp/pkg/errors"
	"github.com/patrickoleary/vtkapi-mcp/pkg/resilience"
)

// ObjectSource reads the JSONL index document from S3-compatible object
// storage.
type ObjectSource struct {
	client *minio.Client
	bucket string
	object string
}

// NewObjectSource creates a MinIO client for cfg. No request is made until
// Fetch or Store.
func NewObjectSource(cfg config.ObjectStoreConfig) (*ObjectSource, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	if cfg.Bucket == "" || cfg.Object == "" {
		return nil, fmt.Errorf("object store bucket and object are required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &ObjectSource{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

func (s *ObjectSource) String() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.object)
}

// Fetch downloads and decodes the object. A missing bucket or object is
// reported as ErrSourceNotFound and not retried.
func (s *ObjectSource) Fetch(ctx context.Context) ([]Document, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyObjectError(s, err)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		return nil, classifyObjectError(s, err)
	}
	docs, skipped, err := ReadDocuments(obj)
	if err != nil {
		return nil, classifyObjectError(s, err)
	}
	if skipped > 0 {
		slog.Warn("skipped index lines", "source", s.String(), "skipped", skipped)
	}
	return docs, nil
}

// Store uploads docs as the index object, creating the bucket if needed.
func (s *ObjectSource) Store(ctx context.Context, docs []Document) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
		}
	}

	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs); err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", s, err)
	}
	return nil
}

func classifyObjectError(s *ObjectSource, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return resilience.Permanent(fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, s))
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return resilience.Permanent(fmt.Errorf("reading %s: %w", s, err))
	}
	return fmt.Errorf("reading %s: %w", s, err)
}
