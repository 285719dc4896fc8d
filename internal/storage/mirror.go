package storage

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MirrorOptions configures the object storage mirror.
type MirrorOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Mirror copies stored files into an S3-compatible bucket. The local
// directory stays the source of truth; the bucket is a secondary copy.
type Mirror struct {
	client *minio.Client
	bucket string
}

// NormaliseEndpoint accepts "minio:9000", "http://minio:9000" or
// "https://minio:9000" and returns host:port plus whether TLS is used.
func NormaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme: host:port, insecure by default for a local MinIO.
	return raw, false, nil
}

// NewMirror connects to the endpoint and checks that the bucket exists.
func NewMirror(ctx context.Context, opts MirrorOptions) (*Mirror, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("mirror configuration incomplete")
	}

	endpoint, secure, err := NormaliseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	m := &Mirror{client: client, bucket: opts.Bucket}
	if err := m.Check(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Bucket returns the target bucket name.
func (m *Mirror) Bucket() string { return m.bucket }

// Check verifies the bucket is reachable and exists.
func (m *Mirror) Check(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("mirror bucket check: %w", err)
	}
	if !exists {
		return fmt.Errorf("mirror bucket does not exist: %s", m.bucket)
	}
	return nil
}

// Put uploads the file at localPath under objectName.
func (m *Mirror) Put(ctx context.Context, localPath, objectName string) error {
	ctx, span := tracer.Start(ctx, "mirror.put")
	defer span.End()
	span.SetAttributes(
		attribute.String("mirror.bucket", m.bucket),
		attribute.String("mirror.object", objectName),
	)

	contentType := mime.TypeByExtension(filepath.Ext(objectName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := m.client.FPutObject(ctx, m.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put failed")
		return fmt.Errorf("mirror put %s: %w", objectName, err)
	}
	return nil
}
