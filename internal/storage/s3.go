package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// BaseURL is the public prefix objects are served from.
	BaseURL string
}

// S3 stores objects in a MinIO or AWS S3 bucket.
type S3 struct {
	cfg    S3Config
	client *minio.Client
}

func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &S3{cfg: cfg, client: cl}, nil
}

// EnsureBucket creates the bucket on first start.
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *S3) Put(ctx context.Context, key, contentType string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, k,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *S3) Remove(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	return s.client.RemoveObject(ctx, s.cfg.Bucket, k, minio.RemoveObjectOptions{})
}

func (s *S3) URL(key string) string {
	if s.cfg.BaseURL != "" {
		return joinURL(s.cfg.BaseURL, key)
	}
	scheme := "http://"
	if s.cfg.UseSSL {
		scheme = "https://"
	}
	return scheme + s.client.EndpointURL().Host + "/" + s.cfg.Bucket + "/" + key
}
