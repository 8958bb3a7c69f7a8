// Package media stores uploaded post images and their thumbnails.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/d60-Lab/yatube/config"
)

// Storage persists blobs under slash-separated paths such as "posts/x.jpg".
type Storage interface {
	Save(ctx context.Context, path, contentType string, data []byte) error
	URL(path string) string
}

// NewStorage picks the backend named by cfg.Backend.
func NewStorage(ctx context.Context, cfg config.MediaConfig) (Storage, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "local", "":
		return NewLocalStorage(cfg.Dir, cfg.URLPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
	}
}

// LocalStorage 写入本地目录，由 gin 的 Static 路由对外提供
type LocalStorage struct {
	dir       string
	urlPrefix string
}

func NewLocalStorage(dir, urlPrefix string) *LocalStorage {
	if urlPrefix == "" {
		urlPrefix = "/media/"
	}
	return &LocalStorage{dir: dir, urlPrefix: urlPrefix}
}

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Save(_ context.Context, path, _ string, data []byte) error {
	full := filepath.Join(s.dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write media file: %w", err)
	}
	return nil
}

func (s *LocalStorage) URL(path string) string {
	return strings.TrimRight(s.urlPrefix, "/") + "/" + strings.TrimLeft(path, "/")
}

// S3Storage 上传到 S3（或兼容 S3 的对象存储）
type S3Storage struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

func NewS3Storage(ctx context.Context, cfg config.MediaConfig) (*S3Storage, error) {
	region := cfg.S3Region
	if region == "" {
		region = "us-east-2"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	// bucket 可能误带路径后缀
	bucket := strings.SplitN(cfg.S3Bucket, "/", 2)[0]
	return &S3Storage{client: client, bucket: bucket, region: region, endpoint: strings.TrimRight(cfg.S3Endpoint, "/")}, nil
}

func (s *S3Storage) Save(ctx context.Context, path, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", path, err)
	}
	return nil
}

func (s *S3Storage) URL(path string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, path)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, path)
}
