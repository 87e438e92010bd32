// Package storage stores progress photos and their thumbnails on local disk
// or in a MinIO bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"goTheNineAPI/internal/config"
)

// Provider puts and removes objects and returns their public URL.
type Provider interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type LocalProvider struct {
	Root    string
	BaseURL string
}

func NewLocalProvider(root, baseURL string) *LocalProvider {
	return &LocalProvider{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (p *LocalProvider) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty object key")
	}
	return filepath.Join(p.Root, clean), nil
}

func (p *LocalProvider) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	dst, err := p.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return p.URL(key), nil
}

func (p *LocalProvider) Delete(_ context.Context, key string) error {
	dst, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *LocalProvider) URL(key string) string {
	return p.BaseURL + "/" + strings.TrimLeft(key, "/")
}

type MinioProvider struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

func NewMinioProvider(ctx context.Context, cfg config.StorageConfig) (*MinioProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
	}

	return &MinioProvider{client: client, bucket: cfg.MinioBucket, endpoint: cfg.MinioEndpoint, secure: cfg.MinioUseSSL}, nil
}

func (p *MinioProvider) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := p.client.PutObject(ctx, p.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return p.URL(key), nil
}

func (p *MinioProvider) Delete(ctx context.Context, key string) error {
	return p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioProvider) URL(key string) string {
	scheme := "http"
	if p.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, p.endpoint, p.bucket, key)
}

// NewProvider picks the provider named by cfg.Type.
func NewProvider(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	switch cfg.Type {
	case "minio":
		return NewMinioProvider(ctx, cfg)
	case "local", "":
		return NewLocalProvider(cfg.LocalPath, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
