package storage

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage removes attachment objects when their conversation is deleted.
// Uploads happen in the media service; this side only cleans up.
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	endpoint  string
	publicURL string // External URL
	useSSL    bool
}

// Config holds MinIO connection configuration
type Config struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIO creates a new MinIO storage client
func NewMinIO(ctx context.Context, cfg Config) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		log.Printf("⚠️  MinIO bucket %s does not exist, nothing to clean up yet", cfg.Bucket)
	}

	return &MinIOStorage{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  cfg.Endpoint,
		publicURL: cfg.PublicURL,
		useSSL:    cfg.UseSSL,
	}, nil
}

// GetPublicURL returns the public URL for an object
func (s *MinIOStorage) GetPublicURL(objectName string) string {
	return s.baseURL() + "/" + objectName
}

func (s *MinIOStorage) baseURL() string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.publicURL, "/"), s.bucket)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, s.endpoint, s.bucket)
}

// ObjectName extracts the object key from a URL produced by GetPublicURL.
// URLs that point elsewhere are reported as not ours.
func (s *MinIOStorage) ObjectName(rawURL string) (string, bool) {
	prefix := s.baseURL() + "/"
	if strings.HasPrefix(rawURL, prefix) {
		name := strings.TrimPrefix(rawURL, prefix)
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
		return name, name != ""
	}

	// Fall back to path-style URLs served through another host
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	name, ok := strings.CutPrefix(u.Path, "/"+s.bucket+"/")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// RemoveObjects deletes the objects behind urls. A nil storage is a no-op.
func (s *MinIOStorage) RemoveObjects(ctx context.Context, urls []string) error {
	if s == nil || s.client == nil || len(urls) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(urls))
	for _, u := range urls {
		if name, ok := s.ObjectName(u); ok {
			objects <- minio.ObjectInfo{Key: name}
		}
	}
	close(objects)

	var failed int
	var firstErr error
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		failed++
		if firstErr == nil {
			firstErr = rErr.Err
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to remove %d objects: %w", failed, firstErr)
	}
	return nil
}
