package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"go.uber.org/zap"

	"github.com/lumen-social/lumen/pkg/config"
	"github.com/lumen-social/lumen/pkg/logging"
)

// MaxObjectSize is the largest object Upload accepts
const MaxObjectSize int64 = 10 << 20

var (
	// ErrDisabled is returned when storage is not configured
	ErrDisabled = errors.New("storage is disabled")
	// ErrTooLarge is returned for objects above MaxObjectSize
	ErrTooLarge = errors.New("object exceeds maximum size")
	// ErrUnsupportedType is returned for content types that are not accepted
	ErrUnsupportedType = errors.New("unsupported content type")
)

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"video/mp4":  "mp4",
}

// objectAPI is the part of *oss.Client used here
type objectAPI interface {
	PutObject(ctx context.Context, request *oss.PutObjectRequest, optFns ...func(*oss.Options)) (*oss.PutObjectResult, error)
	DeleteObject(ctx context.Context, request *oss.DeleteObjectRequest, optFns ...func(*oss.Options)) (*oss.DeleteObjectResult, error)
	Presign(ctx context.Context, request any, optFns ...func(*oss.PresignOptions)) (*oss.PresignResult, error)
}

// Object is an uploaded object
type Object struct {
	Bucket      string `json:"bucket"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Store uploads media to OSS buckets and builds their public URLs
type Store struct {
	client       objectAPI
	endpoint     string
	publicDomain string
	cacheControl string
	now          func() time.Time
	logger       *zap.Logger
}

// New creates a Store. Credentials come from OSS_ACCESS_KEY_ID and
// OSS_ACCESS_KEY_SECRET. A disabled config yields a nil *Store.
func New(cfg *config.StorageConfig) *Store {
	if !cfg.Enabled {
		logging.GetLogger().Info("Object storage disabled")
		return nil
	}
	ossCfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewEnvironmentVariableCredentialsProvider()).
		WithEndpoint(cfg.Endpoint).
		WithRegion(cfg.Region)
	return newStore(oss.NewClient(ossCfg), cfg)
}

func newStore(client objectAPI, cfg *config.StorageConfig) *Store {
	return &Store{
		client:       client,
		endpoint:     strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://"),
		publicDomain: strings.TrimRight(cfg.PublicDomain, "/"),
		cacheControl: cfg.CacheControl,
		now:          time.Now,
		logger:       logging.WithComponent("storage"),
	}
}

// ObjectPath returns "<userID>/<unix millis>.<ext>"
func ObjectPath(userID, ext string, at time.Time) string {
	return fmt.Sprintf("%s/%d.%s", userID, at.UnixMilli(), strings.TrimPrefix(ext, "."))
}

// Extension returns the file extension for an accepted content type
func Extension(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := extensions[ct]
	return ext, ok
}

// PublicURL returns the public address of bucket/path
func (s *Store) PublicURL(bucket, path string) string {
	if s.publicDomain != "" {
		return s.publicDomain + "/" + bucket + "/" + path
	}
	return "https://" + bucket + "." + s.endpoint + "/" + path
}

// Upload stores body for userID in bucket and returns the object with its
// public URL. The content type is sniffed from the data.
func (s *Store) Upload(ctx context.Context, bucket, userID string, body []byte) (*Object, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	if int64(len(body)) > MaxObjectSize {
		return nil, ErrTooLarge
	}
	contentType := http.DetectContentType(body)
	ext, ok := Extension(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	path := ObjectPath(userID, ext, s.now())
	req := &oss.PutObjectRequest{
		Bucket:      oss.Ptr(bucket),
		Key:         oss.Ptr(path),
		Body:        bytes.NewReader(body),
		ContentType: oss.Ptr(contentType),
	}
	if s.cacheControl != "" {
		req.CacheControl = oss.Ptr(s.cacheControl)
	}
	if _, err := s.client.PutObject(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to upload %s/%s: %w", bucket, path, err)
	}

	s.logger.Debug("object uploaded", zap.String("bucket", bucket), zap.String("path", path))
	return &Object{
		Bucket:      bucket,
		Path:        path,
		URL:         s.PublicURL(bucket, path),
		ContentType: contentType,
	}, nil
}

// Delete removes bucket/path
func (s *Store) Delete(ctx context.Context, bucket, path string) error {
	if s == nil {
		return ErrDisabled
	}
	_, err := s.client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(bucket),
		Key:    oss.Ptr(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, path, err)
	}
	return nil
}

// SignURL returns a temporary download URL for bucket/path
func (s *Store) SignURL(ctx context.Context, bucket, path string, expires time.Duration) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	res, err := s.client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(bucket),
		Key:    oss.Ptr(path),
	}, oss.PresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s/%s: %w", bucket, path, err)
	}
	return res.URL, nil
}

// PathFromURL recovers the object path of a URL built by PublicURL
func (s *Store) PathFromURL(bucket, url string) (string, bool) {
	if s == nil {
		return "", false
	}
	prefix := s.PublicURL(bucket, "")
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
