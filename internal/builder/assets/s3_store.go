package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"page-builder/internal/builder/models"
)

// ============================================================
// S3 Storage
// ============================================================

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL: префикс ссылок на объекты. Если пусто, то <scheme>://<endpoint>/<bucket>.
	PublicURL string
	Quota     int64
}

type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	publicURL  string
	quota      int64
	initOnce   sync.Once
	initErr    error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucket,
		region:     region,
		publicURL:  publicBase(cfg, endpoint, bucket),
		quota:      cfg.Quota,
	}, nil
}

func publicBase(cfg S3Config, endpoint, bucket string) string {
	if u := strings.TrimSpace(cfg.PublicURL); u != "" {
		return strings.TrimSuffix(u, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint + "/" + bucket
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Store) List(ctx context.Context, owner string) ([]models.Asset, error) {
	if !validSegment(owner) {
		return nil, ErrInvalidName
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	prefix := owner + "/"
	out := []models.Asset{}
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		id := strings.TrimPrefix(obj.Key, prefix)
		if id == "" {
			continue
		}
		a := s.asset(owner, id, obj.Size, obj.ContentType)
		a.UploadedAt = obj.LastModified.UTC()
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (s *S3Store) Upload(ctx context.Context, owner, name string, r io.Reader) (models.Asset, error) {
	if !validSegment(owner) {
		return models.Asset{}, ErrInvalidName
	}
	mt, body, err := detect(r)
	if err != nil {
		return models.Asset{}, fmt.Errorf("read upload: %w", err)
	}
	if !supported(mt) {
		return models.Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}
	if err := s.ensureBucket(ctx); err != nil {
		return models.Asset{}, fmt.Errorf("ensure bucket: %w", err)
	}

	var remaining int64 = -1
	if s.quota > 0 {
		used, err := s.usage(ctx, owner)
		if err != nil {
			return models.Asset{}, err
		}
		remaining = s.quota - used
		if remaining <= 0 {
			return models.Asset{}, ErrQuotaExceeded
		}
		body = io.LimitReader(body, remaining+1)
	}

	// размер нужен заранее: и для квоты, и для PutObject
	content, err := io.ReadAll(body)
	if err != nil {
		return models.Asset{}, fmt.Errorf("read upload: %w", err)
	}
	if remaining >= 0 && int64(len(content)) > remaining {
		return models.Asset{}, ErrQuotaExceeded
	}

	id := newAssetID(name)
	info, err := s.client.PutObject(ctx, s.bucketName, objectKey(owner, id), bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: mt.String(),
	})
	if err != nil {
		return models.Asset{}, fmt.Errorf("put object: %w", err)
	}

	a := s.asset(owner, id, info.Size, mt.String())
	a.UploadedAt = info.LastModified.UTC()
	if info.LastModified.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	return a, nil
}

func (s *S3Store) Delete(ctx context.Context, owner, id string) error {
	if !validSegment(owner) || !validSegment(id) {
		return ErrInvalidName
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	key := objectKey(owner, id)
	if _, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrNotFound
		}
		return fmt.Errorf("stat object: %w", err)
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *S3Store) usage(ctx context.Context, owner string) (int64, error) {
	var total int64
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    owner + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return 0, obj.Err
		}
		total += obj.Size
	}
	return total, nil
}

func (s *S3Store) asset(owner, id string, size int64, contentType string) models.Asset {
	return models.Asset{
		ID:          id,
		URL:         s.publicURL + "/" + objectKey(owner, id),
		Name:        nameFromID(id),
		Size:        size,
		ContentType: contentType,
	}
}

func objectKey(owner, id string) string {
	return strings.TrimSpace(owner) + "/" + strings.TrimLeft(strings.TrimSpace(id), "/")
}
