package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("photo storage is not configured")

// PhotoKind distinguishes the two images attached to every capture.
type PhotoKind string

const (
	PhotoKindFull  PhotoKind = "full"
	PhotoKindPlate PhotoKind = "plate"
)

func (k PhotoKind) Valid() bool {
	return k == PhotoKindFull || k == PhotoKindPlate
}

// PhotoStore keeps capture images in an R2 bucket and hands back public
// URLs for the stored records.
type PhotoStore struct {
	client        *s3.Client
	bucket        string
	endpoint      string
	publicBaseURL string
}

type r2Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
}

func NewPhotoStoreFromEnv() (*PhotoStore, error) {
	cfg := r2Config{
		Endpoint:      strings.TrimSpace(os.Getenv("R2_ENDPOINT")),
		AccessKey:     strings.TrimSpace(os.Getenv("R2_ACCESS_KEY_ID")),
		SecretKey:     strings.TrimSpace(os.Getenv("R2_SECRET_ACCESS_KEY")),
		Bucket:        strings.TrimSpace(os.Getenv("R2_BUCKET")),
		Region:        strings.TrimSpace(os.Getenv("R2_REGION")),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("R2_PUBLIC_BASE_URL")), "/"),
	}

	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg := aws.Config{
		Region:                      cfg.Region,
		Credentials:                 credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		EndpointResolverWithOptions: resolver,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &PhotoStore{
		client:        client,
		bucket:        cfg.Bucket,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// UploadCapture stores one capture image and returns its public URL. Keys
// are date-partitioned so buckets stay browsable: captures/2026/08/30/<uuid>-full.jpg.
func (p *PhotoStore) UploadCapture(ctx context.Context, kind PhotoKind, filename string, body io.Reader, size int64, contentType string) (string, error) {
	if p == nil || p.client == nil {
		return "", ErrNotConfigured
	}
	if !kind.Valid() {
		return "", fmt.Errorf("unknown photo kind %q", kind)
	}
	if size <= 0 {
		return "", fmt.Errorf("empty file")
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("captures/%s/%s-%s%s",
		time.Now().UTC().Format("2006/01/02"), uuid.NewString(), kind, ext)

	input := &s3.PutObjectInput{
		Bucket:        &p.bucket,
		Key:           &key,
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("photo upload failed: %w", err)
	}
	return p.objectURL(key), nil
}

func (p *PhotoStore) objectURL(key string) string {
	trimmedKey := strings.TrimLeft(key, "/")
	if p.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", p.publicBaseURL, p.bucket, trimmedKey)
	}
	return fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, trimmedKey)
}
