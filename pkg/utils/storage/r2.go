package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"fruitbox_backend/pkg/config"
)

var ErrNotConfigured = errors.New("image storage not configured")

// ImageStore guarda as imagens de produtos e planos
type ImageStore interface {
	Upload(ctx context.Context, folder, name, ext, contentType string, body []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// objectAPI é o subconjunto do cliente S3 usado aqui
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// R2Store fala com o Cloudflare R2 pela API do S3
type R2Store struct {
	client    objectAPI
	bucket    string
	publicURL string
}

func NewR2Store(ctx context.Context, cfg config.R2Config) (*R2Store, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		o.UsePathStyle = true
	})

	return &R2Store{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(cfg.PublicURL, "/")}, nil
}

// ObjectKey monta um caminho URL-safe e único: products/manga-palmer/1697040000-<uuid>.webp
func ObjectKey(folder, name, ext string, now time.Time) string {
	unique := fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString())
	return path.Join(slug.Make(folder), slug.Make(name), unique+ext)
}

func (s *R2Store) Upload(ctx context.Context, folder, name, ext, contentType string, body []byte) (string, error) {
	key := ObjectKey(folder, name, ext, time.Now())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload file to R2: %w", err)
	}

	return s.publicURL + "/" + key, nil
}

func (s *R2Store) Delete(ctx context.Context, url string) error {
	key := s.objectKeyFromURL(url)
	if key == "" {
		return fmt.Errorf("url %q does not belong to bucket", url)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("could not delete file from R2: %w", err)
	}
	return nil
}

func (s *R2Store) objectKeyFromURL(url string) string {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
