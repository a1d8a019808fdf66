// Package storage provides the durable blob storage collaborator. Video
// bytes never pass through this server; clinics upload directly against a
// presigned PUT URL and patients stream from a presigned GET URL.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"ultrasound-portal-server/internal/config"
)

// URLExpiry bounds how long an issued upload or download URL stays valid.
const URLExpiry = 15 * time.Minute

// BlobStore issues URLs for uploading and fetching video files.
type BlobStore interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// S3Store implements BlobStore against any S3-compatible endpoint
// (AWS S3 or MinIO).
type S3Store struct {
	cfg config.StorageConfig
}

// NewS3Store creates an S3Store from the application storage settings.
func NewS3Store(cfg config.StorageConfig) *S3Store {
	return &S3Store{cfg: cfg}
}

// VideoKey generates a fresh object key for a patient's video upload.
func VideoKey(patientID string) string {
	return fmt.Sprintf("videos/%s/%s", patientID, uuid.New())
}

func (s *S3Store) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey,
			s.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return s3.NewPresignClient(client), nil
}

// PresignPut returns a URL the client can PUT the video file to.
func (s *S3Store) PresignPut(ctx context.Context, key string) (string, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := pc.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignGet returns a URL the stored video file can be fetched from.
func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := pc.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
