package assetstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/transbraille/transbraille/internal/config"
)

const contentTypeJPEG = "image/jpeg"

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 stores objects in an S3 bucket. URLs are either public-base URLs or
// presigned GET URLs.
type S3 struct {
	client    s3API
	presigner s3Presigner
	bucket    string
	prefix    string
	publicURL string
	expiry    time.Duration
}

// NewS3 loads AWS credentials the standard way (environment, shared config,
// instance role).
func NewS3(ctx context.Context, cfg config.StoreConfig) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		publicURL: cfg.PublicURL,
		expiry:    cfg.PresignExpiry,
	}, nil
}

func (s *S3) Upload(ctx context.Context, localPath, displayName string) (Ref, error) {
	key, err := objectKey(s.prefix, displayName)
	if err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}
	defer file.Close()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentTypeJPEG),
	}); err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	objectURL, err := s.objectURL(ctx, key)
	if err != nil {
		// A staged entry needs a URL, so the object is useless without one.
		if _, derr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); derr != nil {
			slog.Warn("Failed to remove object after presign failure", "key", key, "err", derr)
		}
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	slog.Debug("Stored object", "backend", "s3", "bucket", s.bucket, "key", key)
	return Ref{Reference: key, URL: objectURL}, nil
}

func (s *S3) Delete(ctx context.Context, reference string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(reference),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			err = ErrNotFound
		}
		return &DeleteError{Reference: reference, Err: err}
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(reference),
	}); err != nil {
		return &DeleteError{Reference: reference, Err: err}
	}
	return nil
}

func (s *S3) objectURL(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		return joinURL(s.publicURL, key), nil
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}
