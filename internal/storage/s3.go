package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// StoredObject describes a successfully uploaded file.
type StoredObject struct {
	Key         string
	FileName    string
	ContentType string
	SizeBytes   int64
}

// FileMetadata reports object metadata from storage.
type FileMetadata struct {
	Key           string
	ContentType   string
	ContentLength int64
	LastModified  time.Time
	Metadata      map[string]string
}

// ObjectStore abstracts the object storage operations the services need.
type ObjectStore interface {
	UploadFile(ctx context.Context, file UploadInput, userID, ticketID string) (*StoredObject, error)
	GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
	GetFileStream(ctx context.Context, key string) (io.ReadCloser, string, error)
	DeleteFile(ctx context.Context, key string) error
	DeleteFiles(ctx context.Context, keys []string) []string
	GetFileMetadata(ctx context.Context, key string) (*FileMetadata, error)
	CheckFileExists(ctx context.Context, key string) (bool, error)
}

// S3Store implements ObjectStore against an S3-compatible bucket.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     config.StorageConfig
	logger  *zap.Logger
}

// NewS3Store builds the client. A custom endpoint switches to path-style
// addressing for S3-compatible stores such as MinIO.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("object storage configured",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region))

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// UploadFile validates the file and writes it under a collision-resistant key
// namespaced by ticket and user.
func (s *S3Store) UploadFile(ctx context.Context, file UploadInput, userID, ticketID string) (*StoredObject, error) {
	if err := ValidateUpload(file, s.cfg.MaxFileSizeBytes); err != nil {
		return nil, err
	}

	key := s.objectKey(userID, ticketID, file.FileName)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout())
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Body),
		ContentType: aws.String(file.ContentType),
		Metadata: map[string]string{
			"original-name": file.FileName,
			"uploaded-by":   userID,
			"uploaded-at":   strconv.FormatInt(time.Now().Unix(), 10),
		},
	})
	if err != nil {
		return nil, apperrors.NewUpstreamFailure("file upload", err)
	}

	return &StoredObject{
		Key:         key,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		SizeBytes:   int64(len(file.Body)),
	}, nil
}

// GetSignedURL issues a time-boxed read URL.
func (s *S3Store) GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		expiresIn = s.cfg.SignedURLTTL()
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", apperrors.NewUpstreamFailure("signed url generation", err)
	}
	return req.URL, nil
}

// GetFileStream opens a streaming read so handlers can proxy bytes without
// exposing credentials. The caller owns the returned reader.
func (s *S3Store) GetFileStream(ctx context.Context, key string) (io.ReadCloser, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout())
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, "", apperrors.NewNotFound("attachment", nil)
		}
		return nil, "", apperrors.NewUpstreamFailure("file download", err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// DeleteFile removes a single object.
func (s *S3Store) DeleteFile(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout())
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperrors.NewUpstreamFailure("file deletion", err)
	}
	return nil
}

// DeleteFiles removes objects best-effort per key and returns the keys that
// failed; a failure on one key never blocks the rest.
func (s *S3Store) DeleteFiles(ctx context.Context, keys []string) []string {
	var failed []string
	for _, key := range keys {
		if err := s.DeleteFile(ctx, key); err != nil {
			s.logger.Warn("failed to delete storage object",
				zap.String("key", key), zap.Error(err))
			failed = append(failed, key)
		}
	}
	return failed
}

// GetFileMetadata heads the object.
func (s *S3Store) GetFileMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout())
	defer cancel()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, apperrors.NewNotFound("attachment", nil)
		}
		return nil, apperrors.NewUpstreamFailure("file metadata", err)
	}

	return &FileMetadata{
		Key:           key,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
		LastModified:  aws.ToTime(out.LastModified),
		Metadata:      out.Metadata,
	}, nil
}

// CheckFileExists reports object presence without downloading it.
func (s *S3Store) CheckFileExists(ctx context.Context, key string) (bool, error) {
	_, err := s.GetFileMetadata(ctx, key)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) objectKey(userID, ticketID, fileName string) string {
	scope := "general"
	if ticketID != "" {
		scope = ticketID
	}
	return fmt.Sprintf("%s/%s/%s/%s-%s", s.cfg.KeyPrefix, scope, userID, uuid.NewString(), sanitizeFileName(fileName))
}
