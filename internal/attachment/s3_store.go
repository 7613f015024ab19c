// Package attachment provides the object-store backend for expense receipt
// attachments. Attachments outlive the expenses that reference them, so a
// soft-deleted expense keeps its receipt. The core never depends on this
// package directly — it only ever stores the opaque domain.Attachment
// reference returned here (see domain.AttachmentStore).
package attachment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/config"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	thumbnailMaxWidth = 400
	jpegQuality       = 85
	presignExpiry     = 2 * time.Hour
)

// S3Store implements domain.AttachmentStore against an S3-compatible
// bucket (AWS S3 or a MinIO endpoint), with region/credentials/path-style
// endpoint override plus a resize-and-reencode pipeline, collapsed
// from three named variants (thumb/display/original) down to the two this
// domain needs: the original receipt and one thumbnail.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	repo      domain.AttachmentRepository
}

// NewS3Store builds an S3Store from the attachment backend configuration.
// A MinIO-compatible endpoint forces path-style addressing for local
// development.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, repo domain.AttachmentRepository) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(schemeFor(cfg) + cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.BucketName,
		repo:      repo,
	}, nil
}

func schemeFor(cfg config.StorageConfig) string {
	if cfg.UseSSL {
		return "https://"
	}
	return "http://"
}

// Upload validates, thumbnails, and stores a receipt image, then records
// its Attachment metadata row. Both the original and the thumbnail are
// re-encoded as JPEG before upload (never trust the client's original
// encoding for the variant it generates itself).
func (s *S3Store) Upload(ctx context.Context, groupID, uploaderID uuid.UUID, contentType string, data []byte) (*domain.Attachment, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	id := uuid.New()
	objectKey := fmt.Sprintf("%s/%s/original.jpg", groupID, id)
	thumbnailKey := fmt.Sprintf("%s/%s/thumb.jpg", groupID, id)

	if err := s.putJPEG(ctx, objectKey, img); err != nil {
		return nil, err
	}

	thumb := img
	if img.Bounds().Dx() > thumbnailMaxWidth {
		thumb = imaging.Resize(img, thumbnailMaxWidth, 0, imaging.Lanczos)
	}
	if err := s.putJPEG(ctx, thumbnailKey, thumb); err != nil {
		_ = s.delete(ctx, objectKey)
		return nil, err
	}

	attachment := &domain.Attachment{
		GroupID:      groupID,
		UploaderID:   uploaderID,
		StorageKey:   objectKey,
		ThumbnailKey: &thumbnailKey,
		ContentType:  "image/jpeg",
		SizeBytes:    int64(len(data)),
	}
	return s.repo.Create(attachment)
}

func (s *S3Store) putJPEG(ctx context.Context, key string, img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode attachment variant: %w", err)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String("image/jpeg"),
		ContentLength: aws.Int64(int64(buf.Len())),
	})
	if err != nil {
		return fmt.Errorf("upload attachment variant: %w", err)
	}
	return nil
}

func (s *S3Store) delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// URL resolves an attachment reference to a short-lived presigned GET URL
// for the original image.
func (s *S3Store) URL(ctx context.Context, attachmentID uuid.UUID) (string, error) {
	a, err := s.repo.GetByID(attachmentID)
	if err != nil {
		return "", err
	}
	return s.presign(ctx, a.StorageKey)
}

// ThumbnailURL resolves an attachment reference to a short-lived
// presigned GET URL for its thumbnail.
func (s *S3Store) ThumbnailURL(ctx context.Context, attachmentID uuid.UUID) (string, error) {
	a, err := s.repo.GetByID(attachmentID)
	if err != nil {
		return "", err
	}
	if a.ThumbnailKey == nil {
		return s.presign(ctx, a.StorageKey)
	}
	return s.presign(ctx, *a.ThumbnailKey)
}

func (s *S3Store) presign(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign attachment url: %w", err)
	}
	return req.URL, nil
}
