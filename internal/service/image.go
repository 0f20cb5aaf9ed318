package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pwoszkowski/macrospy/config"
)

// Max decoded size of one meal photo.
const maxPhotoBytes = 5 << 20

// PhotoStore persists analyzed meal photos. Implemented by ImageService;
// nil-able at the call sites so the server runs without a bucket configured.
type PhotoStore interface {
	UploadMealPhotos(ctx context.Context, userID uuid.UUID, images []string) ([]string, error)
}

// ImageService stores meal photos in S3.
type ImageService struct {
	client *s3.Client
	bucket string
}

// NewImageService creates an ImageService, or (nil, nil) when no bucket is
// configured.
func NewImageService(ctx context.Context, cfg *config.Config) (*ImageService, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &ImageService{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
	}, nil
}

// UploadMealPhotos decodes and validates base64 photos and writes each to the
// bucket, returning the object keys in input order.
func (s *ImageService) UploadMealPhotos(ctx context.Context, userID uuid.UUID, images []string) ([]string, error) {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		data, contentType, err := decodePhoto(img)
		if err != nil {
			return nil, err
		}

		ext := "jpg"
		if contentType == "image/png" {
			ext = "png"
		}
		key := fmt.Sprintf("meals/%s/%s.%s", userID, uuid.New(), ext)

		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload photo: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// decodePhoto strips an optional data-URL prefix, base64-decodes, and checks
// size and content type.
func decodePhoto(img string) ([]byte, string, error) {
	if idx := strings.Index(img, ";base64,"); idx >= 0 {
		img = img[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(img)
	if err != nil {
		return nil, "", fmt.Errorf("%w: photo is not valid base64", ErrInvalidInput)
	}
	if len(data) == 0 || len(data) > maxPhotoBytes {
		return nil, "", fmt.Errorf("%w: photo must be between 1 byte and %d MB", ErrInvalidInput, maxPhotoBytes>>20)
	}

	contentType := http.DetectContentType(data)
	if contentType != "image/jpeg" && contentType != "image/png" && contentType != "image/webp" {
		return nil, "", fmt.Errorf("%w: unsupported photo type %s", ErrInvalidInput, contentType)
	}
	return data, contentType, nil
}
