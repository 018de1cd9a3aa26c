package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/platform/gcs"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
)

// UploadService issues signed PUT URLs for answer attachments. The
// returned object key is what clients embed in file-reference answers.
type UploadService interface {
	CreateUploadURL(ctx context.Context, userID uuid.UUID, filename, contentType string) (*gcs.SignedUpload, error)
}

type uploadService struct {
	log    *logger.Logger
	bucket gcs.BucketService
}

func NewUploadService(log *logger.Logger, bucket gcs.BucketService) UploadService {
	return &uploadService{
		log:    log.With("service", "UploadService"),
		bucket: bucket,
	}
}

func (us *uploadService) CreateUploadURL(ctx context.Context, userID uuid.UUID, filename, contentType string) (*gcs.SignedUpload, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, apierr.InvalidRequest(errors.New("filename required"))
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	key := us.bucket.ObjectKey(userID.String(), filename)
	signed, err := us.bucket.SignUploadURL(ctx, key, contentType)
	if err != nil {
		return nil, err
	}
	us.log.Info("Upload URL signed", "user_id", userID.String(), "key", key)
	return signed, nil
}
