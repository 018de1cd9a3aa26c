package gcs

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/coursemap-backend/internal/platform/envutil"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
)

// BucketService signs direct-upload URLs for answer attachments. The
// backend never proxies file bytes; clients PUT straight to the bucket
// and submit the resulting object key as file-reference answer data.
type BucketService interface {
	SignUploadURL(ctx context.Context, key string, contentType string) (*SignedUpload, error)
	ObjectKey(userID string, filename string) string
}

type SignedUpload struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type bucketService struct {
	log        *logger.Logger
	client     *storage.Client
	bucketName string
	expiry     time.Duration
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	bucketName := strings.TrimSpace(os.Getenv("UPLOAD_GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing UPLOAD_GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if creds := strings.TrimSpace(os.Getenv("UPLOAD_GCS_CREDENTIALS")); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	return &bucketService{
		log:        log.With("client", "BucketService"),
		client:     client,
		bucketName: bucketName,
		expiry:     envutil.Seconds("UPLOAD_URL_TTL_SECONDS", 15*time.Minute),
	}, nil
}

func (bs *bucketService) SignUploadURL(ctx context.Context, key string, contentType string) (*SignedUpload, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return nil, fmt.Errorf("object key required")
	}

	expires := time.Now().Add(bs.expiry)
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "PUT",
		Expires: expires,
	}
	if ct := strings.TrimSpace(contentType); ct != "" {
		opts.ContentType = ct
	}

	url, err := bs.client.Bucket(bs.bucketName).SignedURL(key, opts)
	if err != nil {
		return nil, fmt.Errorf("sign upload url: %w", err)
	}

	return &SignedUpload{
		URL:       url,
		Method:    "PUT",
		Key:       key,
		ExpiresAt: expires,
	}, nil
}

// ObjectKey namespaces uploads per user and keeps the original
// extension for content-type sniffing downstream.
func (bs *bucketService) ObjectKey(userID string, filename string) string {
	base := path.Base(strings.TrimSpace(filename))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("uploads/%s/%d-%s", userID, time.Now().UnixNano(), base)
}
