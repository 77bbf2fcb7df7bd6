package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// DefaultS3Bucket is the bucket used when none is configured.
const DefaultS3Bucket = "briskk-data-ingestion"

// BlobStore stores an image reference and returns a stable URL for it.
type BlobStore interface {
	Upload(ctx context.Context, ref string) (string, error)
}

// S3Store names objects in an S3 bucket with random keys. The object URL is
// derived from the bucket and key; no bytes are transferred.
type S3Store struct {
	bucket string
}

// NewS3Store creates a store for the given bucket
func NewS3Store(bucket string) *S3Store {
	if bucket == "" {
		bucket = DefaultS3Bucket
	}
	return &S3Store{bucket: bucket}
}

func (s *S3Store) Upload(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s.jpg", s.bucket, uuid.New().String()), nil
}

// CloudinaryStore uploads images to Cloudinary. Cloudinary fetches remote
// URLs itself and reads local paths from disk, so the reference is passed
// through unchanged.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore creates a store from a cloudinary:// URL
func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL is required")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	if folder == "" {
		folder = "catalog"
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, ref string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, ref, uploader.UploadParams{
		PublicID:     uuid.New().String(),
		Folder:       s.folder,
		Overwrite:    &[]bool{false}[0],
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}

	url := result.SecureURL
	if url == "" {
		url = result.URL
	}
	if url == "" {
		return "", fmt.Errorf("cloudinary returned no URL for %s", ref)
	}
	return forceHTTPS(url), nil
}

func forceHTTPS(in string) string {
	out := strings.TrimSpace(in)
	return strings.Replace(out, "http://", "https://", 1)
}
