package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	appconfig "food-rescue-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type putPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AvatarService issues pre-signed upload URLs for profile pictures
type AvatarService struct {
	presigner putPresigner
	bucket    string
	region    string
	publicURL string
	expiry    time.Duration
}

// NewAvatarService creates a new avatar service. It returns nil when no
// bucket is configured.
func NewAvatarService(ctx context.Context, cfg appconfig.AWSConfig) (*AvatarService, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newAvatarService(s3.NewPresignClient(client), cfg), nil
}

func newAvatarService(p putPresigner, cfg appconfig.AWSConfig) *AvatarService {
	expiry := cfg.UploadExpiry
	if expiry <= 0 {
		expiry = 5 * time.Minute
	}
	return &AvatarService{
		presigner: p,
		bucket:    cfg.S3Bucket,
		region:    cfg.Region,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
	}
}

// AvatarUploadRequest represents a request for an avatar upload URL
type AvatarUploadRequest struct {
	ContentType string `json:"content_type" validate:"required,oneof=image/jpeg image/png image/webp"`
}

// AvatarUploadResponse carries the pre-signed URL and the address the
// avatar will be served from once uploaded.
type AvatarUploadResponse struct {
	UploadURL string `json:"upload_url"`
	AvatarURL string `json:"avatar_url"`
	ExpiresIn int    `json:"expires_in"`
}

// GetUploadURL generates a pre-signed URL for uploading the user's avatar
func (s *AvatarService) GetUploadURL(ctx context.Context, userID string, req AvatarUploadRequest) (*AvatarUploadResponse, error) {
	if s == nil {
		return nil, ErrUploadsDisabled
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	// avatars/{user_id}/{uuid}.{ext}
	key := fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.New().String(), avatarExtensions[req.ContentType])

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &AvatarUploadResponse{
		UploadURL: request.URL,
		AvatarURL: s.objectURL(key),
		ExpiresIn: int(s.expiry.Seconds()),
	}, nil
}

func (s *AvatarService) objectURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
