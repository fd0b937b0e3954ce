package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// FolderVideos is the S3 prefix for video artifacts.
	FolderVideos = "videos"
	// FolderThumbnails is the S3 prefix for thumbnail artifacts.
	FolderThumbnails = "thumbnails"
	// FolderUsers is the S3 prefix for manual user uploads.
	FolderUsers = "users"
)

// ObjectMeta is descriptive metadata attached to uploaded artifacts.
type ObjectMeta struct {
	Title     string
	Summary   string
	Category  string
	IsPrivate bool
	Source    string
}

// ObjectInfo describes one stored object for listings.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	SignedURL    string    `json:"signed_url,omitempty"`
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	Bucket               string
	PresignExpireMinutes int
}

// S3 provides object storage operations over a single media bucket.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using static credentials from config, falling
// back to the default credential chain when none are configured.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024 // 5MB parts for streaming
	})
	return &S3{
		client:   client,
		uploader: uploader,
		presign:  s3.NewPresignClient(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Bucket returns the media bucket name.
func (s *S3) Bucket() string { return s.cfg.Bucket }

// VideoKey returns the S3 object key for an archive's video: videos/{archiveID}.mp4.
func VideoKey(archiveID string) string {
	return path.Join(FolderVideos, archiveID+".mp4")
}

// ThumbnailKey returns the S3 object key for an archive's thumbnail: thumbnails/{archiveID}.png.
func ThumbnailKey(archiveID string) string {
	return path.Join(FolderThumbnails, archiveID+".png")
}

// UserUploadKey returns the S3 object key for a manual upload:
// users/{userID}/{sanitized-title}-{token}{ext}. The random token keeps two
// uploads with the same title from colliding.
func UserUploadKey(userID, title, token, ext string) string {
	return path.Join(FolderUsers, userID, SanitizeTitle(title)+"-"+token+ext)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeTitle replaces runs of non-alphanumeric characters with a single
// dash and lowercases the result. Empty titles become "untitled".
func SanitizeTitle(title string) string {
	s := nonAlphanumeric.ReplaceAllString(title, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return strings.ToLower(s)
}

// Upload streams a reader to S3 under key with descriptive metadata and
// returns the public object URL.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, meta ObjectMeta) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"title":      meta.Title,
			"summary":    meta.Summary,
			"category":   meta.Category,
			"is-private": fmt.Sprintf("%t", meta.IsPrivate),
			"source":     meta.Source,
		},
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return s.PublicObjectURL(key), nil
}

// Download returns the object body and content type. The caller must close
// the reader.
func (s *S3) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("s3 get %s: %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// Delete removes an object.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// List returns objects under prefix with presigned download URLs.
func (s *S3) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
	}
	infos := make([]ObjectInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		info := ObjectInfo{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		if url, err := s.PresignDownload(ctx, info.Key, s.PresignExpire()); err == nil {
			info.SignedURL = url
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// PresignDownload returns a pre-signed GET URL for a key.
func (s *S3) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// PublicObjectURL returns the direct URL for an object (no signing).
func (s *S3) PublicObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
