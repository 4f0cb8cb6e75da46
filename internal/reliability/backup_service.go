// Package reliability provides offsite backup of the run-history database
// and host health monitoring for the rebalance service.
package reliability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/events"
)

// S3Client wraps the AWS S3 SDK for snapshot upload and listing.
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// NewS3Client builds an S3 client from the default AWS provider chain.
// Pass non-empty static credentials to override the chain.
func NewS3Client(ctx context.Context, bucket, accessKeyID, secretAccessKey string, log zerolog.Logger) (*S3Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("backup bucket not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024 // 10 MB parts
		u.Concurrency = 5
	})

	return &S3Client{
		client:   client,
		uploader: uploader,
		bucket:   bucket,
		log:      log.With().Str("component", "s3_client").Logger(),
	}, nil
}

// Upload streams a local file to the bucket under key.
func (c *S3Client) Upload(ctx context.Context, key, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open backup source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat backup source: %w", err)
	}

	c.log.Info().Str("key", key).Int64("size", info.Size()).Msg("Starting backup upload")

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}

	c.log.Info().Str("key", key).Msg("Backup uploaded")
	return nil
}

// List returns the keys currently stored under prefix, newest first.
func (c *S3Client) List(ctx context.Context, prefix string) ([]string, error) {
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	keys := make([]string, 0, len(out.Contents))
	for i := len(out.Contents) - 1; i >= 0; i-- {
		keys = append(keys, aws.ToString(out.Contents[i].Key))
	}
	return keys, nil
}

// Delete removes one stored backup.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete backup %s: %w", key, err)
	}
	return nil
}

// BackupService snapshots the run-history database to S3.
type BackupService struct {
	client *S3Client
	dbPath string
	prefix string
	bus    *events.Bus
	log    zerolog.Logger
}

// NewBackupService wires a BackupService. client may be nil, in which case
// BackupNow reports backup as disabled.
func NewBackupService(client *S3Client, dbPath, prefix string, bus *events.Bus, log zerolog.Logger) *BackupService {
	return &BackupService{
		client: client,
		dbPath: dbPath,
		prefix: prefix,
		bus:    bus,
		log:    log.With().Str("component", "backup_service").Logger(),
	}
}

// Enabled reports whether an upload target is configured.
func (s *BackupService) Enabled() bool {
	return s.client != nil
}

// BackupNow uploads the current database file under a timestamped key and
// emits a BackupCompleted / BackupFailed event.
func (s *BackupService) BackupNow(ctx context.Context) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("backup not configured")
	}

	key := fmt.Sprintf("%s/%s-%s", s.prefix,
		time.Now().UTC().Format("20060102-150405"), filepath.Base(s.dbPath))

	if err := s.client.Upload(ctx, key, s.dbPath); err != nil {
		s.bus.Emit(events.BackupFailed, "reliability", map[string]interface{}{"error": err.Error()})
		return "", err
	}

	s.bus.Emit(events.BackupCompleted, "reliability", map[string]interface{}{"key": key})
	return key, nil
}

// ListBackups returns stored backup keys.
func (s *BackupService) ListBackups(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("backup not configured")
	}
	return s.client.List(ctx, s.prefix)
}

// Rotate deletes the oldest backups beyond keep.
func (s *BackupService) Rotate(ctx context.Context, keep int) error {
	if s.client == nil {
		return fmt.Errorf("backup not configured")
	}
	keys, err := s.client.List(ctx, s.prefix)
	if err != nil {
		return err
	}
	if len(keys) <= keep {
		return nil
	}
	// List returns newest first; everything past keep is stale.
	for _, key := range keys[keep:] {
		if err := s.client.Delete(ctx, key); err != nil {
			return err
		}
		s.log.Info().Str("key", key).Msg("Rotated old backup")
	}
	return nil
}
