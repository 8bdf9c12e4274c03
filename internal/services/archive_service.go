// internal/services/archive_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/suppleit/suppleit-backend/internal/config"
)

const maxSlugRunes = 40

// ResponseArchiver keeps a copy of raw upstream responses.
type ResponseArchiver interface {
	Archive(ctx context.Context, keyword string, body []byte) (*ArchiveResult, error)
}

type ArchiveResult struct {
	Location string `json:"location"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
}

// ArchiveService writes raw upstream bodies to S3, or to a local directory
// when no AWS credentials are configured.
type ArchiveService struct {
	s3Client *s3.S3
	bucket   string
	prefix   string
	localDir string
	now      func() time.Time
}

func NewArchiveService(awsCfg config.AWSConfig, archiveCfg config.ArchiveConfig) (*ArchiveService, error) {
	service := &ArchiveService{
		bucket:   awsCfg.S3Bucket,
		prefix:   strings.Trim(archiveCfg.Prefix, "/"),
		localDir: archiveCfg.LocalDir,
		now:      time.Now,
	}

	if awsCfg.AccessKeyID == "" {
		if service.localDir == "" {
			return nil, fmt.Errorf("archive requires AWS credentials or a local directory")
		}
		return service, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(awsCfg.Region),
		Credentials: credentials.NewStaticCredentials(
			awsCfg.AccessKeyID,
			awsCfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	service.s3Client = s3.New(sess)
	return service, nil
}

func (s *ArchiveService) Archive(ctx context.Context, keyword string, body []byte) (*ArchiveResult, error) {
	key := s.objectKey(keyword)

	if s.s3Client != nil {
		return s.archiveToS3(ctx, key, body)
	}
	return s.archiveToLocal(key, body)
}

func (s *ArchiveService) archiveToS3(ctx context.Context, key string, body []byte) (*ArchiveResult, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &ArchiveResult{
		Location: fmt.Sprintf("s3://%s/%s", s.bucket, key),
		Key:      key,
		Size:     int64(len(body)),
	}, nil
}

func (s *ArchiveService) archiveToLocal(key string, body []byte) (*ArchiveResult, error) {
	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write archive file: %w", err)
	}

	return &ArchiveResult{
		Location: path,
		Key:      key,
		Size:     int64(len(body)),
	}, nil
}

func (s *ArchiveService) objectKey(keyword string) string {
	id := uuid.New()
	date := s.now().Format("20060102")
	filename := fmt.Sprintf("%s_%s.json", slugify(keyword), id.String()[:8])

	if s.prefix != "" {
		return fmt.Sprintf("%s/%s/%s", s.prefix, date, filename)
	}
	return fmt.Sprintf("%s/%s", date, filename)
}

// slugify keeps letters and digits of any script so Korean keywords stay
// readable in object keys.
func slugify(keyword string) string {
	var b strings.Builder
	runes := 0
	lastDash := false
	for _, r := range strings.TrimSpace(keyword) {
		if runes >= maxSlugRunes {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteRune('-')
			lastDash = true
		default:
			continue
		}
		runes++
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "keyword"
	}
	return slug
}
