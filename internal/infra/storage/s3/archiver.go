package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"monteur/internal/app/dto"
	"monteur/internal/app/policies"
)

type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archiver writes purge snapshots as JSON objects into a private bucket.
type Archiver struct {
	bucket         string
	prefix         string
	client         objectStore
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

type Config struct {
	Endpoint  string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

func NewArchiver(cfg Config, logger *slog.Logger) (*Archiver, error) {
	cleanEndpoint := strings.TrimSpace(cfg.Endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	client, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return newArchiver(client, bucket, cfg.Prefix, logger), nil
}

func newArchiver(client objectStore, bucket, prefix string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "purged-reservations"
	}
	return &Archiver{bucket: bucket, prefix: prefix, client: client, logger: logger}
}

func (a *Archiver) Archive(ctx context.Context, snapshot dto.ReservationSnapshot) error {
	if snapshot.Reservation.ID == "" {
		return errors.New("s3: snapshot without reservation id")
	}
	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}
	key := a.objectKey(snapshot)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"purged-by": snapshot.PurgedBy,
		},
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	a.logger.InfoContext(ctx, "reservation snapshot archived", "bucket", a.bucket, "key", key)
	return nil
}

// objectKey groups snapshots by arrival year.
func (a *Archiver) objectKey(s dto.ReservationSnapshot) string {
	year := "unknown"
	if len(s.Reservation.Start) >= 4 {
		year = s.Reservation.Start[:4]
	}
	return fmt.Sprintf("%s/%s/%s-%d.json", a.prefix, year, s.Reservation.ID, s.PurgedAt.Unix())
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	a.bucketInitOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			a.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return a.bucketInitErr
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// LogArchiver records snapshots in the log when no bucket is configured.
type LogArchiver struct {
	Logger *slog.Logger
}

func (l LogArchiver) Archive(ctx context.Context, snapshot dto.ReservationSnapshot) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "reservation purged", "reservation", snapshot.Reservation.ID, "snapshot", string(body))
	return nil
}

var (
	_ policies.Archiver = (*Archiver)(nil)
	_ policies.Archiver = LogArchiver{}
)
