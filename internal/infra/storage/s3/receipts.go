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

	"luxrent/internal/app/dto"
	"luxrent/internal/app/policies"
)

// Uploader stores binary content in an S3-compatible bucket and returns the object URL.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (objectURL string, err error)
}

// Client wraps a MinIO/S3 client. The bucket stays private; receipts carry customer data.
type Client struct {
	bucket         string
	baseURL        string
	client         *minio.Client
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewClient(endpoint string, useSSL bool, accessKey, secretKey, bucket, baseURL string) (*Client, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = cleanEndpoint
	}
	return &Client{bucket: bucket, baseURL: strings.TrimRight(base, "/"), client: minioClient}, nil
}

func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := c.client.PutObject(ctx, c.bucket, key, reader, -1, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.bucket, key), nil
}

// Ping checks that the bucket is reachable. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	return err
}

func (c *Client) ensureBucket(ctx context.Context) error {
	c.bucketInitOnce.Do(func() {
		exists, err := c.client.BucketExists(ctx, c.bucket)
		if err != nil {
			c.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			c.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return c.bucketInitErr
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// ArchivingLedger writes every saved refund through to inner and archives a JSON
// receipt. Archive failures are logged and never fail the save.
type ArchivingLedger struct {
	inner    policies.RefundLedger
	uploader Uploader
	logger   *slog.Logger
}

func NewArchivingLedger(inner policies.RefundLedger, uploader Uploader, logger *slog.Logger) *ArchivingLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchivingLedger{inner: inner, uploader: uploader, logger: logger}
}

func (l *ArchivingLedger) Save(ctx context.Context, rec policies.RefundRecord) error {
	if err := l.inner.Save(ctx, rec); err != nil {
		return err
	}
	key, err := l.archive(ctx, rec)
	if err != nil {
		l.logger.WarnContext(ctx, "refund receipt archive failed", "booking_id", rec.BookingID, "error", err)
		return nil
	}
	l.logger.DebugContext(ctx, "refund receipt archived", "booking_id", rec.BookingID, "key", key)
	return nil
}

func (l *ArchivingLedger) ByBookingID(ctx context.Context, bookingID string) (policies.RefundRecord, error) {
	return l.inner.ByBookingID(ctx, bookingID)
}

func (l *ArchivingLedger) archive(ctx context.Context, rec policies.RefundRecord) (string, error) {
	receipt, err := dto.NewRefundRecordDTO(rec)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(receipt)
	if err != nil {
		return "", err
	}
	key := ReceiptKey(rec)
	if _, err := l.uploader.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// ReceiptKey partitions receipts by creation month, e.g. refunds/2025/03/bk_42.json.
func ReceiptKey(rec policies.RefundRecord) string {
	return fmt.Sprintf("refunds/%s/%s.json", rec.CreatedAt.UTC().Format("2006/01"), url.PathEscape(rec.BookingID))
}

var (
	_ Uploader              = (*Client)(nil)
	_ policies.RefundLedger = (*ArchivingLedger)(nil)
)
