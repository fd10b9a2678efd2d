package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// FolderPayments is the S3 prefix for archived gateway payloads.
const FolderPayments = "payments"

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PaymentsBucket  string
}

// S3 archives raw payment payloads.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region), zap.String("payments_bucket", cfg.PaymentsBucket))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// PaymentPayloadKey returns payments/{event_id}/{slot_id}/{payment_id}-{source}-{unix}.json.
func PaymentPayloadKey(eventID, slotID, paymentID, source string, at time.Time) string {
	name := fmt.Sprintf("%s-%s-%d.json", path.Base(paymentID), source, at.Unix())
	return path.Join(FolderPayments, eventID, slotID, name)
}

// Upload writes body to bucket/key and returns the object URL.
func (s *S3) Upload(ctx context.Context, bucket, key, contentType string, body []byte) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.cfg.Region, key), nil
}

// ArchivePaymentPayload stores a raw gateway payload in the payments bucket.
func (s *S3) ArchivePaymentPayload(ctx context.Context, eventID, slotID, paymentID, source string, raw []byte) (string, error) {
	key := PaymentPayloadKey(eventID, slotID, paymentID, source, time.Now().UTC())
	url, err := s.Upload(ctx, s.cfg.PaymentsBucket, key, "application/json", raw)
	if err != nil {
		return "", err
	}
	s.logger.Debug("payment payload archived", zap.String("key", key), zap.String("payment_id", paymentID))
	return url, nil
}
