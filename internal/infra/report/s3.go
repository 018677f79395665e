package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

// ObjectPutter is the slice of the S3 API the sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// S3Sink uploads the JSON report to a bucket. The key may contain {run_id}.
type S3Sink struct {
	client ObjectPutter
	bucket string
	key    string
	logger *zap.Logger
}

var _ port.ReportSink = (*S3Sink)(nil)

// NewS3Sink loads credentials from the default AWS chain.
func NewS3Sink(ctx context.Context, cfg config.ReportSettings, logger *zap.Logger) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewS3SinkWithClient(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Key, logger), nil
}

func NewS3SinkWithClient(client ObjectPutter, bucket, key string, logger *zap.Logger) *S3Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = "migrations/{run_id}.json"
	}
	return &S3Sink{client: client, bucket: bucket, key: key, logger: logger}
}

func (s *S3Sink) Write(ctx context.Context, summary domain.Summary) error {
	body, err := Marshal(summary)
	if err != nil {
		return err
	}

	key := strings.ReplaceAll(s.key, "{run_id}", summary.RunID)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload report to s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.Info("migration report uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
	)
	return nil
}
