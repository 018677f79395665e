package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

func sampleSummary() domain.Summary {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.Summary{
		RunID:         "run-7",
		MigratedCount: 7,
		ErrorCount:    2,
		Errors: []domain.Conflict{
			{Collection: "users", DocID: "u1", Reason: "missing email"},
			{Collection: "activities", DocID: domain.UnknownDocID, Reason: "list failed"},
		},
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
}

func TestConsoleSinkEnumeratesConflicts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsoleSink(&buf).Write(context.Background(), sampleSummary()))

	assert.Equal(t,
		"migration run-7 finished: 7 migrated, 2 errors\n"+
			"1. [users] u1: missing email\n"+
			"2. [activities] N/A: list failed\n",
		buf.String())
}

func TestMarshalAlwaysEmitsErrorsArray(t *testing.T) {
	body, err := Marshal(domain.Summary{RunID: "r"})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, []any{}, doc["errors"])
	assert.Equal(t, float64(0), doc["errorCount"])
}

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "summary.json")

	require.NoError(t, NewFileSink(path, zaptest.NewLogger(t)).Write(context.Background(), sampleSummary()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got domain.Summary
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, sampleSummary(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkUploadsReport(t *testing.T) {
	putter := &fakePutter{}
	sink := NewS3SinkWithClient(putter, "reports", "", zaptest.NewLogger(t))

	require.NoError(t, sink.Write(context.Background(), sampleSummary()))

	require.NotNil(t, putter.input)
	assert.Equal(t, "reports", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "migrations/run-7.json", aws.ToString(putter.input.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))

	want, err := Marshal(sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, want, putter.body)
}

func TestS3SinkWrapsUploadError(t *testing.T) {
	boom := errors.New("access denied")
	sink := NewS3SinkWithClient(&fakePutter{err: boom}, "reports", "custom/key.json", nil)

	err := sink.Write(context.Background(), sampleSummary())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s3://reports/custom/key.json")
}

func TestNewS3SinkAppliesRegion(t *testing.T) {
	original := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = original })

	var region string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		region = lo.Region
		return aws.Config{Region: lo.Region}, nil
	}

	sink, err := NewS3Sink(context.Background(), config.ReportSettings{S3Bucket: "b", S3Region: "eu-central-1"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, sink)
	assert.Equal(t, "eu-central-1", region)
}
