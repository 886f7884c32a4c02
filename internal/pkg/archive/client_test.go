package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucketExists bool
	created      []string
	objects      map[string][]byte
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, errors.New("not found")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, aws.ToString(in.Bucket))
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestReportKey(t *testing.T) {
	at := time.Date(2024, 3, 7, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "batch-reports/2024/03/07/daily_accruals-abc.json", ReportKey("daily_accruals", "abc", at))
}

func TestLoadConfigRequiresCredentialsWhenEnabled(t *testing.T) {
	t.Setenv("S3_ARCHIVE_ENABLED", "true")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("S3_ARCHIVE_ENABLED", "false")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsEnabled())
}

func TestArchiveAndFetchReport(t *testing.T) {
	api := &fakeS3{bucketExists: true, objects: map[string][]byte{}}
	c := newClient(api, &Config{BucketName: "reports", Enabled: true})
	ctx := context.Background()

	key, err := c.ArchiveReport(ctx, "leadership", "run-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, "batch-reports/2024/05/01/leadership-run-1.json", key)

	body, err := c.FetchReport(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestConnectionCreatesBucketOutsideProd(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	api := &fakeS3{objects: map[string][]byte{}}
	c := newClient(api, &Config{BucketName: "reports", Region: "us-east-1", Enabled: true})

	require.NoError(t, c.testConnection(context.Background()))
	assert.Equal(t, []string{"reports"}, api.created)
}
