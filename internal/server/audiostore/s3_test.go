package audiostore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct {
	err error
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "http://minio/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key) + "?sig=1"}, nil
}

func TestS3Archive_Put(t *testing.T) {
	client := &fakeS3{}
	a := NewS3ArchiveWithClient(client, &fakePresigner{}, "voice-samples")

	require.NoError(t, a.Put(context.Background(), "samples/ab/abc", []byte("RIFF")))
	assert.Equal(t, "voice-samples", client.bucket)
	assert.Equal(t, "samples/ab/abc", client.key)
	assert.Equal(t, []byte("RIFF"), client.body)

	assert.ErrorIs(t, a.Put(context.Background(), "../x", nil), ErrInvalidKey)
}

func TestS3Archive_PutKeepsErrorCode(t *testing.T) {
	client := &fakeS3{err: &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "bucket missing"}}
	a := NewS3ArchiveWithClient(client, nil, "voice-samples")

	err := a.Put(context.Background(), "samples/ab/abc", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchBucket")

	var apiErr smithy.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestS3Archive_Locate(t *testing.T) {
	a := NewS3ArchiveWithClient(&fakeS3{}, &fakePresigner{}, "b")
	url, err := a.Locate(context.Background(), "samples/ab/abc")
	require.NoError(t, err)
	assert.Equal(t, "http://minio/b/samples/ab/abc?sig=1", url)

	a = NewS3ArchiveWithClient(&fakeS3{}, nil, "b")
	url, err = a.Locate(context.Background(), "samples/ab/abc")
	require.NoError(t, err)
	assert.Equal(t, "s3://b/samples/ab/abc", url)

	a = NewS3ArchiveWithClient(&fakeS3{}, &fakePresigner{err: errors.New("clock skew")}, "b")
	_, err = a.Locate(context.Background(), "samples/ab/abc")
	assert.ErrorContains(t, err, "clock skew")
}

func TestNewS3Archive_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minio", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var baseEndpoint string
	var pathStyle bool
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		baseEndpoint = aws.ToString(opts.BaseEndpoint)
		pathStyle = opts.UsePathStyle
		return s3.New(opts)
	}

	a, err := NewS3Archive(context.Background(), S3Config{
		Region: "eu-central-1", RootUser: "minio", RootPassword: "minio123",
		BaseEndpoint: "http://127.0.0.1:9000", Bucket: "voice-samples",
	})
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.Equal(t, "http://127.0.0.1:9000", baseEndpoint)
	assert.True(t, pathStyle)
}

func TestNewS3Archive_Errors(t *testing.T) {
	_, err := NewS3Archive(context.Background(), S3Config{})
	assert.Error(t, err)

	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3Archive(context.Background(), S3Config{Bucket: "b"})
	assert.ErrorContains(t, err, "no config")
}
