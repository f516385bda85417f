package audiostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the part of *s3.Client the archive uses.
type S3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Presigner is the part of *s3.PresignClient the archive uses.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// DefaultURLExpiry is how long a presigned sample URL stays valid.
const DefaultURLExpiry = 15 * time.Minute

type S3Config struct {
	Region       string
	RootUser     string
	RootPassword string
	BaseEndpoint string
	Bucket       string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Archive stores samples in an S3 compatible bucket, such as MinIO.
type S3Archive struct {
	client    S3Client
	presigner S3Presigner
	bucket    string
	expiry    time.Duration
}

func NewS3Archive(ctx context.Context, c S3Config) (*S3Archive, error) {
	if c.Bucket == "" {
		return nil, errors.New("audiostore: s3 bucket is required")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.RootUser,
			c.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("audiostore: aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return NewS3ArchiveWithClient(client, s3.NewPresignClient(client), c.Bucket), nil
}

func NewS3ArchiveWithClient(client S3Client, presigner S3Presigner, bucket string) *S3Archive {
	return &S3Archive{client: client, presigner: presigner, bucket: bucket, expiry: DefaultURLExpiry}
}

func (a *S3Archive) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return describeS3Error("put "+key, err)
	}
	return nil
}

func (a *S3Archive) Locate(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if a.presigner == nil {
		return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
	}

	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.expiry))
	if err != nil {
		return "", describeS3Error("presign "+key, err)
	}
	return req.URL, nil
}

// describeS3Error adds the S3 error code to the message.
func describeS3Error(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("audiostore: %s: %s: %w", op, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("audiostore: %s: %w", op, err)
}
