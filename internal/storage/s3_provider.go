package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config carries the connection settings for an S3-compatible store.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PageSize        int
}

// S3API is the subset of the S3 client used by S3Provider.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Provider implements Provider for S3-compatible object stores.
type S3Provider struct {
	client   S3API
	bucket   string
	pageSize int
}

// NewS3Provider builds a client with static credentials and an explicit
// endpoint, which is what non-AWS providers (Scaleway, MinIO) require.
func NewS3Provider(cfg S3Config) (*S3Provider, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return NewS3ProviderWithClient(s3.New(opts), cfg.Bucket, cfg.PageSize)
}

// NewS3ProviderWithClient wraps an existing client (primarily for testing).
func NewS3ProviderWithClient(client S3API, bucket string, pageSize int) (*S3Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &S3Provider{client: client, bucket: bucket, pageSize: pageSize}, nil
}

// List issues one ListObjectsV2 call.
func (p *S3Provider) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(p.bucket)}
	if opts.Prefix != "" {
		in.Prefix = aws.String(opts.Prefix)
	}
	if opts.Delimiter != "" {
		in.Delimiter = aws.String(opts.Delimiter)
	}
	if opts.ContinuationToken != "" {
		in.ContinuationToken = aws.String(opts.ContinuationToken)
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = p.pageSize
	}
	if maxKeys > 0 {
		in.MaxKeys = aws.Int32(int32(maxKeys)) // #nosec G115 -- page sizes are small config values.
	}

	out, err := p.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("list s3 objects under %q: %w", opts.Prefix, err)
	}

	res := &ListResult{}
	for _, cp := range out.CommonPrefixes {
		res.CommonPrefixes = append(res.CommonPrefixes, aws.ToString(cp.Prefix))
	}
	for _, obj := range out.Contents {
		res.Objects = append(res.Objects, ObjectSummary{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
			ETag: strings.Trim(aws.ToString(obj.ETag), `"`),
		})
	}
	if aws.ToBool(out.IsTruncated) {
		res.ContinuationToken = aws.ToString(out.NextContinuationToken)
	}
	return res, nil
}

// Open streams the object body. The caller closes the reader.
func (p *S3Provider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("get s3 object %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get s3 object %s: %w", key, err)
	}
	if out.Body == nil {
		return nil, fmt.Errorf("get s3 object %s: empty body stream", key)
	}
	return out.Body, nil
}
