package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/chainfleet/internal/errdefs"
)

// Client wraps the S3 client.
type Client struct {
	s3     *s3.Client
	region string
}

// ClientOption configures NewClient.
type ClientOption func(*s3.Options)

// WithPathStyle switches to path-style addressing (MinIO and most local
// S3 implementations need it).
func WithPathStyle() ClientOption {
	return func(o *s3.Options) {
		o.UsePathStyle = true
	}
}

// NewClient creates a client for endpoint using static credentials.
func NewClient(ctx context.Context, endpoint, region, accessKey, secretKey string, opts ...ClientOption) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		for _, opt := range opts {
			opt(o)
		}
	})

	return &Client{s3: client, region: region}, nil
}

// NewFromS3 wraps an already configured SDK client.
func NewFromS3(c *s3.Client, region string) *Client {
	return &Client{s3: c, region: region}
}

// EnsureBucket creates bucketName unless it already exists and is ours.
func (c *Client) EnsureBucket(ctx context.Context, bucketName string) error {
	_, err := c.s3.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		if isBucketAlreadyOwnedByYou(err) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}
	return nil
}

// PutObjectIfAbsent uploads data under key only if no object exists there.
// An existing object yields an errdefs.ErrConflict error.
func (c *Client) PutObjectIfAbsent(ctx context.Context, bucketName, key string, data []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return errdefs.Conflictf("object %s already exists in bucket %s", key, bucketName)
		}
		return fmt.Errorf("failed to put object %s in bucket %s: %w", key, bucketName, err)
	}
	return nil
}

// GetObject downloads an object. A missing key yields an errdefs.ErrNotFound error.
func (c *Client) GetObject(ctx context.Context, bucketName, key string) ([]byte, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, errdefs.NotFoundf("object %s not found in bucket %s", key, bucketName)
		}
		return nil, fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucketName, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return buf.Bytes(), nil
}

// HeadObject returns the ETag of an object. A missing key yields an
// errdefs.ErrNotFound error.
func (c *Client) HeadObject(ctx context.Context, bucketName, key string) (string, error) {
	result, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return "", errdefs.NotFoundf("object %s not found in bucket %s", key, bucketName)
		}
		return "", fmt.Errorf("failed to head object %s in bucket %s: %w", key, bucketName, err)
	}
	return aws.ToString(result.ETag), nil
}

// DeleteObjectIfMatch deletes key only while its ETag still equals etag.
// A missing or replaced object yields an errdefs.ErrNotFound error.
func (c *Client) DeleteObjectIfMatch(ctx context.Context, bucketName, key, etag string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:  aws.String(bucketName),
		Key:     aws.String(key),
		IfMatch: aws.String(etag),
	})
	if err != nil {
		if isNotFoundError(err) || isPreconditionFailed(err) {
			return errdefs.NotFoundf("object %s not found in bucket %s", key, bucketName)
		}
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", key, bucketName, err)
	}
	return nil
}

// isBucketAlreadyOwnedByYou checks if the error indicates the bucket exists and is owned by us.
func isBucketAlreadyOwnedByYou(err error) bool {
	if err == nil {
		return false
	}

	var baoby *types.BucketAlreadyOwnedByYou
	if errors.As(err, &baoby) {
		return true
	}

	// Fall back to API error code checking for S3-compatible services
	// that may not return the exact SDK error types
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "BucketAlreadyOwnedByYou"
	}

	return false
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}

	return false
}

// isPreconditionFailed reports a failed If-None-Match / If-Match condition.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "PreconditionFailed" || code == "ConditionalRequestConflict" {
			return true
		}
	}

	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusPreconditionFailed
	}
	return false
}
