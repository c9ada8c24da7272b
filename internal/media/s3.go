package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sakif/blog-backend/internal/model"
)

// deleteBatch is the S3 limit on keys per DeleteObjects call.
const deleteBatch = 1000

// S3Client is the subset of *s3.Client used by S3Host. Tests pass a fake
// through WithS3Client.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type S3Config struct {
	Bucket         string
	Region         string
	AccessKeyID    string
	SecretKey      string
	Endpoint       string // optional, for S3-compatible services
	BaseURL        string // public URL prefix; derived from bucket/endpoint when empty
	ForcePathStyle bool   // MinIO and friends
}

type S3Option func(*s3Options)

type s3Options struct {
	client S3Client
}

// WithS3Client uses client instead of building one from the AWS config chain.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) { o.client = client }
}

var _ Host = (*S3Host)(nil)

// S3Host stores images in an S3 bucket. It is safe for concurrent use.
type S3Host struct {
	client  S3Client
	bucket  string
	baseURL string
}

// NewS3Host builds an S3-backed host. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewS3Host(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Host, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: loading AWS config: %v", ErrInvalidConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Host{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
	}, nil
}

func (h *S3Host) Upload(ctx context.Context, name, contentType string, body io.Reader) (model.Image, error) {
	key := objectKey(name, contentType)

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return model.Image{}, errors.Join(ErrUploadFailed, describe("put", err))
	}

	return model.Image{URL: h.baseURL + key, PublicID: key}, nil
}

func (h *S3Host) Remove(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}

	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return errors.Join(ErrRemoveFailed, describe("delete", err))
	}
	return nil
}

// RemoveMany deletes in batches of 1000 keys. Per-key failures reported by
// S3 are collected into the returned error.
func (h *S3Host) RemoveMany(ctx context.Context, publicIDs []string) error {
	ids := nonEmpty(publicIDs)

	for start := 0; start < len(ids); start += deleteBatch {
		end := min(start+deleteBatch, len(ids))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, id := range ids[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(id)})
		}

		out, err := h.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(h.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return errors.Join(ErrRemoveFailed, describe("batch delete", err))
		}
		if len(out.Errors) > 0 {
			errs := []error{ErrRemoveFailed}
			for _, e := range out.Errors {
				if aws.ToString(e.Code) == "NoSuchKey" {
					continue
				}
				errs = append(errs, fmt.Errorf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
			}
			if len(errs) > 1 {
				return errors.Join(errs...)
			}
		}
	}
	return nil
}

// isNoSuchKey reports whether S3 answered that the object does not exist.
// A file that is already gone counts as removed.
func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}

// describe adds the S3 error code to err, when S3 sent one.
func describe(operation string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("s3 %s failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("s3 %s failed: %w", operation, err)
}
