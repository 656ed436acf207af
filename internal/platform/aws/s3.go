package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client the bucket lifecycle needs.
type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutBucketVersioning(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

// BucketClient manages the remote state bucket.
type BucketClient struct {
	api    S3API
	region string
}

// NewBucketClient creates a bucket client from an SDK configuration.
func NewBucketClient(cfg aws.Config) *BucketClient {
	return &BucketClient{api: s3.NewFromConfig(cfg), region: cfg.Region}
}

// NewBucketClientWithAPI allows injecting a fake API in tests.
func NewBucketClientWithAPI(api S3API, region string) *BucketClient {
	return &BucketClient{api: api, region: region}
}

// EnsureBucket creates the bucket if absent and enables versioning. Creating
// a bucket that already exists and is owned by us is success, keeping the
// call idempotent across re-runs.
func (c *BucketClient) EnsureBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 is the only region that rejects an explicit location constraint.
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		if !isBucketAlreadyOwnedByYou(err) {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
	}

	_, err := c.api.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(name),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable versioning on bucket %s: %w", name, err)
	}

	return nil
}

// BucketExists checks if a bucket exists and is accessible.
func (c *BucketClient) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check bucket %s: %w", name, err)
	}
	return true, nil
}

// DeleteBucket removes every object version in the bucket and then the bucket
// itself. Deleting a bucket that no longer exists is success.
func (c *BucketClient) DeleteBucket(ctx context.Context, name string) error {
	if err := c.emptyBucket(ctx, name); err != nil {
		return err
	}

	if _, err := c.api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	return nil
}

// emptyBucket deletes all object versions and delete markers. Versioned
// buckets cannot be removed while any version remains.
func (c *BucketClient) emptyBucket(ctx context.Context, name string) error {
	var keyMarker, versionMarker *string
	for {
		page, err := c.api.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(name),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionMarker,
		})
		if err != nil {
			if isNotFoundError(err) {
				return nil
			}
			return fmt.Errorf("failed to list object versions in bucket %s: %w", name, err)
		}

		var objects []types.ObjectIdentifier
		for _, v := range page.Versions {
			objects = append(objects, types.ObjectIdentifier{Key: v.Key, VersionId: v.VersionId})
		}
		for _, m := range page.DeleteMarkers {
			objects = append(objects, types.ObjectIdentifier{Key: m.Key, VersionId: m.VersionId})
		}

		if len(objects) > 0 {
			_, err = c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(name),
				Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return fmt.Errorf("failed to delete objects in bucket %s: %w", name, err)
			}
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			return nil
		}
		keyMarker = page.NextKeyMarker
		versionMarker = page.NextVersionIdMarker
	}
}

// isBucketAlreadyOwnedByYou checks if the error indicates the bucket exists and is owned by us.
func isBucketAlreadyOwnedByYou(err error) bool {
	if err == nil {
		return false
	}

	// Check for typed S3 errors first
	var baoby *types.BucketAlreadyOwnedByYou
	if errors.As(err, &baoby) {
		return true
	}

	var bae *types.BucketAlreadyExists
	if errors.As(err, &bae) {
		return true
	}

	// Fall back to API error code checking for S3-compatible services
	// that may not return the exact SDK error types
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
	}

	return false
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// Check for typed S3 errors first
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// Fall back to API error code checking
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket" || code == "404"
	}

	return false
}
