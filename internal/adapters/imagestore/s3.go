// Package imagestore archives uploaded food photos in S3.
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const keyPrefix = "uploads/"

// ErrNoBucket is returned when archiving is not configured.
var ErrNoBucket = errors.New("image bucket is not configured")

// PutObjectAPI is the part of the S3 client the archive needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores photos under uploads/<id><ext>.
type S3Archive struct {
	client PutObjectAPI
	bucket string
}

// NewS3Archive builds an archive from the default AWS credential chain.
func NewS3Archive(ctx context.Context, bucket, region string) (*S3Archive, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewS3ArchiveWithClient(s3.NewFromConfig(cfg), bucket), nil
}

// NewS3ArchiveWithClient wraps an existing client.
func NewS3ArchiveWithClient(client PutObjectAPI, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

// Key returns the object key used for an analysis photo.
func Key(id, contentType string) string {
	return keyPrefix + id + extension(contentType)
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

// Archive uploads data and returns its object key.
func (a *S3Archive) Archive(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	key := Key(id, contentType)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}
	return key, nil
}
