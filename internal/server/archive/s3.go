// Package archive mirrors archived user records to S3-compatible object
// storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	Prefix       string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Record is the exported document. Secrets are never exported.
type Record struct {
	User       models.PublicUser `json:"user"`
	ArchivedOn int64             `json:"archivedOn"`
}

type S3Exporter struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Exporter builds an exporter with static credentials. A custom
// endpoint switches to path-style addressing for MinIO and friends.
func NewS3Exporter(ctx context.Context, opts Options) (*S3Exporter, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is not configured")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %v", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newExporter(client, opts.Bucket, opts.Prefix), nil
}

func newExporter(client objectPutter, bucket, prefix string) *S3Exporter {
	if prefix == "" {
		prefix = "archived"
	}
	return &S3Exporter{client: client, bucket: bucket, prefix: strings.TrimSuffix(prefix, "/")}
}

// ObjectKey is <prefix>/<email>.json.
func (e *S3Exporter) ObjectKey(email string) string {
	return fmt.Sprintf("%s/%s.json", e.prefix, email)
}

// Export uploads the public projection of user together with archivedAt.
func (e *S3Exporter) Export(ctx context.Context, user *models.User, archivedAt time.Time) error {
	body, err := json.Marshal(Record{User: user.Public(), ArchivedOn: archivedAt.UnixMilli()})
	if err != nil {
		return err
	}

	key := e.ObjectKey(user.Email)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("error uploading %s: %v", key, err)
	}
	return nil
}
