// Package publish uploads generated corpora to S3-compatible object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-ift/pkg/corpus"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
)

// ErrNoBucket is returned when publishing is requested without a bucket.
var ErrNoBucket = errors.New("s3 bucket not configured")

// Config locates the destination bucket. Endpoint and static credentials are optional;
// without them the default AWS chain applies.
type Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// PutObjectAPI is the part of the S3 client the publisher uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads files under a key prefix.
type S3Publisher struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	runID   string
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewS3Publisher creates a publisher. A nil logger or registry disables that side channel.
func NewS3Publisher(client PutObjectAPI, cfg Config, runID string, logger logging.Logger, reg *metrics.Registry) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &S3Publisher{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		runID:   runID,
		logger:  logger,
		metrics: reg,
	}, nil
}

// Key returns the object key for a local file.
func (p *S3Publisher) Key(file string) string {
	return path.Join(p.prefix, filepath.Base(file))
}

// Publish uploads the file at local and returns its s3:// URI.
func (p *S3Publisher) Publish(ctx context.Context, local string) (_ string, retErr error) {
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordUpload(retErr)
		}
	}()

	f, err := os.Open(local)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", local, err)
	}

	key := p.Key(local)
	contentType := "application/x-ndjson"
	if strings.HasSuffix(local, corpus.SnappyExt) {
		contentType = "application/x-snappy-framed"
	}

	start := time.Now()
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
		Metadata:      map[string]string{"run-id": p.runID},
	})
	if err != nil {
		p.logger.Error("upload failed", logging.Path(local), logging.Error(err))
		return "", fmt.Errorf("failed to upload %s: %w", local, err)
	}

	uri := "s3://" + p.bucket + "/" + key
	p.logger.Info("uploaded corpus",
		logging.Path(local),
		logging.String("uri", uri),
		logging.Int64("bytes", info.Size()),
		logging.Latency(time.Since(start)),
	)
	return uri, nil
}
