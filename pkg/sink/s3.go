package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/logrelay/logrelay/internal/model"
)

// S3Config configures the archive sink.
type S3Config struct {
	Bucket string
	// Prefix is prepended to object keys, e.g. "logs/".
	Prefix string
	Region string
	// Endpoint overrides the S3 endpoint, for MinIO-style deployments.
	Endpoint string
	// Static credentials; when empty the default chain applies.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Sink archives each batch as one JSONL object. There is no single-event
// buffering: a Write produces a one-line object, so delivery stays
// best-effort with no state to lose.
type S3Sink struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Sink creates an S3 archive sink.
func NewS3Sink(cfg S3Config) *S3Sink {
	return &S3Sink{cfg: cfg}
}

// Name implements Sink.
func (s *S3Sink) Name() string { return "s3" }

// Start resolves AWS configuration and builds the client.
func (s *S3Sink) Start(ctx context.Context) error {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.cfg.Region),
	}
	if s.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return err
	}
	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return nil
}

// Write implements Sink.
func (s *S3Sink) Write(ctx context.Context, ev *model.Event) error {
	return s.WriteBatch(ctx, model.Batch{ev})
}

// WriteBatch implements BatchSink.
func (s *S3Sink) WriteBatch(ctx context.Context, batch model.Batch) error {
	var buf bytes.Buffer
	for _, ev := range batch {
		line, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	key := fmt.Sprintf("%s%s-%s.jsonl",
		s.cfg.Prefix,
		time.Now().UTC().Format("2006/01/02/150405"),
		uuid.NewString()[:8])

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	return err
}

// Stop implements Sink. The client holds no connection state to release.
func (s *S3Sink) Stop(ctx context.Context) error { return nil }
