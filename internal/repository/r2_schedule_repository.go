package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/internal/models"
)

// NewR2Client builds an S3 client for Cloudflare R2, or for any S3 compatible
// endpoint when r2.Endpoint is set.
func NewR2Client(ctx context.Context, r2 config.R2) (*s3.Client, error) {
	if r2.BucketName == "" {
		return nil, &internaltypes.ConfigError{Msg: "R2_BUCKET_NAME is required for r2 schedule storage"}
	}
	if r2.Endpoint == "" && r2.AccountID == "" {
		return nil, &internaltypes.ConfigError{Msg: "R2_ACCOUNT_ID or R2_ENDPOINT is required for r2 schedule storage"}
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("loading r2 config: %w", err)
	}

	endpoint := r2.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = r2.Endpoint != ""
	}), nil
}

type r2ScheduleRepository struct {
	client *s3.Client
	bucket string
	key    string
}

func NewR2ScheduleRepository(client *s3.Client, bucket, key string) ScheduleRepository {
	return &r2ScheduleRepository{client: client, bucket: bucket, key: key}
}

func (r *r2ScheduleRepository) location() string {
	return fmt.Sprintf("r2://%s/%s", r.bucket, r.key)
}

func (r *r2ScheduleRepository) Load(ctx context.Context) ([]*models.Record, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return []*models.Record{}, nil
		}
		slog.Info(err.Error())
		return nil, &internaltypes.PersistenceError{Op: "read", Path: r.location(), Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &internaltypes.PersistenceError{Op: "read", Path: r.location(), Err: err}
	}

	records, err := decodeSchedule(data)
	if err != nil {
		return nil, &internaltypes.PersistenceError{Op: "parse", Path: r.location(), Err: err}
	}
	return records, nil
}

func (r *r2ScheduleRepository) Save(ctx context.Context, records []*models.Record) error {
	data, err := encodeSchedule(records)
	if err != nil {
		return &internaltypes.PersistenceError{Op: "encode", Path: r.location(), Err: err}
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		slog.Info(err.Error())
		return &internaltypes.PersistenceError{Op: "write", Path: r.location(), Err: err}
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
