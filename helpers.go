package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

const s3Scheme = "s3://"

var retryBaseDelay = 500 * time.Millisecond

// retry calls fn up to attempts times, waiting a little longer after each
// failure.
func retry[T any](attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(retryBaseDelay * time.Duration(i+1))
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// --- Object storage ---

func newR2Client(ctx context.Context, r2 R2Config) (*s3.Client, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}
	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	}), nil
}

func DownloadFromR2(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return buf.Bytes(), nil
}

// r2Fetcher downloads resumes from the configured bucket.
type r2Fetcher struct {
	client *s3.Client
	bucket string
}

func (f r2Fetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	return DownloadFromR2(ctx, f.client, f.bucket, key)
}

func parseS3URL(raw string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(raw, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %s", raw)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url needs a bucket and a key: %s", raw)
	}
	return bucket, key, nil
}

// openArtifact opens a model artifact from local disk, or from R2 when the
// path is an s3:// url.
func openArtifact(ctx context.Context, path string, client *s3.Client) (io.ReadCloser, error) {
	if !strings.HasPrefix(path, s3Scheme) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	if client == nil {
		return nil, fmt.Errorf("R2 is not configured, cannot open %s", path)
	}
	bucket, key, err := parseS3URL(path)
	if err != nil {
		return nil, err
	}
	data, err := retry(3, func() ([]byte, error) {
		return DownloadFromR2(ctx, client, bucket, key)
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// --- Status updates ---

func sessionUpdate(sessionID uuid.UUID, status, message string) map[string]any {
	return map[string]any{
		"session_id": sessionID,
		"status":     status,
		"message":    message,
		"timestamp":  time.Now(),
	}
}

func publishSessionUpdate(rabbitConn *amqp.Connection, sessionID string, update map[string]any) error {
	ch, err := rabbitConn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	routingKey := fmt.Sprintf("session.%s", sessionID)

	return ch.Publish(
		"session_updates", // exchange
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

type amqpPublisher struct {
	conn *amqp.Connection
}

func (p amqpPublisher) Publish(sessionID uuid.UUID, update map[string]any) error {
	return publishSessionUpdate(p.conn, sessionID.String(), update)
}
