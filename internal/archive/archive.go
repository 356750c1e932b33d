// Package archive stores error-page failures as JSON incident reports in
// an S3 bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/vango-dev/errpage/pkg/errinfo"
	"github.com/vango-dev/errpage/pkg/ssr"
)

// DefaultUploadTimeout bounds a single incident upload.
const DefaultUploadTimeout = 10 * time.Second

// PutObjectAPI is the subset of the S3 client used by Archive.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Incident is the stored report.
type Incident struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Method  string    `json:"method,omitempty"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
	Stack   string    `json:"stack"`
}

// Archive uploads incidents to S3.
type Archive struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// New creates an Archive writing to bucket under prefix.
func New(client PutObjectAPI, bucket, prefix string, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: DefaultUploadTimeout,
		logger:  logger.With("component", "archive"),
		now:     time.Now,
	}
}

// NewS3Client builds an S3 client from the default AWS configuration
// chain (environment, shared config and credentials files, SSO, web
// identity and instance roles). A non-empty region overrides the
// configured one, and a non-empty endpoint selects an S3-compatible
// service with path-style addressing.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key returns the object key for an incident.
func (a *Archive) Key(inc Incident) string {
	return path.Join(a.prefix, inc.Time.UTC().Format("2006/01/02"), inc.ID+".json")
}

// Store uploads inc and returns its object key.
func (a *Archive) Store(ctx context.Context, inc Incident) (string, error) {
	body, err := json.Marshal(inc)
	if err != nil {
		return "", fmt.Errorf("archive: encode incident: %w", err)
	}

	key := a.Key(inc)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: put %s: %w", key, err)
	}
	return key, nil
}

// NewIncident builds an incident from a normalized error.
func (a *Archive) NewIncident(err *errinfo.Structured, req *ssr.Request) Incident {
	inc := Incident{
		ID:      uuid.NewString(),
		Time:    a.now().UTC(),
		Message: err.Message,
		Stack:   err.Stack,
	}
	if req != nil {
		inc.Method = req.Method
		if req.URL != nil {
			inc.Path = req.URL.Path
		}
	}
	return inc
}

// Handler returns an ssr.ErrorHandler that uploads each failure in the
// background. Call Wait before shutdown to flush pending uploads.
func (a *Archive) Handler() ssr.ErrorHandler {
	return func(err *errinfo.Structured, req *ssr.Request) {
		inc := a.NewIncident(err, req)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			defer cancel()

			key, err := a.Store(ctx, inc)
			if err != nil {
				a.logger.Error("incident upload failed", "id", inc.ID, "error", err)
				return
			}
			a.logger.Info("incident archived", "id", inc.ID, "bucket", a.bucket, "key", key)
		}()
	}
}

// Wait blocks until pending uploads finish.
func (a *Archive) Wait() {
	a.wg.Wait()
}
