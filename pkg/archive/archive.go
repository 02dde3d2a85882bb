// Package archive copies finished campaign execution reports to an
// S3-compatible bucket through the MinIO client.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/config"
	"digital.vasic.campaigns/pkg/report"
	"digital.vasic.campaigns/pkg/runner"
)

const contentTypeJSON = "application/json"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

// FromConfig maps the archive section of the application config.
func FromConfig(c config.ArchiveConfig) Config {
	return Config{
		Endpoint:  c.Endpoint,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Bucket:    c.Bucket,
		Prefix:    c.Prefix,
		Region:    c.Region,
		UseSSL:    c.UseSSL,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include a scheme: %s", c.Endpoint)
	}
	return nil
}

// objectClient is the part of *minio.Client the archive needs.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(
		ctx context.Context,
		bucket, key string,
		body io.Reader,
		size int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	GetObject(
		ctx context.Context,
		bucket, key string,
		opts minio.GetObjectOptions,
	) (*minio.Object, error)
}

// MinIOArchive stores JSON execution reports under
// <prefix>/<campaign id>/<execution id>.json.
type MinIOArchive struct {
	client   objectClient
	bucket   string
	prefix   string
	region   string
	reporter report.Reporter
}

var _ runner.Archiver = (*MinIOArchive)(nil)

// New connects a MinIO client described by cfg.
func New(cfg Config) (*MinIOArchive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid archive config: %w", err)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return newWithClient(client, cfg), nil
}

func newWithClient(client objectClient, cfg Config) *MinIOArchive {
	return &MinIOArchive{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		region:   cfg.Region,
		reporter: report.NewJSONReporter(true),
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *MinIOArchive) EnsureBucket(ctx context.Context) error {
	if a == nil || a.client == nil {
		return fmt.Errorf("archive not initialized")
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{
		Region: a.region,
	}); err != nil {
		return fmt.Errorf("make bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Archive uploads the JSON report of exec and returns its
// s3://bucket/key location.
func (a *MinIOArchive) Archive(
	ctx context.Context,
	exec campaign.CampaignExecution,
) (string, error) {
	if a == nil || a.client == nil {
		return "", fmt.Errorf("archive not initialized")
	}
	body, err := a.reporter.GenerateReport(exec)
	if err != nil {
		return "", fmt.Errorf("failed to render execution %d: %w", exec.ExecutionID, err)
	}
	key := a.Key(exec)
	if _, err := a.client.PutObject(
		ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentTypeJSON},
	); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return "s3://" + a.bucket + "/" + key, nil
}

// Fetch downloads the archived report of an execution.
func (a *MinIOArchive) Fetch(
	ctx context.Context,
	campaignID *int64,
	executionID int64,
) ([]byte, error) {
	if a == nil || a.client == nil {
		return nil, fmt.Errorf("archive not initialized")
	}
	key := a.objectKey(campaignID, executionID)
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Key is the object key exec is archived under.
func (a *MinIOArchive) Key(exec campaign.CampaignExecution) string {
	return a.objectKey(exec.CampaignID, exec.ExecutionID)
}

func (a *MinIOArchive) objectKey(campaignID *int64, executionID int64) string {
	dir := "unattached"
	if campaignID != nil {
		dir = strconv.FormatInt(*campaignID, 10)
	}
	return path.Join(a.prefix, dir, strconv.FormatInt(executionID, 10)+".json")
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
