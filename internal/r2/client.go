package r2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/HaiFongPan/rbrowse/internal/config"
)

// Client holds an S3 client configured for one R2 (or S3 compatible) account
type Client struct {
	s3Client *s3.Client
	config   *appconfig.R2Config
}

// NewClient creates a new R2 client from configuration
func NewClient(ctx context.Context, cfg *appconfig.R2Config, maxRetries int) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.AccessKeySecret,
			"",
		)),
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(maxRetries+1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointFor(cfg))
		// S3 compatible servers other than R2 usually need path style
		o.UsePathStyle = cfg.Endpoint != "" && cfg.Endpoint != "auto"
	})

	return &Client{
		s3Client: s3Client,
		config:   cfg,
	}, nil
}

func endpointFor(cfg *appconfig.R2Config) string {
	if cfg.Endpoint != "" && cfg.Endpoint != "auto" {
		return cfg.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
}

// GetBucketName returns the configured bucket name
func (c *Client) GetBucketName() string {
	return c.config.BucketName
}

// Store opens the directory view of the configured bucket and prefix,
// mounted at root
func (c *Client) Store(root string) *Store {
	return NewStore(c.s3Client, c.config.BucketName, c.config.Prefix, root)
}
