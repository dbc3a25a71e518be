package awscfg

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/go-api-verification/internal/config"
)

// Load builds the shared AWS config. region overrides cfg.Region when set.
// Static credentials are used when an access key is configured; otherwise
// the default provider chain applies.
func Load(ctx context.Context, cfg config.AWS, region string) (aws.Config, error) {
	if region == "" {
		region = cfg.Region
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// Endpoint returns cfg.EndpointURL as a base endpoint, or nil when unset.
func Endpoint(cfg config.AWS) *string {
	if cfg.EndpointURL == "" {
		return nil
	}
	return aws.String(cfg.EndpointURL)
}
