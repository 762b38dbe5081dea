package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	appconfig "github.com/imrishuroy/returnguard/internal/config"
)

const defaultRegion = "us-east-1"

// LoadAWSConfig builds the SDK config. An endpoint override (localstack,
// dynamodb-local) applies to every service client.
func LoadAWSConfig(ctx context.Context, c appconfig.AWSConfig) (sdkaws.Config, error) {
	region := c.Region
	if region == "" {
		region = defaultRegion
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if c.EndpointOverride != "" {
		cfg.BaseEndpoint = sdkaws.String(c.EndpointOverride)
	}

	return cfg, nil
}
