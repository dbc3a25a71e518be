package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-api-verification/internal/config"
	"github.com/go-api-verification/internal/infrastructure/awscfg"
)

// NewClient creates a DynamoDB client. When cfg.EndpointURL is set (LocalStack,
// dynamodb-local), it overrides the endpoint so all traffic goes to that instance.
func NewClient(ctx context.Context, cfg config.AWS) (*dynamodb.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, "")
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awscfg.Endpoint(cfg)
	}), nil
}
