package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-api-verification/internal/config"
	"github.com/go-api-verification/internal/infrastructure/awscfg"
)

const eventVerificationCode = "verification_code"

// publisher is the subset of the SNS client the notifier uses.
type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// payload is the message body downstream mailers consume.
type payload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Notifier publishes verification codes to an SNS topic. A subscriber
// (mail worker, lambda) turns each message into an email.
type Notifier struct {
	client   publisher
	topicARN string
}

func NewNotifier(ctx context.Context, awsCfg config.AWS, cfg config.SNS) (*Notifier, error) {
	loaded, err := awscfg.Load(ctx, awsCfg, cfg.Region)
	if err != nil {
		return nil, err
	}

	client := sns.NewFromConfig(loaded, func(o *sns.Options) {
		o.BaseEndpoint = awscfg.Endpoint(awsCfg)
	})
	return newNotifier(client, cfg.TopicARN), nil
}

func newNotifier(client publisher, topicARN string) *Notifier {
	return &Notifier{client: client, topicARN: topicARN}
}

func (n *Notifier) Dispatch(ctx context.Context, email, code string) error {
	body, err := json.Marshal(payload{Email: email, Code: code})
	if err != nil {
		return fmt.Errorf("marshal sns payload: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(eventVerificationCode),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", n.topicARN, err)
	}
	return nil
}
