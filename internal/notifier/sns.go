package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes each message to an Amazon SNS topic using the
// JSON message structure, with the body as the default message.
type SNSPublisher struct {
	client   snsAPI
	topicARN string
}

// NewSNSPublisher creates a publisher for topicARN using client.
func NewSNSPublisher(client snsAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

// NewSNSPublisherFromEnv loads AWS credentials from the default chain
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, shared config, instance role).
func NewSNSPublisherFromEnv(ctx context.Context, topicARN, region string) (*SNSPublisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("notifier.SNS: load aws config: %w", err)
	}
	return NewSNSPublisher(sns.NewFromConfig(cfg), topicARN), nil
}

func (p *SNSPublisher) Publish(ctx context.Context, key string, body []byte) error {
	message, err := json.Marshal(map[string]string{"default": string(body)})
	if err != nil {
		return err
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(p.topicARN),
		Message:          aws.String(string(message)),
		MessageStructure: aws.String("json"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(key)},
		},
	})
	if err != nil {
		return fmt.Errorf("notifier.SNS: publish to %s: %w", p.topicARN, err)
	}

	logger.Debug().Msgf("Published %s to topic %s as %s", key, p.topicARN, aws.ToString(out.MessageId))
	return nil
}

func (p *SNSPublisher) Close() error {
	return nil
}
