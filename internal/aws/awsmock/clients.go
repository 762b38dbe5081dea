package awsmock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records sent messages.
type SQS struct {
	mu       sync.Mutex
	Messages []*sqs.SendMessageInput
	Err      error
}

func (m *SQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Messages = append(m.Messages, params)
	id := fmt.Sprintf("msg-%d", len(m.Messages))
	return &sqs.SendMessageOutput{MessageId: &id}, nil
}

// Sent returns a snapshot of the recorded messages.
func (m *SQS) Sent() []*sqs.SendMessageInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*sqs.SendMessageInput(nil), m.Messages...)
}

// SNS records published notifications.
type SNS struct {
	mu        sync.Mutex
	Published []*sns.PublishInput
	Err       error
}

func (m *SNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Published = append(m.Published, params)
	id := fmt.Sprintf("sns-%d", len(m.Published))
	return &sns.PublishOutput{MessageId: &id}, nil
}

// CloudWatch records metric batches.
type CloudWatch struct {
	mu    sync.Mutex
	Calls []*cloudwatch.PutMetricDataInput
	Err   error
}

func (m *CloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Calls = append(m.Calls, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}
