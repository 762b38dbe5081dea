package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/imrishuroy/returnguard/internal/risk"
)

type mockSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestSendAnalysisJob(t *testing.T) {
	mock := &mockSQS{}
	p := NewPublisher(mock, "https://sqs.local/analysis")

	job := AnalysisJob{OrderID: "o-1", ShopifyOrderID: "450789469", WebhookID: "wh-1"}
	if err := p.SendAnalysisJob(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.inputs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.inputs))
	}
	in := mock.inputs[0]
	if *in.QueueUrl != "https://sqs.local/analysis" {
		t.Fatalf("queue url mismatch: %s", *in.QueueUrl)
	}

	var got AnalysisJob
	if err := json.Unmarshal([]byte(*in.MessageBody), &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got != job {
		t.Fatalf("job mismatch: %+v", got)
	}

	if _, ok := in.MessageAttributes["correlation_id"]; ok {
		t.Fatalf("empty correlation_id should not be sent as an attribute")
	}
	if v := in.MessageAttributes["order_id"].StringValue; v == nil || *v != "o-1" {
		t.Fatalf("order_id attribute mismatch: %v", v)
	}
}

func TestSendMessage_Error(t *testing.T) {
	p := NewPublisher(&mockSQS{err: errors.New("throttled")}, "q")

	err := p.SendMessage(context.Background(), "{}", nil)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestPublishAnalysis(t *testing.T) {
	mock := &mockCloudWatch{}
	m := NewRiskMetrics(mock, "ReturnGuard")
	m.nowFunc = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	err := m.PublishAnalysis(context.Background(), risk.RiskAnalysis{
		RiskScore:         90,
		RiskLabel:         risk.LabelHigh,
		RecommendedAction: risk.ActionConfirmation,
		EstimatedSavings:  4820,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.inputs) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.inputs))
	}
	in := mock.inputs[0]
	if *in.Namespace != "ReturnGuard" {
		t.Fatalf("namespace mismatch: %s", *in.Namespace)
	}
	if len(in.MetricData) != 4 {
		t.Fatalf("expected 4 datums, got %d", len(in.MetricData))
	}
	score := in.MetricData[1]
	if *score.MetricName != "RiskScore" || *score.Value != 90 {
		t.Fatalf("unexpected score datum: %s=%v", *score.MetricName, *score.Value)
	}
	if *score.Dimensions[0].Value != "HIGH" {
		t.Fatalf("label dimension mismatch: %s", *score.Dimensions[0].Value)
	}
}
