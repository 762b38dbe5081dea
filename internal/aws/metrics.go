package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/returnguard/internal/risk"
)

// RiskMetrics publishes per-order risk figures to CloudWatch.
type RiskMetrics struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewRiskMetrics returns a publisher writing into namespace.
func NewRiskMetrics(cw CloudWatchAPI, namespace string) *RiskMetrics {
	return &RiskMetrics{
		CloudWatch: cw,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// PublishAnalysis records score, savings and potential loss, dimensioned by
// risk label and recommended action.
func (m *RiskMetrics) PublishAnalysis(ctx context.Context, a risk.RiskAnalysis) error {
	ts := m.nowFunc()
	dims := []cwtypes.Dimension{
		{Name: awsString("RiskLabel"), Value: awsString(string(a.RiskLabel))},
		{Name: awsString("Action"), Value: awsString(string(a.RecommendedAction))},
	}
	datum := func(name string, v float64, unit cwtypes.StandardUnit) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: awsString(name),
			Dimensions: dims,
			Timestamp:  &ts,
			Value:      &v,
			Unit:       unit,
		}
	}

	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &m.Namespace,
		MetricData: []cwtypes.MetricDatum{
			datum("OrdersAnalyzed", 1, cwtypes.StandardUnitCount),
			datum("RiskScore", float64(a.RiskScore), cwtypes.StandardUnitNone),
			datum("EstimatedSavings", a.EstimatedSavings, cwtypes.StandardUnitNone),
			datum("PotentialLoss", a.PotentialLossWithoutAction, cwtypes.StandardUnitNone),
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
