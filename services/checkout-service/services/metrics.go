package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MetricsRecorder is implemented by the CloudWatch metrics client.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// countAsync records a counter without holding up the caller. A nil
// recorder is a no-op.
func countAsync(m MetricsRecorder, logger *zap.Logger, name string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.RecordCount(ctx, name, map[string]string{"Service": "checkout-service"}); err != nil {
			logger.Debug("metric not recorded", zap.String("metric", name), zap.Error(err))
		}
	}()
}
