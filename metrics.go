package courier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SendRecord is the metrics envelope persisted after a delivery attempt.
// The notification data layer consumes it; this library only defines the
// contract and the fire-and-forget dispatch.
type SendRecord struct {
	ID        string       `json:"id"`
	Provider  ProviderName `json:"provider"`
	EmailType EmailType    `json:"emailType,omitempty"`
	Recipient string       `json:"recipient"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	LatencyMs int64        `json:"latencyMs"`
	Timestamp time.Time    `json:"timestamp"`
}

// MetricsRecorder persists send metrics. Implementations are expected to
// be safe for concurrent use.
type MetricsRecorder interface {
	Record(ctx context.Context, rec *SendRecord) error
}

const metricsTimeout = 5 * time.Second

// recordMetrics dispatches a send record to the configured recorder on a
// detached goroutine. It never adds latency to the caller's critical
// path; recorder failures are logged and swallowed, never surfaced in
// the SendResult.
func (c *Client) recordMetrics(result *SendResult, emailType EmailType, recipient string) {
	if c.metrics == nil {
		return
	}

	rec := &SendRecord{
		ID:        uuid.NewString(),
		Provider:  result.Provider,
		EmailType: emailType,
		Recipient: recipient,
		Success:   result.Success,
		Error:     result.Error,
		LatencyMs: result.LatencyMs,
		Timestamp: result.Timestamp,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
		defer cancel()

		if err := c.metrics.Record(ctx, rec); err != nil {
			c.logger.Warn("failed to persist send metrics",
				zap.String("provider", rec.Provider.String()),
				zap.String("record_id", rec.ID),
				zap.Error(err),
			)
		}
	}()
}
