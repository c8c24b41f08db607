package dispatch

import (
	"context"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

const DefaultRetryDelay = time.Second

// RetryPolicy tells transient failures from server disagreement.
type RetryPolicy struct {
	noRetry map[int]struct{}
}

// NewRetryPolicy builds the policy. noRetry lists statuses that are never
// retried even if they would be by default.
func NewRetryPolicy(noRetry []int) RetryPolicy {
	p := RetryPolicy{noRetry: make(map[int]struct{}, len(noRetry))}
	for _, s := range noRetry {
		p.noRetry[s] = struct{}{}
	}
	return p
}

// Retryable reports whether a failed status may succeed on a later attempt.
// Transport and decode failures, timeouts, throttling and server errors are;
// rejections and application failure codes are not.
func (p RetryPolicy) Retryable(status int) bool {
	if _, ok := p.noRetry[status]; ok {
		return false
	}

	switch {
	case status == types.StatusTransportFailed, status == types.StatusDecodeFailed:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

// retry decides what happens to a request whose send failed.
func (l *Loop) retry(ctx context.Context, stop <-chan struct{}, req *models.Request, res codec.Result) {
	ctx = wrap.WithAction(ctx, types.ActionRetryRequest)
	kind := req.Type.String()

	if !l.policy.Retryable(res.Status) {
		metrics.RecordRetry(kind, "rejected")
		l.log.Warn(ctx, "request rejected by server, dropped", "status", res.Status, "reason", res.Message)
		return
	}

	if !sleep(ctx, stop, l.opts.RetryDelay) {
		metrics.RecordRetry(kind, "dropped")
		l.log.Debug(ctx, "retry interrupted by stop")
		return
	}

	switch req.Type {
	case types.CallTaxiRequest:
		if !l.calls.RequeueIfCurrent(ctx, req) {
			metrics.RecordRetry(kind, "dropped")
			l.log.Info(ctx, "taxi call superseded, not retried", "current_sequence", l.calls.Sequence())
			return
		}
		metrics.RecordRetry(kind, "requeued")

	case types.LocationUpdateRequest:
		pos, ok := l.position.Position()
		if !ok {
			metrics.RecordRetry(kind, "dropped")
			l.log.Warn(ctx, "no position to resend")
			return
		}
		l.queue.Enqueue(ctx, models.NewLocationUpdateRequest(pos))
		metrics.RecordRetry(kind, "regenerated")

	case types.CancelCallTaxiRequest:
		if l.queue.Contains(types.CancelCallTaxiRequest) {
			metrics.RecordRetry(kind, "dropped")
			l.log.Debug(ctx, "newer cancel already pending")
			return
		}
		l.queue.Enqueue(ctx, req)
		metrics.RecordRetry(kind, "requeued")

	default:
		metrics.RecordRetry(kind, "dropped")
		l.log.Warn(ctx, "request failed, dropped", "status", res.Status, "reason", res.Message)
		return
	}

	l.log.Info(ctx, "request scheduled for retry", "status", res.Status, "reason", res.Message)
}

// sleep waits for d. It returns false when interrupted by stop or ctx.
func sleep(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}
