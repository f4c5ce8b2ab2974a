package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/fleetyard/regsync/internal/core/domain"
	"github.com/fleetyard/regsync/internal/infrastructure/resilience"
)

// classify wraps transport errors into the domain taxonomy: 4xx is a
// definitive refusal, 5xx and network trouble are retryable.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return domain.WrapError(domain.ErrTemporary, "gateway "+operation, err)
		}
		return domain.WrapError(domain.ErrRemoteRejected, "gateway "+operation, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, "gateway "+operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ClassifyError feeds the resilience executor: only temporary failures are
// retried or counted against the breaker.
func ClassifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
}

// Resilient decorates a gateway with retry/breaker behaviour for the
// read-side operations. Submit and Cancel are deliberately not retried: a
// duplicate submission is worse than a surfaced transient error.
type Resilient struct {
	inner    *Client
	executor *resilience.Executor
}

func NewResilient(inner *Client, executor *resilience.Executor) *Resilient {
	return &Resilient{inner: inner, executor: executor}
}

func (r *Resilient) Submit(ctx context.Context, token string, doc *domain.Document) (*domain.SubmitReceipt, error) {
	return r.inner.Submit(ctx, token, doc)
}

func (r *Resilient) PollStatus(ctx context.Context, token string, env domain.Environment, channel domain.Channel, transactionID string) (*domain.PollResult, error) {
	var out *domain.PollResult
	err := r.executor.Execute(ctx, "gateway.poll", func(ctx context.Context) error {
		res, err := r.inner.PollStatus(ctx, token, env, channel, transactionID)
		if err != nil {
			return err
		}
		out = res
		return nil
	}, ClassifyError)
	return out, err
}

func (r *Resilient) FetchResult(ctx context.Context, token string, env domain.Environment, channel domain.Channel, transactionID, resultRef string) (*domain.ResultDescriptor, error) {
	var out *domain.ResultDescriptor
	err := r.executor.Execute(ctx, "gateway.fetch_result", func(ctx context.Context) error {
		desc, err := r.inner.FetchResult(ctx, token, env, channel, transactionID, resultRef)
		if err != nil {
			return err
		}
		out = desc
		return nil
	}, ClassifyError)
	return out, err
}

func (r *Resilient) Cancel(ctx context.Context, token string, env domain.Environment, channel domain.Channel, remoteID, reason string) error {
	return r.inner.Cancel(ctx, token, env, channel, remoteID, reason)
}
