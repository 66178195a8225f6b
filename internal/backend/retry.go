package backend

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// Retrying wraps a Translator with exponential-backoff retries for
// transient failures. Quota errors pass through untouched so the
// caller can bench the backend.
type Retrying struct {
	inner  Translator
	policy retrypolicy.RetryPolicy[string]
}

func WithRetries(inner Translator) *Retrying {
	policy := retrypolicy.Builder[string]().
		HandleIf(func(_ string, err error) bool {
			return IsRetryable(err)
		}).
		WithBackoff(2*time.Second, 10*time.Second).
		WithMaxRetries(3).
		OnRetry(func(e failsafe.ExecutionEvent[string]) {
			log.Warn("%s attempt %d failed: %v", inner.Name(), e.Attempts(), e.LastError())
		}).
		Build()
	return &Retrying{inner: inner, policy: policy}
}

func (r *Retrying) Name() string { return r.inner.Name() }
func (r *Retrying) Kind() Kind   { return r.inner.Kind() }

func (r *Retrying) Translate(ctx context.Context, req Request) (string, error) {
	return failsafe.NewExecutor[string](r.policy).
		WithContext(ctx).
		Get(func() (string, error) {
			return r.inner.Translate(ctx, req)
		})
}

func (r *Retrying) Warmup(ctx context.Context) error {
	if w, ok := r.inner.(Warmer); ok {
		return w.Warmup(ctx)
	}
	return nil
}

// Unwrap exposes the wrapped backend for capability checks.
func (r *Retrying) Unwrap() Translator { return r.inner }
