package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/los-insight/pkg/llm"
	"github.com/kart-io/los-insight/pkg/utils/httpclient"
)

var errUpstream = &httpclient.StatusError{StatusCode: 503, Body: "overloaded"}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(maxFailures int, timeout time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: maxFailures, Timeout: timeout})
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
	assert.Equal(t, llm.FailureTransient, llm.Classify(err))
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)

	_ = cb.Execute(func() error { return errUpstream })
	require.Equal(t, StateOpen, cb.State())

	clock.t = clock.t.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)

	_ = cb.Execute(func() error { return errUpstream })
	clock.t = clock.t.Add(2 * time.Minute)
	_ = cb.Execute(func() error { return errUpstream })

	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitBreakerOpen)
}

func TestCircuitBreaker_AuthErrorsDoNotTrip(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	authErr := &httpclient.StatusError{StatusCode: 401}

	_ = cb.Execute(func() error { return authErr })
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	_ = cb.Execute(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, Stats{State: "closed"}, cb.Stats())
}

type flakyChat struct {
	calls int
	err   error
}

func (f *flakyChat) Chat(context.Context, []llm.Message) (string, error) {
	f.calls++
	return "ok", f.err
}

func (f *flakyChat) Generate(ctx context.Context, _, _ string) (string, error) {
	return f.Chat(ctx, nil)
}

func (f *flakyChat) Name() string { return "flaky" }

func TestBreakerChatProvider(t *testing.T) {
	inner := &flakyChat{err: errUpstream}
	p := NewBreakerChatProvider(inner, &CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})

	_, err := p.Generate(context.Background(), "q", "")
	require.Error(t, err)

	_, err = p.Generate(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.Equal(t, 1, inner.calls, "open breaker must not call the provider")
	assert.Equal(t, "flaky", p.Name())
	assert.Equal(t, StateOpen, p.CircuitBreaker().State())
}
