package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarree100/q100opt/config"
	coremon "github.com/quarree100/q100opt/core/monitoring"
)

func TestNewSentryMonitor_EmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitor_InvalidDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "::not a dsn"})
	assert.Error(t, err)
}

func TestSentryMonitor_CaptureException(t *testing.T) {
	var mu sync.Mutex
	var events []*sentry.Event
	m, err := newSentryMonitor(sentry.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	m.CaptureException(errors.New("extraction failed"), map[string]string{"module": "results", "run_id": "r1"})
	m.CaptureException(nil, nil)
	m.Flush(time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "results", events[0].Tags["module"])
	assert.Equal(t, "r1", events[0].Tags["run_id"])
}

func TestSentryMonitor_RecoverRepanics(t *testing.T) {
	m, err := newSentryMonitor(sentry.ClientOptions{
		Dsn:        "https://public@sentry.example.com/1",
		BeforeSend: func(*sentry.Event, *sentry.EventHint) *sentry.Event { return nil },
	})
	require.NoError(t, err)
	assert.PanicsWithValue(t, "boom", func() {
		defer m.Recover()
		panic("boom")
	})
}
