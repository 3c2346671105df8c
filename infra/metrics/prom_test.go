package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safih1/policedispatch/core/events"
	"github.com/safih1/policedispatch/core/factory"
	coremetrics "github.com/safih1/policedispatch/core/metrics"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/transport"
	"github.com/safih1/policedispatch/internal/eventbus"
)

func TestPromSinkSharesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	s1, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	s2, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s1.RecordLifecycle(coremetrics.LifecycleEvent{Kind: "received", Source: "backend"}))
	require.NoError(t, s2.RecordLifecycle(coremetrics.LifecycleEvent{Kind: "received", Source: "backend"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(s1.lifecycle.WithLabelValues("received", "backend")))
}

func TestPromSinkConnectionState(t *testing.T) {
	s, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, s.RecordConnection(coremetrics.ConnectionEvent{State: "open"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.connection.WithLabelValues("open")))
	require.NoError(t, s.RecordConnection(coremetrics.ConnectionEvent{State: "failed"}))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.connection.WithLabelValues("open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.connection.WithLabelValues("failed")))
}

func TestStartEventCollector(t *testing.T) {
	s, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	bus := eventbus.New()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, s)

	bus.Publish(events.LifecycleEvent{
		Kind:      events.Assigned,
		Emergency: model.Emergency{ID: "E-1"},
		Officer:   &model.Officer{ID: 1, DistanceKm: 2},
		Source:    events.SourceAuto,
	})
	bus.Publish(events.Notice{Kind: events.NoticeNoOfficers, Err: errors.New("none")})
	bus.Publish(events.OfficerLocationEvent{OfficerID: 3, Status: "on_duty"})
	bus.Publish(events.ConnectionEvent{State: transport.StateOpen, Time: time.Now()})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(s.lifecycle.WithLabelValues("assigned", "auto")) == 1 &&
			testutil.ToFloat64(s.notices.WithLabelValues("no_officers")) == 1 &&
			testutil.ToFloat64(s.locations.WithLabelValues("on_duty")) == 1 &&
			testutil.ToFloat64(s.connection.WithLabelValues("open")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBuiltinFactories(t *testing.T) {
	s, err := coremetrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	s, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, &coremetrics.MultiSink{}, s)

	_, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}
