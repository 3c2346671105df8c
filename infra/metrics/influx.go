package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/safih1/policedispatch/core/metrics"
	"github.com/safih1/policedispatch/infra/logger"
)

// InfluxSink writes lifecycle events and officer positions to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordLifecycle writes one emergency_lifecycle point.
func (s *InfluxSink) RecordLifecycle(ev coremetrics.LifecycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("emergency_lifecycle").
		AddTag("kind", ev.Kind).
		AddTag("emergency_id", ev.EmergencyID).
		AddTag("source", ev.Source).
		AddField("alert_id", ev.AlertID).
		AddField("status", ev.Status)
	if ev.OfficerID != nil {
		p = p.AddTag("officer_id", strconv.FormatInt(*ev.OfficerID, 10)).
			AddField("distance_km", round3(ev.DistanceKm))
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordNotice writes one operator_notice point.
func (s *InfluxSink) RecordNotice(ev coremetrics.NoticeEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("operator_notice").
		AddTag("kind", ev.Kind).
		AddTag("emergency_id", ev.EmergencyID).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOfficerLocation writes one officer_location point.
func (s *InfluxSink) RecordOfficerLocation(ev coremetrics.OfficerLocationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("officer_location").
		AddTag("officer_id", strconv.FormatInt(ev.OfficerID, 10)).
		AddTag("status", ev.Status).
		AddField("lat", ev.Lat).
		AddField("lng", ev.Lng).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
