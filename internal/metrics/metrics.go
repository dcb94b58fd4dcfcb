// Package metrics exposes receiver activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

const namespace = "dcf77"

// Frame results used as the "result" label of frames_total.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultDropped = "dropped"
)

// Metrics holds the collectors, registered on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	cycles        *prometheus.CounterVec   // measured seconds (by event)
	pulseMs       *prometheus.HistogramVec // pulse length (by event)
	frames        *prometheus.CounterVec   // closed frames (by result)
	fieldFaults   *prometheus.CounterVec   // invalid fields (by field, fault)
	frameLen      prometheus.Gauge         // slots filled in the last frame
	synced        prometheus.Gauge         // 1 once a minute mark has been seen
	mqttConnected prometheus.Gauge
	mqttBuffered  prometheus.Gauge // messages held while the broker is unreachable
	lastValid     prometheus.Gauge // unix time of the last fully valid minute
}

// New creates the collectors. Go runtime and process collectors are included.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Measured seconds by classification.",
		}, []string{"event"}),
		pulseMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pulse_milliseconds",
			Help:      "Measured pulse length by classification.",
			Buckets:   []float64{40, 70, 100, 120, 150, 200, 250, 300},
		}, []string{"event"}),
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames closed by a minute mark, by result.",
		}, []string{"result"}),
		fieldFaults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_faults_total",
			Help:      "Fields rejected by the decoder, by field and fault.",
		}, []string{"field", "fault"}),
		frameLen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame_length",
			Help:      "Slots filled in the most recent frame.",
		}),
		synced: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "synced",
			Help:      "1 once the receiver has seen a minute mark.",
		}),
		mqttConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 while the MQTT client is connected.",
		}),
		mqttBuffered: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_buffered_messages",
			Help:      "Messages waiting for the MQTT connection to return.",
		}),
		lastValid: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_valid_minute_timestamp_seconds",
			Help:      "Unix time at which the last fully valid minute was received.",
		}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveCycle records one measured second.
func (m *Metrics) ObserveCycle(c dcf77.Cycle, ev dcf77.BitEvent) {
	label := strings.ToLower(string(ev))
	m.cycles.WithLabelValues(label).Inc()
	m.pulseMs.WithLabelValues(label).Observe(float64(c.Pulse))
}

// ObserveMinute records a decoded frame.
func (m *Metrics) ObserveMinute(minute dcf77.Minute) {
	m.frameLen.Set(float64(minute.Fields.FrameLen))
	if minute.Fields.Valid() {
		m.frames.WithLabelValues(ResultValid).Inc()
		m.lastValid.Set(float64(minute.Received.Unix()))
		return
	}
	m.frames.WithLabelValues(ResultInvalid).Inc()
	for _, nf := range minute.Fields.Fields() {
		if nf.Fault != dcf77.FaultNone {
			m.fieldFaults.WithLabelValues(nf.Name, strings.ToLower(string(nf.Fault))).Inc()
		}
	}
}

// ObserveDropped records a frame discarded before the receiver was aligned.
func (m *Metrics) ObserveDropped() {
	m.frames.WithLabelValues(ResultDropped).Inc()
}

// SetSynced records receiver alignment.
func (m *Metrics) SetSynced(synced bool) {
	m.synced.Set(boolValue(synced))
}

// SetMQTTConnected records broker connectivity.
func (m *Metrics) SetMQTTConnected(connected bool) {
	m.mqttConnected.Set(boolValue(connected))
}

// SetMQTTBuffered records the size of the offline buffer.
func (m *Metrics) SetMQTTBuffered(n int) {
	m.mqttBuffered.Set(float64(n))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
