/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics records accessory fetch cycles, pushed reports and
// characteristic updates as Prometheus series and as OTel instruments.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/airsensor/pkg/accessory"
)

const namespace = "airsensor"

// Fetch results.
const (
	ResultOK             = "ok"
	ResultConfigError    = "config_error"
	ResultTransportError = "transport_error"
	ResultStale          = "stale"
)

// Metrics owns a private registry so tests and multiple services never
// collide on the default one.
type Metrics struct {
	registry      *prometheus.Registry
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	pushes        *prometheus.CounterVec
	lastUpdate    *prometheus.GaugeVec
	updates       *prometheus.CounterVec
	info          *prometheus.GaugeVec

	inst *instruments
}

// Option configures New.
type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
}

// WithMeterProvider sets the provider of the OTel instruments. The global
// provider is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

func New(opts ...Option) *Metrics {
	o := &options{meterProvider: otel.GetMeterProvider()}

	for _, opt := range opts {
		opt(o)
	}

	m := &Metrics{
		inst:     newInstruments(o.meterProvider),
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Fetch cycles by accessory and result.",
		}, []string{"accessory", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetch cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"accessory"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_received_total",
			Help:      "Reports pushed by sensors to a listener.",
		}, []string{"accessory"}),
		lastUpdate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_update_timestamp_seconds",
			Help:      "Unix time of the last accepted report.",
		}, []string{"accessory"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "characteristic_updates_total",
			Help:      "Characteristic values pushed to the accessory host.",
		}, []string{"accessory", "characteristic"}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accessory_info",
			Help:      "Registered accessories.",
		}, []string{"accessory", "manufacturer", "model", "firmware"}),
	}

	m.registry.MustRegister(
		m.fetches,
		m.fetchDuration,
		m.pushes,
		m.lastUpdate,
		m.updates,
		m.info,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveFetch(accessoryName, result string, elapsed time.Duration) {
	m.fetches.WithLabelValues(accessoryName, result).Inc()
	m.fetchDuration.WithLabelValues(accessoryName).Observe(elapsed.Seconds())
	m.inst.observeFetch(accessoryName, result, elapsed)
}

func (m *Metrics) ObservePush(accessoryName string) {
	m.pushes.WithLabelValues(accessoryName).Inc()
	m.inst.observePush(accessoryName)
}

func (m *Metrics) SetLastUpdate(accessoryName string, at time.Time) {
	unix := float64(at.UnixNano()) / float64(time.Second)

	m.lastUpdate.WithLabelValues(accessoryName).Set(unix)
	m.inst.setLastUpdate(accessoryName, unix)
}

// Register makes Metrics usable as an accessory.Host.
func (m *Metrics) Register(_ context.Context, acc *accessory.Accessory) error {
	m.info.WithLabelValues(acc.Info.Name, acc.Info.Manufacturer, acc.Info.Model, acc.Info.FirmwareRevision).Set(1)

	return nil
}

func (m *Metrics) Update(ctx context.Context, update accessory.Update) error {
	m.updates.WithLabelValues(update.Accessory, string(update.Characteristic)).Inc()
	m.inst.update(ctx, update.Accessory, string(update.Characteristic))

	return nil
}
