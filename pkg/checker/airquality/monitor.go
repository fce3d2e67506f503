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

package airquality

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/airsensor/pkg/accessory"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/metrics"
	"github.com/carverauto/airsensor/pkg/sensor"
	"github.com/carverauto/airsensor/pkg/transport"
)

const tracerName = "github.com/carverauto/airsensor/pkg/checker/airquality"

// Monitor runs the fetch cycles of one accessory. Cycles of one monitor
// never overlap; pushed reports arrive on the listener's goroutines and go
// through the same State.
type Monitor struct {
	config   AccessoryConfig
	endpoint transport.Endpoint
	epErr    error
	opts     transport.Options
	interval time.Duration

	state   *sensor.State
	gate    sensor.Gate
	binding *accessory.Binding

	puller   transport.Puller
	listener transport.Listener
	listenMu sync.Mutex

	clock    Clock
	recorder Recorder
	tracer   trace.Tracer
	logger   logger.Logger

	statusMu sync.RWMutex
	status   cycleStatus
}

type cycleStatus struct {
	cycles    uint64
	failures  uint64
	lastError string
	lastErrAt time.Time
}

// Status is the per-accessory part of Check.
type Status struct {
	Name            string                     `json:"name"`
	Endpoint        string                     `json:"endpoint"`
	Mode            transport.Mode             `json:"mode,omitempty"`
	Available       bool                       `json:"available"`
	LastUpdate      *time.Time                 `json:"last_update,omitempty"`
	LastError       string                     `json:"last_error,omitempty"`
	LastErrorAt     *time.Time                 `json:"last_error_at,omitempty"`
	Cycles          uint64                     `json:"cycles"`
	Failures        uint64                     `json:"failures"`
	Characteristics []accessory.Characteristic `json:"characteristics"`
}

func newMonitor(cfg AccessoryConfig, interval time.Duration, host accessory.Host, o *options, log logger.Logger) *Monitor {
	log = log.WithFields(map[string]interface{}{"accessory": cfg.Name})

	m := &Monitor{
		config:   cfg,
		opts:     cfg.TransportOptions(),
		interval: interval,
		clock:    o.clock,
		recorder: o.recorder,
		tracer:   o.tracerProvider.Tracer(tracerName),
		logger:   log,
	}

	m.state = sensor.NewState(m.clock.Now)
	m.gate = sensor.NewGate(cfg.StaleTimeout(), m.clock.Now)
	m.binding = accessory.NewBinding(cfg.Info(), cfg.Features, m.state, m.gate, host, log)

	m.endpoint, m.epErr = transport.ParseEndpoint(cfg.APIEndpoint)
	if m.epErr != nil {
		return m
	}

	if p, ok := o.pullers[cfg.Name]; ok {
		m.puller = p
		return m
	}

	if !m.endpoint.Passive() {
		m.puller, m.epErr = transport.NewPuller(m.endpoint, m.opts, log)
	}

	return m
}

func (m *Monitor) Name() string { return m.config.Name }

// Mode is empty when the endpoint could not be parsed.
func (m *Monitor) Mode() transport.Mode {
	if m.epErr != nil {
		return ""
	}

	if m.puller != nil {
		if m.endpoint.Scheme == transport.SchemeUDP {
			return transport.ModeUDPPull
		}

		return transport.ModeHTTPPull
	}

	return m.endpoint.Mode()
}

func (m *Monitor) Binding() *accessory.Binding { return m.binding }

func (m *Monitor) State() *sensor.State { return m.state }

// Run registers the accessory, runs a first cycle and then one per tick
// until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.binding.Register(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Accessory host rejected registration")
	}

	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	defer m.close()

	_ = m.Cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			_ = m.Cycle(ctx)
		}
	}
}

// Cycle performs one fetch-and-map step. Failures are logged and leave the
// previous report in place.
func (m *Monitor) Cycle(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "airquality.cycle",
		trace.WithAttributes(
			attribute.String("accessory", m.config.Name),
			attribute.String("mode", string(m.Mode())),
		))
	defer span.End()

	start := m.clock.Now()
	err := m.cycle(ctx)
	result := resultFor(err)

	span.SetAttributes(attribute.String("result", result))
	m.recorder.ObserveFetch(m.config.Name, result, m.clock.Now().Sub(start))
	m.record(err)

	switch {
	case err == nil:
	case errors.Is(err, sensor.ErrTimedOut):
		m.logger.Debug().Msg("No fresh report to publish")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Warn().Err(err).Str("endpoint", m.config.APIEndpoint).Msg("Fetch cycle failed")
	}

	return err
}

func (m *Monitor) cycle(ctx context.Context) error {
	if m.epErr != nil {
		return m.epErr
	}

	if m.puller == nil {
		if err := m.ensureListener(ctx); err != nil {
			return err
		}

		return m.publish(ctx, m.state.Snapshot())
	}

	report, err := m.puller.Pull(ctx)
	if err != nil {
		return err
	}

	snap, err := m.ingest(report)
	if err != nil {
		return err
	}

	return m.publish(ctx, snap)
}

// ensureListener binds the listener on first use. A failed bind is retried
// next cycle; a bound listener is never replaced.
func (m *Monitor) ensureListener(ctx context.Context) error {
	m.listenMu.Lock()
	defer m.listenMu.Unlock()

	if m.listener != nil {
		return nil
	}

	l, err := transport.NewListener(ctx, m.endpoint, m.opts, m.logger)
	if err != nil {
		return err
	}

	if err := l.Listen(ctx, m.onPush); err != nil {
		return err
	}

	m.listener = l

	m.logger.Info().Str("addr", l.Addr().String()).Str("mode", string(m.endpoint.Mode())).Msg("Listening for sensor pushes")

	return nil
}

func (m *Monitor) onPush(report sensor.Report, from net.Addr) {
	m.recorder.ObservePush(m.config.Name)

	sender := "unknown"
	if from != nil {
		sender = from.String()
	}

	if _, err := m.ingest(report); err != nil {
		m.logger.Warn().Err(err).Str("from", sender).Msg("Dropped pushed report")
		return
	}

	m.logger.Debug().Str("from", sender).Msg("Accepted pushed report")
}

func (m *Monitor) ingest(report sensor.Report) (*sensor.Snapshot, error) {
	normalized, err := sensor.Normalize(report, sensor.NormalizeOptions{
		DeriveAirQuality: m.config.Features.DerivesAirQuality(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transport.ErrTransport, err)
	}

	if len(normalized.Rejected) > 0 {
		m.logger.Warn().Strs("rejected", normalized.Rejected).Msg("Dropped out of range readings")
	}

	snap := m.state.Ingest(&normalized)
	m.recorder.SetLastUpdate(m.config.Name, snap.UpdatedAt)

	return snap, nil
}

func (m *Monitor) publish(ctx context.Context, snap *sensor.Snapshot) error {
	n, err := m.binding.Publish(ctx, snap)
	if errors.Is(err, sensor.ErrTimedOut) {
		return err
	}

	if err != nil {
		m.logger.Warn().Err(err).Int("published", n).Msg("Accessory host rejected characteristic updates")
		return nil
	}

	m.logger.Trace().Int("published", n).Msg("Published characteristics")

	return nil
}

func (m *Monitor) record(err error) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	m.status.cycles++

	if err == nil || errors.Is(err, sensor.ErrTimedOut) {
		return
	}

	m.status.failures++
	m.status.lastError = err.Error()
	m.status.lastErrAt = m.clock.Now()
}

// Status reports availability through the staleness gate plus cycle counters.
func (m *Monitor) Status() Status {
	st := Status{
		Name:            m.config.Name,
		Endpoint:        m.config.APIEndpoint,
		Characteristics: m.config.Features.Characteristics(),
	}

	st.Mode = m.Mode()

	snap := m.state.Snapshot()
	st.Available = m.gate.Check(snap) == nil

	if snap != nil {
		updated := snap.UpdatedAt
		st.LastUpdate = &updated
	}

	m.statusMu.RLock()
	defer m.statusMu.RUnlock()

	st.Cycles = m.status.cycles
	st.Failures = m.status.failures
	st.LastError = m.status.lastError

	if !m.status.lastErrAt.IsZero() {
		at := m.status.lastErrAt
		st.LastErrorAt = &at
	}

	return st
}

func (m *Monitor) close() {
	m.listenMu.Lock()
	defer m.listenMu.Unlock()

	if m.listener == nil {
		return
	}

	if err := m.listener.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to close listener")
	}
}

func resultFor(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, sensor.ErrTimedOut):
		return metrics.ResultStale
	case errors.Is(err, transport.ErrConfiguration):
		return metrics.ResultConfigError
	default:
		return metrics.ResultTransportError
	}
}
