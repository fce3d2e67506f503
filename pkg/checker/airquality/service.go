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
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/airsensor/pkg/accessory"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/transport"
)

type options struct {
	clock          Clock
	recorder       Recorder
	tracerProvider trace.TracerProvider
	pullers        map[string]transport.Puller
}

// Option customizes a Service.
type Option func(*options)

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithPuller replaces the fetcher built from the named accessory's endpoint.
func WithPuller(accessoryName string, p transport.Puller) Option {
	return func(o *options) { o.pullers[accessoryName] = p }
}

// Service runs one Monitor per configured accessory.
type Service struct {
	config   *Config
	monitors []*Monitor
	byName   map[string]*Monitor
	logger   logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
}

// NewService validates cfg and builds the monitors. Every registration and
// characteristic push goes to host.
func NewService(cfg *Config, host accessory.Host, log logger.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid airquality config: %w", err)
	}

	o := &options{
		clock:          realClock{},
		recorder:       nopRecorder{},
		tracerProvider: otel.GetTracerProvider(),
		pullers:        make(map[string]transport.Puller),
	}

	for _, opt := range opts {
		opt(o)
	}

	s := &Service{
		config: cfg,
		byName: make(map[string]*Monitor, len(cfg.Accessories)),
		logger: log,
	}

	for _, acc := range cfg.Accessories {
		m := newMonitor(acc, cfg.PollInterval.Std(), host, o, log)
		s.monitors = append(s.monitors, m)
		s.byName[acc.Name] = m
	}

	return s, nil
}

// Start launches every monitor and returns. Monitors stop when ctx is done
// or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errServiceStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	s.started = true

	s.logger.Info().
		Int("accessory_count", len(s.monitors)).
		Str("poll_interval", s.config.PollInterval.String()).
		Msg("Starting airquality service")

	for _, m := range s.monitors {
		s.group.Go(func() error {
			return m.Run(ctx)
		})
	}

	return nil
}

// Stop cancels the monitors and waits for them to finish.
func (s *Service) Stop() error {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	if err := group.Wait(); err != nil {
		return fmt.Errorf("airquality monitors: %w", err)
	}

	s.logger.Info().Msg("Airquality service stopped")

	return nil
}

func (s *Service) Monitors() []*Monitor {
	return s.monitors
}

func (s *Service) Monitor(name string) (*Monitor, bool) {
	m, ok := s.byName[name]

	return m, ok
}

// Statuses returns the status of every accessory in config order.
func (s *Service) Statuses() []Status {
	out := make([]Status, 0, len(s.monitors))

	for _, m := range s.monitors {
		out = append(out, m.Status())
	}

	return out
}

// Check reports whether every accessory has fresh data, with the
// per-accessory status as a JSON message.
func (s *Service) Check(_ context.Context) (available bool, msg string) {
	statuses := make(map[string]Status, len(s.monitors))
	available = true

	for _, st := range s.Statuses() {
		statuses[st.Name] = st

		if !st.Available {
			available = false
		}
	}

	statusJSON, err := json.Marshal(statuses)
	if err != nil {
		return false, string(jsonError(fmt.Sprintf("Error marshaling airquality status to JSON: %v", err)))
	}

	return available, string(statusJSON)
}

func jsonError(msg string) []byte {
	data, _ := json.Marshal(map[string]string{"error": msg})

	return data
}
