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

package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/models"
)

const (
	defaultStepInterval = 5 * time.Second
	readHeaderTimeout   = 5 * time.Second
	udpBufferSize       = 2048
)

var (
	errNothingToServe   = errors.New("one of http_addr, udp_addr or push_url is required")
	errUnsupportedPush  = errors.New("push_url scheme must be http or udp")
	errAlreadyStarted   = errors.New("simulator already started")
	errPushUnsuccessful = errors.New("push rejected")
)

// Config is the sensor-simulator configuration.
type Config struct {
	HTTPAddr     string          `json:"http_addr" yaml:"http_addr"`
	UDPAddr      string          `json:"udp_addr" yaml:"udp_addr"`
	PushURL      string          `json:"push_url" yaml:"push_url"`
	StepInterval models.Duration `json:"step_interval" yaml:"step_interval"`
	Envelope     bool            `json:"envelope" yaml:"envelope"`
	Seed         uint64          `json:"seed" yaml:"seed"`
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" && c.UDPAddr == "" && c.PushURL == "" {
		return errNothingToServe
	}

	if c.PushURL != "" {
		u, err := url.Parse(c.PushURL)
		if err != nil {
			return fmt.Errorf("push_url: %w", err)
		}

		if u.Scheme != "http" && u.Scheme != "udp" {
			return fmt.Errorf("%w: %q", errUnsupportedPush, u.Scheme)
		}
	}

	if c.StepInterval <= 0 {
		c.StepInterval = models.Duration(defaultStepInterval)
	}

	return nil
}

// Simulator serves the model over the configured transports.
type Simulator struct {
	config *Config
	model  *Model
	client *http.Client
	logger logger.Logger

	mu       sync.Mutex
	httpSrv  *http.Server
	httpAddr net.Addr
	udpConn  net.PacketConn
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(cfg *Config, log logger.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Simulator{
		config: cfg,
		model:  NewModel(cfg.Seed, cfg.Envelope),
		client: &http.Client{Timeout: 5 * time.Second},
		logger: log,
	}, nil
}

func (s *Simulator) Model() *Model { return s.model }

// HTTPAddr is the bound HTTP address, nil before Start.
func (s *Simulator) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.httpAddr
}

// UDPAddr is the bound UDP address, nil before Start.
func (s *Simulator) UDPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.udpConn == nil {
		return nil
	}

	return s.udpConn.LocalAddr()
}

func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errAlreadyStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)

	var lc net.ListenConfig

	if s.config.HTTPAddr != "" {
		ln, err := lc.Listen(ctx, "tcp", s.config.HTTPAddr)
		if err != nil {
			s.cancel()
			return fmt.Errorf("listen http %s: %w", s.config.HTTPAddr, err)
		}

		s.httpAddr = ln.Addr()
		s.httpSrv = &http.Server{Handler: s, ReadHeaderTimeout: readHeaderTimeout}

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()

			if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Msg("HTTP server stopped")
			}
		}()

		s.logger.Info().Str("addr", s.httpAddr.String()).Msg("Serving sensor reports over HTTP")
	}

	if s.config.UDPAddr != "" {
		pc, err := lc.ListenPacket(ctx, "udp", s.config.UDPAddr)
		if err != nil {
			s.cancel()
			return fmt.Errorf("listen udp %s: %w", s.config.UDPAddr, err)
		}

		s.udpConn = pc

		s.wg.Add(1)

		go s.serveUDP(pc)

		s.logger.Info().Str("addr", pc.LocalAddr().String()).Msg("Answering UDP pull requests")
	}

	s.wg.Add(1)

	go s.stepLoop(ctx)

	return nil
}

func (s *Simulator) Stop() error {
	s.mu.Lock()
	cancel, srv, conn := s.cancel, s.httpSrv, s.udpConn
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	var errs []error

	if srv != nil {
		errs = append(errs, srv.Close())
	}

	if conn != nil {
		errs = append(errs, conn.Close())
	}

	s.wg.Wait()

	return errors.Join(errs...)
}

// ServeHTTP answers any GET with the current report.
func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := s.model.Payload()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (s *Simulator) serveUDP(pc net.PacketConn) {
	defer s.wg.Done()

	buf := make([]byte, udpBufferSize)

	for {
		_, from, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}

		payload, err := s.model.Payload()
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to encode report")
			continue
		}

		if _, err := pc.WriteTo(payload, from); err != nil {
			s.logger.Warn().Err(err).Str("to", from.String()).Msg("Failed to answer UDP pull")
		}
	}
}

func (s *Simulator) stepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.StepInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.model.Step()

			if s.config.PushURL == "" {
				continue
			}

			if err := s.Push(ctx); err != nil {
				s.logger.Warn().Err(err).Str("push_url", s.config.PushURL).Msg("Push failed")
			}
		}
	}
}

// Push sends the current report to the configured push URL.
func (s *Simulator) Push(ctx context.Context) error {
	payload, err := s.model.Payload()
	if err != nil {
		return err
	}

	u, err := url.Parse(s.config.PushURL)
	if err != nil {
		return err
	}

	if u.Scheme == "udp" {
		var d net.Dialer

		conn, err := d.DialContext(ctx, "udp", u.Host)
		if err != nil {
			return err
		}

		defer func() { _ = conn.Close() }()

		_, err = conn.Write(payload)

		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.PushURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}

	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d", errPushUnsuccessful, resp.StatusCode)
	}

	return nil
}
