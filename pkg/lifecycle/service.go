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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/airsensor/pkg/logger"
)

const defaultStopTimeout = 10 * time.Second

var errStopTimeout = errors.New("timed out waiting for service to stop")

// Service is a component started once and stopped on shutdown.
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

// Runner is a blocking component that returns once ctx is done.
type Runner func(ctx context.Context) error

// ServerOptions configures RunService.
type ServerOptions struct {
	ServiceName string
	Service     Service
	Runners     []Runner
	StopTimeout time.Duration
	Logger      logger.Logger
}

// RunService starts the service and runners, waits for SIGINT/SIGTERM or
// ctx, then stops everything. The first runner error also triggers shutdown
// and is returned.
func RunService(ctx context.Context, opts *ServerOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := opts.Logger

	if err := opts.Service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s: %w", opts.ServiceName, err)
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service started")

	g, gctx := errgroup.WithContext(ctx)

	for _, run := range opts.Runners {
		g.Go(func() error {
			return run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		log.Info().Str("service", opts.ServiceName).Msg("Shutting down")

		return stopWithTimeout(opts.Service, opts.StopTimeout)
	})

	return g.Wait()
}

func stopWithTimeout(svc Service, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	done := make(chan error, 1)

	go func() { done <- svc.Stop() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errStopTimeout
	}
}
